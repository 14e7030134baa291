// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import (
	"decred.org/wadwallet/cashu"
)

// DB is an interface that must be satisfied by the wallet's persistent ledger.
type DB interface {
	cashu.Runner
	// RegisterNode stores the mint URL and assigns it a node id. Registering
	// a URL that is already known returns the existing id.
	RegisterNode(url string) (uint32, error)
	// Node retrieves a registered node by id.
	Node(id uint32) (*Node, error)
	// NodeByURL retrieves a registered node by URL.
	NodeByURL(url string) (*Node, error)
	// Nodes lists the registered nodes in ascending id order.
	Nodes() ([]*Node, error)
	// StoreKeysets inserts or updates the node's keysets. Derivation counters
	// of known keysets are preserved.
	StoreKeysets(nodeID uint32, keysets []*Keyset) error
	// Keyset retrieves a stored keyset by its hex id.
	Keyset(id string) (*Keyset, error)
	// ReserveCounter reserves n consecutive derivation counters for the
	// keyset and returns the first one.
	ReserveCounter(keysetID string, n uint32) (uint32, error)
	// CreditInbound stores the fresh proofs as unspent and records the inbound
	// wad, in a single transaction.
	CreditInbound(rec *WadRecord, proofs []*Proof) error
	// SwapProofs marks the spent proofs, which must all be unspent, and stores
	// the fresh proofs as unspent, in a single transaction.
	SwapProofs(nodeID uint32, spent []string, fresh []*Proof) error
	// UnspentProofs lists the unspent proofs held at the node in the unit.
	UnspentProofs(nodeID uint32, unit cashu.Unit) ([]*Proof, error)
	// Proofs retrieves proofs by their Y ids, in the order requested.
	Proofs(ids []string) ([]*Proof, error)
	// RegisterOutbound records an outbound wad and marks its proofs spent in a
	// single transaction. ErrProofNotUnspent is returned, and nothing is
	// written, if any proof is not unspent.
	RegisterOutbound(rec *WadRecord) error
	// Balances sums the unspent proofs per node and unit. Zero totals are not
	// reported.
	Balances() ([]*Balance, error)
	// Wads lists the newest n wad records, newest first. n = 0 lists all.
	Wads(n int) ([]*WadRecord, error)
	// SetSeed stores the encrypted wallet seed and the serialized crypter
	// that encrypted it. SetSeed fails if a seed is already stored.
	SetSeed(crypter, encSeed []byte) error
	// Seed retrieves the serialized crypter and encrypted seed. ErrNotFound
	// is returned for a wallet that has no seed yet.
	Seed() (crypter, encSeed []byte, err error)
	// Backup makes a copy of the database.
	Backup() error
}
