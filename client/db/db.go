// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import "decred.org/wadwallet/cashu"

const (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = cashu.ErrorKind("not found")
	// ErrProofNotUnspent is returned when a write would spend a proof that is
	// already spent or unknown.
	ErrProofNotUnspent = cashu.ErrorKind("proof is not unspent")
	// ErrSeedExists is returned by SetSeed when the wallet already has a seed.
	ErrSeedExists = cashu.ErrorKind("seed already exists")
)
