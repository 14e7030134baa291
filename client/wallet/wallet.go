// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package wallet has the wallet steps that span the ledger and a mint. Every
// step holds a ledger connection only for its storage reads and writes, never
// across a mint request.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/bdhke"
	"decred.org/wadwallet/cashu/token"
	"decred.org/wadwallet/client/db"
	"decred.org/wadwallet/client/db/pool"
	"decred.org/wadwallet/client/mint"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Session is a connection to a mint. *mint.Session satisfies Session.
type Session interface {
	URL() string
	Keysets() []*mint.KeysetInfo
	KeysetInfo(id string) (*mint.KeysetInfo, bool)
	ActiveKeyset(unit cashu.Unit) (*mint.KeysetInfo, error)
	Keys(ctx context.Context, id string) (*mint.Keyset, error)
	Swap(ctx context.Context, inputs cashu.Proofs, outputs []*cashu.BlindedMessage) ([]*cashu.BlindedSignature, error)
	InputFee(proofs cashu.Proofs) (uint64, error)
}

var _ Session = (*mint.Session)(nil)

// Connector opens mint sessions.
type Connector interface {
	Connect(ctx context.Context, url string) (Session, error)
}

type mintConnector struct {
	c *mint.Connector
}

// MintConnector adapts a *mint.Connector to the Connector interface.
func MintConnector(c *mint.Connector) Connector {
	return &mintConnector{c: c}
}

func (mc *mintConnector) Connect(ctx context.Context, url string) (Session, error) {
	s, err := mc.c.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Wallet runs wallet steps against the pooled ledger.
type Wallet struct {
	pool *pool.Pool
}

// New is the constructor for a Wallet.
func New(p *pool.Pool) *Wallet {
	return &Wallet{pool: p}
}

// RegisterNode registers the session's mint URL and stores its keysets. It
// is idempotent and returns the node id.
func (w *Wallet) RegisterNode(ctx context.Context, sess Session) (nodeID uint32, err error) {
	keysets := make([]*db.Keyset, 0, len(sess.Keysets()))
	for _, ks := range sess.Keysets() {
		if _, err := cashu.KeysetIDBytes(ks.ID); err != nil {
			return 0, err
		}
		keysets = append(keysets, &db.Keyset{
			ID:          ks.ID,
			Unit:        cashu.ParseUnit(ks.Unit),
			Active:      ks.Active,
			InputFeePPK: ks.InputFeePPK,
		})
	}
	return nodeID, w.pool.With(ctx, func(conn db.DB) error {
		if nodeID, err = conn.RegisterNode(sess.URL()); err != nil {
			return err
		}
		return conn.StoreKeysets(nodeID, keysets)
	})
}

// ExchangeAndCredit swaps every proof of the wad at its mint for fresh proofs
// and credits them to the ledger. The credited amount is the wad amount less
// the mint's input fee.
func (w *Wallet) ExchangeAndCredit(ctx context.Context, secrets *Secrets, sess Session, nodeID uint32, wad *token.Wad) (uint64, error) {
	if len(wad.Proofs) == 0 {
		return 0, errors.New("wad has no proofs")
	}
	for _, p := range wad.Proofs {
		ks, found := sess.KeysetInfo(p.ID)
		if !found {
			return 0, fmt.Errorf("proof keyset %s is unknown to mint %s", p.ID, sess.URL())
		}
		if u := cashu.ParseUnit(ks.Unit); u != wad.Unit {
			return 0, fmt.Errorf("proof keyset %s is in unit %s, not the wad unit %s", p.ID, u, wad.Unit)
		}
	}
	total, err := wad.Amount()
	if err != nil {
		return 0, err
	}
	fee, err := sess.InputFee(wad.Proofs)
	if err != nil {
		return 0, err
	}
	if total <= fee {
		return 0, fmt.Errorf("wad amount %d does not cover the input fee %d", total, fee)
	}
	amt := total - fee

	fresh, err := w.swap(ctx, secrets, sess, nodeID, wad.Unit, wad.Proofs, []uint64{amt})
	if err != nil {
		return 0, err
	}
	rec := &db.WadRecord{
		Direction: db.WadInbound,
		NodeID:    nodeID,
		NodeURL:   sess.URL(),
		Unit:      wad.Unit,
		Memo:      wad.Memo,
		Amount:    amt,
		ProofIDs:  proofYs(fresh[0]),
	}
	// The inputs are spent at the mint, so the caller's cancellation must not
	// stop the fresh proofs from being stored.
	err = w.pool.With(context.WithoutCancel(ctx), func(conn db.DB) error {
		return conn.CreditInbound(rec, fresh[0])
	})
	if err != nil {
		return 0, fmt.Errorf("swapped at %s but failed to store %d fresh proofs: %w",
			sess.URL(), len(fresh[0]), err)
	}
	log.Debugf("Credited %d %s from %d proofs at node %d", amt, wad.Unit, len(wad.Proofs), nodeID)
	return amt, nil
}

// swap exchanges the inputs for fresh proofs at the mint. One group of fresh
// proofs is returned for each of the targets, each group summing to its
// target. Nothing is written to the ledger except the counter reservation.
func (w *Wallet) swap(ctx context.Context, secrets *Secrets, sess Session, nodeID uint32,
	unit cashu.Unit, inputs cashu.Proofs, targets []uint64) ([][]*db.Proof, error) {

	ksInfo, err := sess.ActiveKeyset(unit)
	if err != nil {
		return nil, err
	}
	keys, err := sess.Keys(ctx, ksInfo.ID)
	if err != nil {
		return nil, err
	}
	denoms := keys.Amounts()

	var amounts []uint64
	groupSizes := make([]int, len(targets))
	for i, t := range targets {
		split, err := cashu.SplitAmountWith(t, denoms)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, split...)
		groupSizes[i] = len(split)
	}
	if len(amounts) > cashu.MaxOutputs {
		return nil, fmt.Errorf("swap needs %d outputs, more than the %d allowed", len(amounts), cashu.MaxOutputs)
	}

	var first uint32
	err = w.pool.With(ctx, func(conn db.DB) (err error) {
		// The keyset may be newer than the node registration.
		err = conn.StoreKeysets(nodeID, []*db.Keyset{{
			ID:          ksInfo.ID,
			Unit:        unit,
			Active:      ksInfo.Active,
			InputFeePPK: ksInfo.InputFeePPK,
		}})
		if err != nil {
			return err
		}
		first, err = conn.ReserveCounter(ksInfo.ID, uint32(len(amounts)))
		return err
	})
	if err != nil {
		return nil, err
	}

	pms, err := secrets.outputs(ksInfo.ID, first, amounts)
	if err != nil {
		return nil, err
	}
	msgs := make([]*cashu.BlindedMessage, len(pms))
	for i, pm := range pms {
		msgs[i] = pm.msg
	}

	sigs, err := sess.Swap(ctx, inputs, msgs)
	if err != nil {
		return nil, err
	}

	proofs := make([]*db.Proof, len(sigs))
	for i, sig := range sigs {
		K, found := keys.Keys[sig.Amount]
		if !found {
			return nil, fmt.Errorf("no mint key for amount %d", sig.Amount)
		}
		C_, err := secp256k1.ParsePubKey(sig.C_)
		if err != nil {
			return nil, fmt.Errorf("invalid signature from mint: %w", err)
		}
		C, err := bdhke.UnblindSignature(C_, pms[i].r, K)
		if err != nil {
			return nil, err
		}
		y, err := bdhke.ProofY(pms[i].secret)
		if err != nil {
			return nil, err
		}
		proofs[i] = &db.Proof{
			Proof: cashu.Proof{
				Amount: sig.Amount,
				ID:     sig.ID,
				Secret: pms[i].secret,
				C:      C.SerializeCompressed(),
			},
			Y:      y,
			NodeID: nodeID,
			Unit:   unit,
		}
	}

	groups := make([][]*db.Proof, len(targets))
	var start int
	for i, n := range groupSizes {
		groups[i] = proofs[start : start+n]
		start += n
	}
	return groups, nil
}

func proofYs(proofs []*db.Proof) []string {
	ys := make([]string, len(proofs))
	for i, p := range proofs {
		ys[i] = p.Y
	}
	return ys
}
