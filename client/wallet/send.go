// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"context"
	"fmt"
	"sort"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/client/db"
)

// SelectOrFetchProofIDs picks unspent proofs at the node summing exactly to
// the amount. If no subset of the held proofs sums to the amount, enough
// proofs are swapped at the mint for an exact send set plus change. A nil
// result with a nil error means the node can't cover the amount.
func (w *Wallet) SelectOrFetchProofIDs(ctx context.Context, secrets *Secrets, sess Session,
	nodeID uint32, amount uint64, unit cashu.Unit) ([]string, error) {

	var unspent []*db.Proof
	err := w.pool.With(ctx, func(conn db.DB) (err error) {
		unspent, err = conn.UnspentProofs(nodeID, unit)
		return err
	})
	if err != nil {
		return nil, err
	}

	if exact := selectExact(unspent, amount); exact != nil {
		return proofYs(exact), nil
	}

	inputs, fee, err := selectCovering(sess, unspent, amount)
	if err != nil || inputs == nil {
		return nil, err
	}
	cashuInputs := make(cashu.Proofs, len(inputs))
	var total uint64
	for i, p := range inputs {
		cashuInputs[i] = &p.Proof
		total += p.Amount
	}
	change := total - fee - amount
	log.Debugf("Swapping %d proofs at node %d for a send of %d %s with %d change",
		len(inputs), nodeID, amount, unit, change)

	groups, err := w.swap(ctx, secrets, sess, nodeID, unit, cashuInputs, []uint64{amount, change})
	if err != nil {
		return nil, err
	}
	fresh := append(append([]*db.Proof{}, groups[0]...), groups[1]...)
	// The inputs are spent at the mint.
	err = w.pool.With(context.WithoutCancel(ctx), func(conn db.DB) error {
		return conn.SwapProofs(nodeID, proofYs(inputs), fresh)
	})
	if err != nil {
		return nil, fmt.Errorf("swapped at %s but failed to store %d fresh proofs: %w",
			sess.URL(), len(fresh), err)
	}
	return proofYs(groups[0]), nil
}

// selectExact looks for proofs summing exactly to the amount, taking the
// largest proofs that fit first. It returns nil if the greedy pass misses.
func selectExact(proofs []*db.Proof, amount uint64) []*db.Proof {
	sorted := make([]*db.Proof, len(proofs))
	copy(sorted, proofs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })
	var picked []*db.Proof
	remain := amount
	for _, p := range sorted {
		if p.Amount == 0 || p.Amount > remain {
			continue
		}
		picked = append(picked, p)
		remain -= p.Amount
		if remain == 0 {
			return picked
		}
	}
	return nil
}

// selectCovering picks the smallest proofs until they cover the amount plus
// the input fee for spending them. It returns nil if all proofs together fall
// short.
func selectCovering(sess Session, proofs []*db.Proof, amount uint64) ([]*db.Proof, uint64, error) {
	sorted := make([]*db.Proof, len(proofs))
	copy(sorted, proofs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount < sorted[j].Amount })
	var picked []*db.Proof
	var cashuPicked cashu.Proofs
	var total uint64
	for _, p := range sorted {
		picked = append(picked, p)
		cashuPicked = append(cashuPicked, &p.Proof)
		total += p.Amount
		if total < amount {
			continue
		}
		fee, err := sess.InputFee(cashuPicked)
		if err != nil {
			return nil, 0, err
		}
		if total >= amount+fee {
			return picked, fee, nil
		}
	}
	return nil, 0, nil
}

// LoadProofs loads the proofs by id, in order.
func (w *Wallet) LoadProofs(ctx context.Context, ids []string) (cashu.Proofs, error) {
	var stored []*db.Proof
	err := w.pool.With(ctx, func(conn db.DB) (err error) {
		stored, err = conn.Proofs(ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	proofs := make(cashu.Proofs, len(stored))
	for i, p := range stored {
		proof := p.Proof
		proofs[i] = &proof
	}
	return proofs, nil
}

// RegisterOutbound records the outbound wad and marks its proofs spent.
func (w *Wallet) RegisterOutbound(ctx context.Context, nodeID uint32, nodeURL string,
	unit cashu.Unit, memo *string, ids []string, amount uint64) error {

	rec := &db.WadRecord{
		Direction: db.WadOutbound,
		NodeID:    nodeID,
		NodeURL:   nodeURL,
		Unit:      unit,
		Memo:      memo,
		Amount:    amount,
		ProofIDs:  ids,
	}
	return w.pool.With(ctx, func(conn db.DB) error {
		return conn.RegisterOutbound(rec)
	})
}
