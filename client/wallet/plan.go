// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/client/db"
)

// ErrNoFunds is returned by PlanSpending when no node holds any of the unit.
var ErrNoFunds = errors.New("no node holds funds in the unit")

// InsufficientFundsError is returned by PlanSpending when the nodes together
// hold less than the requested amount. NodeID is the last node drawn from.
type InsufficientFundsError struct {
	NodeID    uint32
	Unit      cashu.Unit
	Requested uint64
	Available uint64
}

// Error satisfies the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("requested %d %s but only %d available, node %d exhausted",
		e.Requested, e.Unit, e.Available, e.NodeID)
}

// PlanEntry is the amount to draw from one node.
type PlanEntry struct {
	NodeID uint32
	Amount uint64
}

// PlanSpending splits the amount across the nodes holding the unit, drawing
// from the largest balances first. Ties go to the lower node id. Entries sum
// to the amount and none exceeds its node's balance.
func (w *Wallet) PlanSpending(ctx context.Context, amount uint64, unit cashu.Unit, exclude []uint32) ([]*PlanEntry, error) {
	if amount == 0 {
		return nil, errors.New("cannot plan spending of zero")
	}
	var bals []*db.Balance
	err := w.pool.With(ctx, func(conn db.DB) (err error) {
		bals, err = conn.Balances()
		return err
	})
	if err != nil {
		return nil, err
	}
	return planSpending(bals, amount, unit, exclude)
}

func planSpending(bals []*db.Balance, amount uint64, unit cashu.Unit, exclude []uint32) ([]*PlanEntry, error) {
	excluded := make(map[uint32]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	candidates := make([]*db.Balance, 0, len(bals))
	for _, b := range bals {
		if b.Unit == unit && b.Amount > 0 && !excluded[b.NodeID] {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFunds, unit)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Amount == candidates[j].Amount {
			return candidates[i].NodeID < candidates[j].NodeID
		}
		return candidates[i].Amount > candidates[j].Amount
	})

	var plan []*PlanEntry
	remain := amount
	for _, b := range candidates {
		draw := min(b.Amount, remain)
		plan = append(plan, &PlanEntry{NodeID: b.NodeID, Amount: draw})
		remain -= draw
		if remain == 0 {
			return plan, nil
		}
	}
	return nil, &InsufficientFundsError{
		NodeID:    candidates[len(candidates)-1].NodeID,
		Unit:      unit,
		Requested: amount,
		Available: amount - remain,
	}
}
