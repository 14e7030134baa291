// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package core converts between the wallet's ledger balance and wads, the
// portable bundles of ecash proofs exchanged out of band.
package core

import (
	"context"
	"errors"
	"fmt"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/token"
	"decred.org/wadwallet/client/db"
	"decred.org/wadwallet/client/db/pool"
	"decred.org/wadwallet/client/wallet"
)

// SeedSource provides the wallet seed. *wallet.SeedManager satisfies
// SeedSource.
type SeedSource interface {
	Secrets(ctx context.Context) (*wallet.Secrets, error)
	Mnemonic(ctx context.Context) (string, error)
}

var _ SeedSource = (*wallet.SeedManager)(nil)

// Config is the configuration for the Core.
type Config struct {
	// Pool hands out ledger connections.
	Pool *pool.Pool
	// Seeds provides the wallet seed.
	Seeds SeedSource
	// Connector opens mint sessions.
	Connector wallet.Connector
}

// Core is the wallet orchestrator. It holds no mutable state of its own and
// is safe for concurrent use. Conflicting ledger writes are resolved by the
// ledger.
type Core struct {
	pool      *pool.Pool
	wallet    *wallet.Wallet
	seeds     SeedSource
	connector wallet.Connector
}

// New is the constructor for a new Core.
func New(cfg *Config) (*Core, error) {
	if cfg.Pool == nil {
		return nil, errors.New("no connection pool")
	}
	if cfg.Seeds == nil {
		return nil, errors.New("no seed source")
	}
	if cfg.Connector == nil {
		return nil, errors.New("no mint connector")
	}
	return &Core{
		pool:      cfg.Pool,
		wallet:    wallet.New(cfg.Pool),
		seeds:     cfg.Seeds,
		connector: cfg.Connector,
	}, nil
}

// Balances is the non-zero balance of every unit at every registered mint.
// Mints are ordered by node id and units by name.
func (c *Core) Balances(ctx context.Context) ([]*MintBalances, error) {
	var bals []*db.Balance
	err := c.pool.With(ctx, func(conn db.DB) (err error) {
		bals, err = conn.Balances()
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}

	mintBals := make([]*MintBalances, 0)
	var last uint32
	for _, b := range bals {
		if b.Amount == 0 {
			continue
		}
		if len(mintBals) == 0 || b.NodeID != last {
			mintBals = append(mintBals, &MintBalances{URL: b.URL})
			last = b.NodeID
		}
		mb := mintBals[len(mintBals)-1]
		mb.Balances = append(mb.Balances, &Balance{Unit: b.Unit, Amount: b.Amount})
	}
	return mintBals, nil
}

// ReceiveWads swaps the proofs of every wad in the bundle for fresh ones at
// their mints and credits them to the ledger. The wads are received one at a
// time, in order. The first failure aborts the rest. Wads received before the
// failure stay credited, but no receipts are returned, so a failed bundle
// must not be resubmitted whole.
func (c *Core) ReceiveWads(ctx context.Context, wads string) ([]*WadReceptionInfo, error) {
	bundle, err := token.ParseBundle(wads)
	if err != nil {
		return nil, codedError(WadsParamErr, err)
	}
	receipts := make([]*WadReceptionInfo, 0, len(bundle))
	if len(bundle) == 0 {
		return receipts, nil
	}

	secrets, err := c.seeds.Secrets(ctx)
	if err != nil {
		return nil, stepError(SeedPhraseErr, err)
	}

	for i, wad := range bundle {
		sess, err := c.connector.Connect(ctx, wad.MintURL)
		if err != nil {
			return nil, newError(ConnectNodeErr, "wad %d: %w", i, err)
		}
		nodeID, err := c.wallet.RegisterNode(ctx, sess)
		if err != nil {
			return nil, stepError(RegisterNodeErr, fmt.Errorf("wad %d: %w", i, err))
		}
		amt, err := c.wallet.ExchangeAndCredit(ctx, secrets, sess, nodeID, wad)
		if err != nil {
			return nil, stepError(ReceiveWadErr, fmt.Errorf("wad %d: %w", i, err))
		}
		log.Infof("wad-received: mint_url=%s unit=%s amount=%d", sess.URL(), wad.Unit, amt)
		receipts = append(receipts, &WadReceptionInfo{
			MintURL: sess.URL(),
			Amount:  amt,
			Unit:    wad.Unit,
			Memo:    wad.Memo,
		})
	}
	return receipts, nil
}

// outboundWad is an assembled wad and the ledger ids of its proofs.
type outboundWad struct {
	wad    *token.Wad
	nodeID uint32
	amount uint64
	ids    []string
}

// CreateWads draws the amount of the asset from the registered mints and
// packages it as a bundle with one wad per mint. Every wad is assembled
// before any is recorded, so a failure while assembling leaves the ledger's
// balances untouched. Each mint's wad is then recorded and its proofs marked
// spent in its own ledger transaction.
func (c *Core) CreateWads(ctx context.Context, amount, asset string) (string, error) {
	a, err := cashu.ParseAsset(asset)
	if err != nil {
		return "", codedError(AmountParamErr, err)
	}
	unit := a.BestUnit()
	amt, err := a.ParseAmount(amount, unit)
	if err != nil {
		return "", codedError(AmountParamErr, err)
	}

	plan, err := c.wallet.PlanSpending(ctx, amt, unit, nil)
	if err != nil {
		var fundsErr *wallet.InsufficientFundsError
		if errors.As(err, &fundsErr) {
			log.Debugf("Cannot create wads: %v", err)
			return "", notEnoughFunds(fundsErr.NodeID)
		}
		return "", stepError(PlanSpendingErr, err)
	}

	secrets, err := c.seeds.Secrets(ctx)
	if err != nil {
		return "", stepError(SeedPhraseErr, err)
	}

	outbound := make([]*outboundWad, 0, len(plan))
	for _, entry := range plan {
		var node *db.Node
		err := c.pool.With(ctx, func(conn db.DB) (err error) {
			node, err = conn.Node(entry.NodeID)
			return err
		})
		if err != nil {
			return "", storageError(err)
		}
		sess, err := c.connector.Connect(ctx, node.URL)
		if err != nil {
			return "", newError(ConnectNodeErr, "node %d: %w", node.ID, err)
		}
		ids, err := c.wallet.SelectOrFetchProofIDs(ctx, secrets, sess, node.ID, entry.Amount, unit)
		if err != nil {
			return "", stepError(ReceiveWadErr, fmt.Errorf("node %d: %w", node.ID, err))
		}
		if ids == nil {
			return "", notEnoughFunds(node.ID)
		}
		proofs, err := c.wallet.LoadProofs(ctx, ids)
		if err != nil {
			return "", storageError(err)
		}
		outbound = append(outbound, &outboundWad{
			wad: &token.Wad{
				MintURL: node.URL,
				Unit:    unit,
				Proofs:  proofs,
			},
			nodeID: node.ID,
			amount: entry.Amount,
			ids:    ids,
		})
	}

	wads := make([]*token.Wad, 0, len(outbound))
	for _, ow := range outbound {
		wads = append(wads, ow.wad)
	}
	bundle, err := token.SerializeBundle(wads)
	if err != nil {
		return "", fmt.Errorf("error serializing wads: %w", err)
	}

	for _, ow := range outbound {
		err := c.wallet.RegisterOutbound(ctx, ow.nodeID, ow.wad.MintURL, unit, nil, ow.ids, ow.amount)
		if err != nil {
			return "", storageError(fmt.Errorf("node %d: %w", ow.nodeID, err))
		}
	}
	log.Infof("Created %d wads for %s %s", len(wads), cashu.FormatAmount(amt, unit), a)
	return bundle, nil
}

// History lists the n most recent wads sent or received, newest first. n <= 0
// lists them all.
func (c *Core) History(ctx context.Context, n int) ([]*WadHistoryEntry, error) {
	var recs []*db.WadRecord
	err := c.pool.With(ctx, func(conn db.DB) (err error) {
		recs, err = conn.Wads(n)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	entries := make([]*WadHistoryEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, historyEntry(rec))
	}
	return entries, nil
}

// ExportSeed is the wallet's mnemonic seed phrase.
func (c *Core) ExportSeed(ctx context.Context) (*SeedExport, error) {
	m, err := c.seeds.Mnemonic(ctx)
	if err != nil {
		return nil, stepError(SeedPhraseErr, err)
	}
	return &SeedExport{Mnemonic: m}, nil
}
