// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/client/db"
)

// Balance is an amount of a unit. The amount is never zero.
type Balance struct {
	Unit   cashu.Unit `json:"unit"`
	Amount uint64     `json:"amount"`
}

// MintBalances are the non-zero balances at one mint. A mint missing from a
// balances list holds nothing.
type MintBalances struct {
	URL      string     `json:"url"`
	Balances []*Balance `json:"balances"`
}

// WadReceptionInfo is the receipt for one received wad.
type WadReceptionInfo struct {
	MintURL string     `json:"mint_url"`
	Amount  uint64     `json:"amount"`
	Unit    cashu.Unit `json:"unit"`
	Memo    *string    `json:"memo"`
}

// WadsReceived is the result of ReceiveWads as served over RPC.
type WadsReceived struct {
	WadsReceived []*WadReceptionInfo `json:"wads_received"`
}

// WadsCreated is the result of CreateWads as served over RPC.
type WadsCreated struct {
	Wads string `json:"wads"`
}

// WadHistoryEntry is a wad sent or received by the wallet.
type WadHistoryEntry struct {
	ID        string     `json:"id"`
	Direction string     `json:"direction"`
	MintURL   string     `json:"mint_url"`
	Unit      cashu.Unit `json:"unit"`
	Amount    uint64     `json:"amount"`
	Memo      *string    `json:"memo"`
	Proofs    int        `json:"proofs"`
	Stamp     int64      `json:"stamp"`
}

func historyEntry(rec *db.WadRecord) *WadHistoryEntry {
	return &WadHistoryEntry{
		ID:        rec.ID.String(),
		Direction: rec.Direction.String(),
		MintURL:   rec.NodeURL,
		Unit:      rec.Unit,
		Amount:    rec.Amount,
		Memo:      rec.Memo,
		Proofs:    len(rec.ProofIDs),
		Stamp:     rec.Stamp.UnixMilli(),
	}
}

// SeedExport is the wallet's mnemonic seed phrase.
type SeedExport struct {
	Mnemonic string `json:"mnemonic"`
}
