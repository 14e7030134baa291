// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package mint

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"decred.org/wadwallet/cashu"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// REST paths, relative to the mint URL.
const (
	InfoPath    = "/v1/info"
	KeysetsPath = "/v1/keysets"
	KeysPath    = "/v1/keys/"
	SwapPath    = "/v1/swap"
)

// Info is the mint's self-description from GET /v1/info.
type Info struct {
	Name        string `json:"name"`
	Pubkey      string `json:"pubkey"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	MOTD        string `json:"motd,omitempty"`
}

// KeysetInfo is an entry of GET /v1/keysets.
type KeysetInfo struct {
	ID          string `json:"id"`
	Unit        string `json:"unit"`
	Active      bool   `json:"active"`
	InputFeePPK uint64 `json:"input_fee_ppk"`
}

// KeysetsResponse is the response to GET /v1/keysets.
type KeysetsResponse struct {
	Keysets []*KeysetInfo `json:"keysets"`
}

// KeysResponse is the response to GET /v1/keys/{id}. The keys map is keyed by
// the decimal amount.
type KeysResponse struct {
	Keysets []*struct {
		ID   string            `json:"id"`
		Unit string            `json:"unit"`
		Keys map[string]string `json:"keys"`
	} `json:"keysets"`
}

// SwapRequest is the body of POST /v1/swap.
type SwapRequest struct {
	Inputs  cashu.Proofs            `json:"inputs"`
	Outputs []*cashu.BlindedMessage `json:"outputs"`
}

// SwapResponse is the response to POST /v1/swap.
type SwapResponse struct {
	Signatures []*cashu.BlindedSignature `json:"signatures"`
}

// Keyset is a keyset's public keys, one per amount.
type Keyset struct {
	ID   string
	Unit cashu.Unit
	Keys map[uint64]*secp256k1.PublicKey
}

// Amounts lists the keyset's denominations in ascending order.
func (ks *Keyset) Amounts() []uint64 {
	amts := make([]uint64, 0, len(ks.Keys))
	for amt := range ks.Keys {
		amts = append(amts, amt)
	}
	sort.Slice(amts, func(i, j int) bool { return amts[i] < amts[j] })
	return amts
}

func parseKeys(id, unit string, keys map[string]string) (*Keyset, error) {
	ks := &Keyset{
		ID:   id,
		Unit: cashu.ParseUnit(unit),
		Keys: make(map[uint64]*secp256k1.PublicKey, len(keys)),
	}
	for amtStr, keyHex := range keys {
		amt, err := strconv.ParseUint(amtStr, 10, 64)
		if err != nil || amt == 0 {
			return nil, fmt.Errorf("keyset %s: bad amount %q", id, amtStr)
		}
		keyB, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("keyset %s: bad key for amount %d: %w", id, amt, err)
		}
		pk, err := secp256k1.ParsePubKey(keyB)
		if err != nil {
			return nil, fmt.Errorf("keyset %s: bad key for amount %d: %w", id, amt, err)
		}
		ks.Keys[amt] = pk
	}
	if len(ks.Keys) == 0 {
		return nil, fmt.Errorf("keyset %s has no keys", id)
	}
	return ks, nil
}
