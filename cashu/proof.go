// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"sort"
)

// Proof is a mint-issued bearer token. The secret and the unblinded signature
// C together are redeemable exactly once at the issuing mint.
type Proof struct {
	Amount uint64 `json:"amount"`
	// ID is the hex keyset id of the keyset that signed the proof.
	ID     string `json:"id"`
	Secret string `json:"secret"`
	C      Bytes  `json:"C"`
}

// Proofs is a list of proofs.
type Proofs []*Proof

// Amount sums the proof amounts. The sum fails on overflow.
func (ps Proofs) Amount() (uint64, error) {
	var sum uint64
	for _, p := range ps {
		var carry uint64
		sum, carry = bits.Add64(sum, p.Amount, 0)
		if carry != 0 {
			return 0, fmt.Errorf("proof amounts overflow")
		}
	}
	return sum, nil
}

// BlindedMessage is an output requested from a mint.
type BlindedMessage struct {
	Amount uint64 `json:"amount"`
	ID     string `json:"id"`
	B_     Bytes  `json:"B_"`
}

// BlindedSignature is the mint's signature on a BlindedMessage.
type BlindedSignature struct {
	Amount uint64 `json:"amount"`
	ID     string `json:"id"`
	C_     Bytes  `json:"C_"`
}

// KeysetIDBytes decodes a hex keyset id.
func KeysetIDBytes(id string) ([]byte, error) {
	if len(id) == 0 || len(id)%2 != 0 {
		return nil, fmt.Errorf("invalid keyset id %q", id)
	}
	return hex.DecodeString(id)
}

// MaxOutputs is the most blinded messages a single swap will request.
const MaxOutputs = 1000

// SplitAmount decomposes the amount into powers of two, largest first.
func SplitAmount(amt uint64) []uint64 {
	parts := make([]uint64, 0, bits.OnesCount64(amt))
	for i := 63; i >= 0; i-- {
		if v := uint64(1) << i; amt&v != 0 {
			parts = append(parts, v)
		}
	}
	return parts
}

// SplitAmountWith decomposes the amount using only the denominations
// available, largest first. It fails if the denominations can't express the
// amount.
func SplitAmountWith(amt uint64, denoms []uint64) ([]uint64, error) {
	sorted := make([]uint64, len(denoms))
	copy(sorted, denoms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	var parts []uint64
	remain := amt
	for _, d := range sorted {
		if d == 0 {
			continue
		}
		n := remain / d
		if uint64(len(parts))+n > MaxOutputs {
			return nil, fmt.Errorf("amount %d needs more than %d outputs", amt, MaxOutputs)
		}
		for ; n > 0; n-- {
			parts = append(parts, d)
		}
		remain %= d
	}
	if remain != 0 {
		return nil, fmt.Errorf("amount %d cannot be expressed with denominations %v", amt, denoms)
	}
	return parts, nil
}
