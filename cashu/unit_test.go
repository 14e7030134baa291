// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

import (
	"encoding/json"
	"testing"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		s        string
		known    bool
		asset    Asset
		decimals uint8
	}{
		{"millistrk", true, STRK, 6},
		{"gwei", true, ETH, 9},
		{"sat", true, BTC, 8},
		{"microusdt", true, USDT, 6},
		{"microusdc", true, USDC, 6},
		{"SAT", false, "", 0},
		{"msat", false, "", 0},
		{"", false, "", 0},
		{"some weird unit ✓", false, "", 0},
	}
	for _, tt := range tests {
		u := ParseUnit(tt.s)
		if u.String() != tt.s {
			t.Fatalf("unit %q did not round trip, got %q", tt.s, u)
		}
		if u.Known() != tt.known {
			t.Fatalf("%q: wanted known = %t", tt.s, tt.known)
		}
		ui, found := u.Info()
		if found != tt.known {
			t.Fatalf("%q: Info found = %t", tt.s, found)
		}
		if !found {
			continue
		}
		if ui.Asset != tt.asset || ui.Decimals != tt.decimals {
			t.Fatalf("%q: wrong info %+v", tt.s, ui)
		}
		if tt.asset.BestUnit() != u {
			t.Fatalf("%q: not the best unit for %s", tt.s, tt.asset)
		}
	}
}

func TestUnitJSON(t *testing.T) {
	for _, u := range []Unit{Satoshi, ParseUnit("bespoke")} {
		b, err := json.Marshal(u)
		if err != nil {
			t.Fatalf("Marshal error: %v", err)
		}
		var reU Unit
		if err := json.Unmarshal(b, &reU); err != nil {
			t.Fatalf("Unmarshal error: %v", err)
		}
		if reU != u {
			t.Fatalf("wanted %q, got %q", u, reU)
		}
	}
}

func TestKnownUnits(t *testing.T) {
	units := KnownUnits()
	if len(units) != 5 {
		t.Fatalf("expected 5 known units, got %d", len(units))
	}
	for i := 1; i < len(units); i++ {
		if units[i-1].Unit >= units[i].Unit {
			t.Fatalf("units not sorted: %s before %s", units[i-1].Unit, units[i].Unit)
		}
	}
	units[0].Decimals = 99
	if ui, _ := units[0].Unit.Info(); ui.Decimals == 99 {
		t.Fatalf("catalog modified through returned info")
	}
}

func TestSplitAmount(t *testing.T) {
	parts := SplitAmount(50000)
	var sum uint64
	for i, p := range parts {
		if p&(p-1) != 0 {
			t.Fatalf("%d is not a power of two", p)
		}
		if i > 0 && p >= parts[i-1] {
			t.Fatalf("not descending")
		}
		sum += p
	}
	if sum != 50000 {
		t.Fatalf("wrong sum %d", sum)
	}
	if len(SplitAmount(0)) != 0 {
		t.Fatalf("zero should split to nothing")
	}

	parts, err := SplitAmountWith(13, []uint64{1, 4})
	if err != nil {
		t.Fatalf("SplitAmountWith error: %v", err)
	}
	if len(parts) != 4 || parts[0] != 4 || parts[3] != 1 {
		t.Fatalf("wrong parts %v", parts)
	}
	if _, err = SplitAmountWith(3, []uint64{2}); err == nil {
		t.Fatalf("no error for inexpressible amount")
	}
	if _, err = SplitAmountWith(MaxOutputs+1, []uint64{1}); err == nil {
		t.Fatalf("no error for too many outputs")
	}
}

func TestProofsAmount(t *testing.T) {
	ps := Proofs{{Amount: 1}, {Amount: 2}, {Amount: 64}}
	amt, err := ps.Amount()
	if err != nil || amt != 67 {
		t.Fatalf("wrong amount %d, %v", amt, err)
	}
	ps = append(ps, &Proof{Amount: ^uint64(0)})
	if _, err = ps.Amount(); err == nil {
		t.Fatalf("no overflow error")
	}
}
