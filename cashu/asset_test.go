// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

import (
	"errors"
	"testing"
)

func TestParseAsset(t *testing.T) {
	for _, s := range []string{"BTC", "btc", " Eth ", "STRK", "usdc", "USDT"} {
		if _, err := ParseAsset(s); err != nil {
			t.Fatalf("error parsing %q: %v", s, err)
		}
	}
	_, err := ParseAsset("DOGE")
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("wrong error for unknown asset: %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		asset   Asset
		amt     string
		want    uint64
		wantErr bool
	}{
		{"btc scenario", BTC, "0.0005", 50000, false},
		{"one btc", BTC, "1", 100_000_000, false},
		{"trailing zeros", BTC, "0.000500000", 50000, false},
		{"strk", STRK, "42.35", 42_350_000, false},
		{"eth", ETH, "0.000000001", 1, false},
		{"usdc", USDC, "12", 12_000_000, false},
		{"too precise", BTC, "0.000000001", 0, true},
		{"zero", BTC, "0", 0, true},
		{"negative", USDT, "-1", 0, true},
		{"garbage", USDT, "ten", 0, true},
		{"empty", USDT, "", 0, true},
		{"overflow", ETH, "18446744073.709551616", 0, true},
		{"max", ETH, "18446744073.709551615", 18446744073709551615, false},
	}
	for _, tt := range tests {
		got, err := tt.asset.ParseAmount(tt.amt, tt.asset.BestUnit())
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%s: expected ErrInvalidAmount, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: wanted %d, got %d", tt.name, tt.want, got)
		}
	}

	if _, err := BTC.ParseAmount("1", Gwei); err == nil {
		t.Fatalf("no error for a unit of another asset")
	}
	if _, err := BTC.ParseAmount("1", ParseUnit("xyz")); err == nil {
		t.Fatalf("no error for passthrough unit")
	}
}

func TestFormatAmount(t *testing.T) {
	if s := FormatAmount(50000, Satoshi); s != "0.0005" {
		t.Fatalf("wrong formatted amount %s", s)
	}
	if s := FormatAmount(7, ParseUnit("points")); s != "7" {
		t.Fatalf("wrong formatted amount %s", s)
	}
}
