// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Asset is a real-world on-chain asset, as opposed to the Unit used to count
// ecash amounts.
type Asset string

// Supported assets.
const (
	STRK Asset = "STRK"
	ETH  Asset = "ETH"
	BTC  Asset = "BTC"
	USDC Asset = "USDC"
	USDT Asset = "USDT"
)

const (
	// ErrUnknownAsset is returned by ParseAsset for unsupported assets.
	ErrUnknownAsset = ErrorKind("unknown asset")
	// ErrInvalidAmount is returned by ParseAmount for malformed or out of
	// range amounts.
	ErrInvalidAmount = ErrorKind("invalid amount")
)

var bestUnits = map[Asset]Unit{
	STRK: MilliStrk,
	ETH:  Gwei,
	BTC:  Satoshi,
	USDC: MicroUsdC,
	USDT: MicroUsdT,
}

// ParseAsset matches the identifier against the supported assets, ignoring
// case and surrounding whitespace.
func ParseAsset(s string) (Asset, error) {
	a := Asset(strings.ToUpper(strings.TrimSpace(s)))
	if _, found := bestUnits[a]; !found {
		return "", NewError(ErrUnknownAsset, s)
	}
	return a, nil
}

// String returns the asset ticker.
func (a Asset) String() string {
	return string(a)
}

// BestUnit is the unit amounts of the asset are represented in.
func (a Asset) BestUnit() Unit {
	return bestUnits[a]
}

var maxAmount = decimal.NewFromUint64(math.MaxUint64)

// ParseAmount parses a decimal quantity of the asset into an integer count of
// the unit. The unit must be a known unit backing the asset. The amount must
// be positive, must not have more fractional digits than the unit resolves,
// and must fit in a uint64.
func (a Asset) ParseAmount(s string, u Unit) (uint64, error) {
	ui, found := u.Info()
	if !found {
		return 0, NewError(ErrInvalidAmount, fmt.Sprintf("unit %s has no conversion rate", u))
	}
	if ui.Asset != a {
		return 0, NewError(ErrInvalidAmount, fmt.Sprintf("unit %s is not a unit of %s", u, a))
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, NewError(ErrInvalidAmount, fmt.Sprintf("%q is not a decimal number", s))
	}
	if !d.IsPositive() {
		return 0, NewError(ErrInvalidAmount, fmt.Sprintf("%q is not positive", s))
	}
	scaled := d.Shift(int32(ui.Decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, NewError(ErrInvalidAmount, fmt.Sprintf("%q has more than %d decimal places", s, ui.Decimals))
	}
	if scaled.GreaterThan(maxAmount) {
		return 0, NewError(ErrInvalidAmount, fmt.Sprintf("%q is too large", s))
	}
	return scaled.BigInt().Uint64(), nil
}

// FormatAmount formats an integer count of the unit as a decimal quantity of
// its asset. Passthrough units are formatted as plain integers.
func FormatAmount(amt uint64, u Unit) string {
	ui, found := u.Info()
	if !found {
		return decimal.NewFromUint64(amt).String()
	}
	return decimal.NewFromUint64(amt).Shift(-int32(ui.Decimals)).String()
}
