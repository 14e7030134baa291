// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

import (
	"sort"
)

// Unit is the denomination proof amounts are counted in. The known units have
// a backing asset and a conversion rate. Any other string is a valid Unit that
// carries no metadata, and it round-trips unchanged.
type Unit string

// Known units.
const (
	MilliStrk Unit = "millistrk"
	Gwei      Unit = "gwei"
	Satoshi   Unit = "sat"
	MicroUsdT Unit = "microusdt"
	MicroUsdC Unit = "microusdc"
)

// UnitInfo describes a known unit.
type UnitInfo struct {
	Unit        Unit   `json:"unit"`
	Description string `json:"description"`
	// BaseToken is the on-chain token the unit represents a fraction of.
	BaseToken string `json:"baseToken"`
	// Asset is the asset whose amounts are expressed in this unit.
	Asset Asset `json:"asset"`
	// Decimals is the base-10 exponent of the conversion rate, i.e. one Unit
	// is 10^-Decimals Asset.
	Decimals uint8 `json:"decimals"`
}

var unitInfos = map[Unit]*UnitInfo{
	MilliStrk: {
		Unit:        MilliStrk,
		Description: "A milli strk",
		BaseToken:   "STRK",
		Asset:       STRK,
		Decimals:    6,
	},
	Gwei: {
		Unit:        Gwei,
		Description: "A gwei",
		BaseToken:   "ETH",
		Asset:       ETH,
		Decimals:    9,
	},
	Satoshi: {
		Unit:        Satoshi,
		Description: "A sat",
		BaseToken:   "WBTC",
		Asset:       BTC,
		Decimals:    8,
	},
	MicroUsdT: {
		Unit:        MicroUsdT,
		Description: "A micro USDT",
		BaseToken:   "USDT",
		Asset:       USDT,
		Decimals:    6,
	},
	MicroUsdC: {
		Unit:        MicroUsdC,
		Description: "A micro USDC",
		BaseToken:   "USDC",
		Asset:       USDC,
		Decimals:    6,
	},
}

// ParseUnit converts the string to a Unit. It never fails. Strings that don't
// exactly match a known unit are kept as an opaque passthrough unit.
func ParseUnit(s string) Unit {
	return Unit(s)
}

// String returns the unit identifier.
func (u Unit) String() string {
	return string(u)
}

// Known is true if the unit is one of the preconfigured units.
func (u Unit) Known() bool {
	_, found := unitInfos[u]
	return found
}

// Info returns the metadata for a known unit. The boolean is false for
// passthrough units, which have no information about their value.
func (u Unit) Info() (*UnitInfo, bool) {
	ui, found := unitInfos[u]
	if !found {
		return nil, false
	}
	uiCopy := *ui
	return &uiCopy, true
}

// KnownUnits lists the preconfigured units sorted by identifier.
func KnownUnits() []*UnitInfo {
	infos := make([]*UnitInfo, 0, len(unitInfos))
	for _, ui := range unitInfos {
		uiCopy := *ui
		infos = append(infos, &uiCopy)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Unit < infos[j].Unit
	})
	return infos
}
