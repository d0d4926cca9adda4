// Package kernel holds the collateral computation that runs inside the guest.
// It is pure integer arithmetic so host and guest agree bit for bit.
package kernel

import (
	"errors"
	"math"
)

const (
	// PercentScale turns the collateral/debt ratio into a percentage.
	PercentScale = 100
	// SatsPerBtc converts satoshi collateral times a per-BTC price into the
	// price unit (USD cents).
	SatsPerBtc = 100_000_000
)

var (
	ErrDivisionByZero = errors.New("debt amount is zero")
	ErrOutputOverflow = errors.New("result does not fit in uint32")
)

// Compute returns the initial collateral ratio in percent and the collateral
// value, both truncated toward zero.
//
//	icr = collateral * 100 / debt
//	usd = collateral * price / 1e8
func Compute(collateralAmount, debtAmount, btcPriceUsdCents uint32) (icr uint32, collateralUsd uint32, err error) {
	if debtAmount == 0 {
		return 0, 0, ErrDivisionByZero
	}

	// uint32*uint32 fits in uint64, so neither product can wrap
	ratio := uint64(collateralAmount) * PercentScale / uint64(debtAmount)
	value := uint64(collateralAmount) * uint64(btcPriceUsdCents) / SatsPerBtc

	if ratio > math.MaxUint32 || value > math.MaxUint32 {
		return 0, 0, ErrOutputOverflow
	}

	return uint32(ratio), uint32(value), nil
}
