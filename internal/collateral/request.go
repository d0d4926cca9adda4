// Package collateral holds the borrower position a proof is generated for
// and its conversion from the service and user-record representations.
package collateral

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"icr-prover/internal/guestio"
)

var (
	ErrInvalidRequest  = fmt.Errorf("%w: invalid request", guestio.ErrEncoding)
	ErrValueOutOfRange = fmt.Errorf("%w: value out of u32 range", guestio.ErrEncoding)
)

var satsPerBtc = decimal.New(1, 8)

// Request is one borrower position. It is immutable once built.
type Request struct {
	ID                   uint32 `json:"id"`
	UserAddress          string `json:"userAddress"`
	CreatedAt            string `json:"createdAt"`
	CollateralAmountSats uint32 `json:"collateralAmountSats"`
	DebtAmount           uint32 `json:"debtAmount"`
	BtcPriceUsdCents     uint32 `json:"btcPriceUsdCents"`
}

// GuestInput maps the request onto the guest wire record.
func (r Request) GuestInput() guestio.Input {
	return guestio.Input{
		ID:               r.ID,
		UserAddress:      r.UserAddress,
		CreatedAt:        r.CreatedAt,
		CollateralAmount: r.CollateralAmountSats,
		DebtAmount:       r.DebtAmount,
		BtcPriceUsdCents: r.BtcPriceUsdCents,
	}
}

// BtcToSats converts a BTC amount to satoshis, truncating sub-satoshi
// fractions.
func BtcToSats(amount decimal.Decimal) (uint32, error) {
	sats := amount.Mul(satsPerBtc).Truncate(0)
	return toUint32("collateral sats", sats)
}

// ParseDebt parses the minted stablecoin amount, which must be a whole
// number.
func ParseDebt(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: usbdMinted %q: %v", ErrInvalidRequest, s, err)
	}
	return uint32(v), nil
}

func toUint32(field string, d decimal.Decimal) (uint32, error) {
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(math.MaxUint32)) {
		return 0, fmt.Errorf("%w: %s = %s", ErrValueOutOfRange, field, d.String())
	}
	return uint32(d.IntPart()), nil
}
