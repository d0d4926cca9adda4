package collateral

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icr-prover/internal/guestio"
	"icr-prover/internal/kernel"
)

func TestBtcToSats(t *testing.T) {
	tests := []struct {
		amount string
		want   uint32
	}{
		{"0", 0},
		{"0.01", 1_000_000},
		{"1", 100_000_000},
		{"0.123456789", 12_345_678},
		{"42.94967295", 4_294_967_295},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := BtcToSats(decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBtcToSatsOutOfRange(t *testing.T) {
	for _, amount := range []string{"42.94967296", "-0.5", "1000"} {
		_, err := BtcToSats(decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, ErrValueOutOfRange, amount)
		assert.ErrorIs(t, err, guestio.ErrEncoding, amount)
	}
}

func TestParseDebt(t *testing.T) {
	got, err := ParseDebt(" 300 ")
	require.NoError(t, err)
	assert.Equal(t, uint32(300), got)

	for _, bad := range []string{"", "1.5", "-1", "4294967296", "abc"} {
		_, err := ParseDebt(bad)
		assert.ErrorIs(t, err, ErrInvalidRequest, bad)
	}
}

func TestServiceRequestFromJSON(t *testing.T) {
	body := `{
		"id": 1,
		"userAddress": "abc",
		"amountInBtc": 0.01,
		"priceAtDeposited": "2024-01-01",
		"usbdMinted": "300",
		"collateralRatio": "150"
	}`

	var sr ServiceRequest
	require.NoError(t, json.Unmarshal([]byte(body), &sr))
	assert.Empty(t, NewValidator().Validate(sr))

	req, err := sr.ToRequest(6_000_000)
	require.NoError(t, err)
	assert.Equal(t, Request{
		ID:                   1,
		UserAddress:          "abc",
		CreatedAt:            "2024-01-01",
		CollateralAmountSats: 1_000_000,
		DebtAmount:           300,
		BtcPriceUsdCents:     6_000_000,
	}, req)
}

func TestServiceRequestPrefersCreatedAt(t *testing.T) {
	sr := ServiceRequest{
		UserAddress:      "abc",
		AmountInBtc:      decimal.NewFromInt(1),
		PriceAtDeposited: "60000",
		UsbdMinted:       "10",
		CreatedAt:        "2025-01-01T00:00:00Z",
	}

	req, err := sr.ToRequest(6_000_000)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z", req.CreatedAt)
}

func TestServiceRequestRejectsZeroDebt(t *testing.T) {
	sr := ServiceRequest{UserAddress: "abc", AmountInBtc: decimal.NewFromInt(1), UsbdMinted: "0"}

	_, err := sr.ToRequest(6_000_000)
	assert.ErrorIs(t, err, kernel.ErrDivisionByZero)
}

func TestValidatorReportsFields(t *testing.T) {
	sr := ServiceRequest{
		AmountInBtc: decimal.NewFromFloat(-1),
		UsbdMinted:  "lots",
	}

	errs := NewValidator().Validate(sr)
	assert.Equal(t, "This field is required", errs["userAddress"])
	assert.Contains(t, errs, "amountInBtc")
	assert.Equal(t, "Must be a number", errs["usbdMinted"])
}

func TestGuestInputKeepsFieldOrder(t *testing.T) {
	req := Request{ID: 9, UserAddress: "a", CreatedAt: "b", CollateralAmountSats: 1, DebtAmount: 2, BtcPriceUsdCents: 3}

	assert.Equal(t, guestio.Input{
		ID:               9,
		UserAddress:      "a",
		CreatedAt:        "b",
		CollateralAmount: 1,
		DebtAmount:       2,
		BtcPriceUsdCents: 3,
	}, req.GuestInput())
}

func TestServiceRequestCreatedAtFallsBackToNow(t *testing.T) {
	sr := ServiceRequest{UserAddress: "abc", AmountInBtc: decimal.NewFromInt(1), UsbdMinted: "10"}

	req, err := sr.ToRequest(6_000_000)
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, req.CreatedAt)
	assert.NoError(t, err)
}
