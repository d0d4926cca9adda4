// Package users fetches the borrower records that batch proving runs over.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"icr-prover/internal/collateral"
)

var ErrUsersUnavailable = errors.New("user records unavailable")

// Record mirrors the upstream user API.
type Record struct {
	ID               uint32          `json:"id"`
	UserAddress      string          `json:"user_address"`
	AmountInBtc      decimal.Decimal `json:"amount_in_btc"`
	PriceAtDeposited string          `json:"price_at_deposited"`
	UsbdMinted       string          `json:"usbd_minted"`
	CollateralRatio  string          `json:"collateral_ratio"`
	CreatedAt        string          `json:"created_at"`
}

func (r Record) ServiceRequest() collateral.ServiceRequest {
	return collateral.ServiceRequest{
		ID:               r.ID,
		UserAddress:      r.UserAddress,
		AmountInBtc:      r.AmountInBtc,
		PriceAtDeposited: r.PriceAtDeposited,
		UsbdMinted:       r.UsbdMinted,
		CollateralRatio:  r.CollateralRatio,
		CreatedAt:        r.CreatedAt,
	}
}

func (r Record) ToRequest(btcPriceUsdCents uint32) (collateral.Request, error) {
	return r.ServiceRequest().ToRequest(btcPriceUsdCents)
}

type Source interface {
	Users(ctx context.Context) ([]Record, error)
}

type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (s *HTTPSource) Users(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsersUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: user api returned %s", ErrUsersUnavailable, resp.Status)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsersUnavailable, err)
	}
	return records, nil
}

// MockSource serves fixed sample records for local runs.
type MockSource struct {
	Records []Record
}

func NewMockSource() *MockSource {
	return &MockSource{Records: SampleRecords()}
}

func (m *MockSource) Users(context.Context) ([]Record, error) {
	out := make([]Record, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

func SampleRecords() []Record {
	return []Record{
		{
			ID:               1,
			UserAddress:      "user_btc_address",
			AmountInBtc:      decimal.RequireFromString("0.01"),
			PriceAtDeposited: "2025-05-07T17:57:00Z",
			UsbdMinted:       "300",
			CollateralRatio:  "200",
			CreatedAt:        "2025-05-07T17:57:00Z",
		},
		{
			ID:               2,
			UserAddress:      "tb1qexampleaddress0000000000000000000000",
			AmountInBtc:      decimal.RequireFromString("1"),
			PriceAtDeposited: "2025-05-08T09:12:00Z",
			UsbdMinted:       "300",
			CollateralRatio:  "150",
			CreatedAt:        "2025-05-08T09:12:00Z",
		},
	}
}

// Select returns every record, or only the one at index when index >= 0.
func Select(records []Record, index int) ([]Record, error) {
	if index < 0 {
		return records, nil
	}
	if index >= len(records) {
		return nil, fmt.Errorf("user index %d out of range, %d users available", index, len(records))
	}
	return records[index : index+1], nil
}
