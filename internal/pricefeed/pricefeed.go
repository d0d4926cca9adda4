// Package pricefeed fetches the BTC price in USD cents, the single price
// unit used everywhere in the prover.
package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"icr-prover/pkg/logger"
)

// DefaultFallbackCents is used when the feed cannot be reached ($62,000).
const DefaultFallbackCents uint32 = 6_200_000

var ErrPriceUnavailable = errors.New("btc price unavailable")

type Feed interface {
	BtcPriceUsdCents(ctx context.Context) (uint32, error)
}

type Format string

const (
	// {"bitcoin":{"usd":62000.5}}
	FormatCoinGecko Format = "coingecko"
	// {"bpi":{"USD":{"rate_float":62000.5}}}
	FormatCoinDesk Format = "coindesk"
)

type HTTPFeed struct {
	URL    string
	Format Format
	Client *http.Client
}

func NewHTTPFeed(url string, format Format) *HTTPFeed {
	return &HTTPFeed{
		URL:    url,
		Format: format,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPFeed) BtcPriceUsdCents(ctx context.Context) (uint32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: price feed returned %s", ErrPriceUnavailable, resp.Status)
	}

	usd, err := f.decode(resp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	return UsdToCents(usd)
}

func (f *HTTPFeed) decode(resp *http.Response) (decimal.Decimal, error) {
	switch f.Format {
	case FormatCoinDesk:
		var body struct {
			Bpi struct {
				USD struct {
					RateFloat decimal.Decimal `json:"rate_float"`
				} `json:"USD"`
			} `json:"bpi"`
		}
		err := json.NewDecoder(resp.Body).Decode(&body)
		return body.Bpi.USD.RateFloat, err
	default:
		var body struct {
			Bitcoin struct {
				USD decimal.Decimal `json:"usd"`
			} `json:"bitcoin"`
		}
		err := json.NewDecoder(resp.Body).Decode(&body)
		return body.Bitcoin.USD, err
	}
}

// UsdToCents converts a dollar price to whole cents, truncating fractions
// of a cent.
func UsdToCents(usd decimal.Decimal) (uint32, error) {
	cents := usd.Shift(2).Truncate(0)
	if !cents.IsPositive() || cents.GreaterThan(decimal.NewFromInt(math.MaxUint32)) {
		return 0, fmt.Errorf("%w: price %s USD out of range", ErrPriceUnavailable, usd.String())
	}
	return uint32(cents.IntPart()), nil
}

// StaticFeed always returns the same price.
type StaticFeed uint32

func (s StaticFeed) BtcPriceUsdCents(context.Context) (uint32, error) {
	return uint32(s), nil
}

// FallbackFeed returns FallbackCents whenever the wrapped feed fails.
type FallbackFeed struct {
	Feed          Feed
	FallbackCents uint32
	Logger        *logger.Logger
}

func (f *FallbackFeed) BtcPriceUsdCents(ctx context.Context) (uint32, error) {
	price, err := f.Feed.BtcPriceUsdCents(ctx)
	if err == nil {
		return price, nil
	}

	if f.Logger != nil {
		f.Logger.Errorf(err, "Price feed failed, using fallback of %d cents", f.FallbackCents)
	}
	return f.FallbackCents, nil
}
