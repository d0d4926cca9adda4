// Package guestio defines the byte stream the host writes for the guest
// program and the strict reader the guest uses to consume it.
//
// Layout (version 1), all integers little endian:
//
//	u32 id
//	u32 len | utf8 userAddress
//	u32 len | utf8 createdAt
//	u32 collateralAmount (sats)
//	u32 debtAmount
//	u32 btcPriceUsdCents
//
// This is the borsh encoding of Input. Changing field order or width is a
// protocol change and must bump LayoutVersion.
package guestio

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/near/borsh-go"
)

const (
	LayoutVersion = 1

	MaxStringBytes = 256

	// DefaultMinBtcPriceUsdCents rejects prices that look like whole dollars.
	DefaultMinBtcPriceUsdCents uint32 = 100_000
)

var (
	ErrEncoding       = errors.New("encoding error")
	ErrTruncatedInput = errors.New("truncated guest input")
	ErrMalformedInput = errors.New("malformed guest input")
)

// Input is the guest input record. Field order is the wire order.
type Input struct {
	ID               uint32
	UserAddress      string
	CreatedAt        string
	CollateralAmount uint32
	DebtAmount       uint32
	BtcPriceUsdCents uint32
}

type Encoder struct {
	MaxStringBytes      int
	MinBtcPriceUsdCents uint32
}

func NewEncoder() Encoder {
	return Encoder{
		MaxStringBytes:      MaxStringBytes,
		MinBtcPriceUsdCents: DefaultMinBtcPriceUsdCents,
	}
}

// Encode validates with the default encoder limits and serializes in.
func Encode(in Input) ([]byte, error) {
	return NewEncoder().Encode(in)
}

func (e Encoder) Encode(in Input) ([]byte, error) {
	if err := e.Validate(in); err != nil {
		return nil, err
	}

	out, err := borsh.Serialize(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return out, nil
}

func (e Encoder) Validate(in Input) error {
	if err := checkString("userAddress", in.UserAddress, e.MaxStringBytes); err != nil {
		return err
	}
	if err := checkString("createdAt", in.CreatedAt, e.MaxStringBytes); err != nil {
		return err
	}
	if in.BtcPriceUsdCents < e.MinBtcPriceUsdCents {
		return fmt.Errorf("%w: btc price %d is below %d cents, is it in whole dollars?",
			ErrEncoding, in.BtcPriceUsdCents, e.MinBtcPriceUsdCents)
	}
	return nil
}

func checkString(field, s string, limit int) error {
	if limit > 0 && len(s) > limit {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrEncoding, field, len(s), limit)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s is not valid utf-8", ErrEncoding, field)
	}
	return nil
}

// Decode reads a whole Input from b using the guest reader rules.
func Decode(b []byte) (Input, error) {
	r := NewReader(b)

	var in Input
	var err error
	if in.ID, err = r.ReadU32(); err != nil {
		return Input{}, err
	}
	if in.UserAddress, err = r.ReadString(); err != nil {
		return Input{}, err
	}
	if in.CreatedAt, err = r.ReadString(); err != nil {
		return Input{}, err
	}
	if in.CollateralAmount, err = r.ReadU32(); err != nil {
		return Input{}, err
	}
	if in.DebtAmount, err = r.ReadU32(); err != nil {
		return Input{}, err
	}
	if in.BtcPriceUsdCents, err = r.ReadU32(); err != nil {
		return Input{}, err
	}

	return in, r.Finish()
}
