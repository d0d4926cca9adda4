// Package publicvalues is the committed output layout shared by the guest
// and the host decoder: icr then collateral_usd, each a little endian u32.
// Bytes past Size are reserved for future fields and ignored.
package publicvalues

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	Size = 8

	LabelIcr           = "icr"
	LabelCollateralUsd = "collateral_usd"
)

var ErrInvalidPublicValues = errors.New("invalid public values")

// Labels lists the committed fields in layout order.
var Labels = []string{LabelIcr, LabelCollateralUsd}

type Outputs struct {
	Icr                 uint32 `json:"icr"`
	CollateralAmountUsd uint32 `json:"collateralAmountUsd"`
}

func Encode(o Outputs) []byte {
	out := make([]byte, Size)
	binary.LittleEndian.PutUint32(out[0:4], o.Icr)
	binary.LittleEndian.PutUint32(out[4:8], o.CollateralAmountUsd)
	return out
}

func Decode(b []byte) (Outputs, error) {
	if len(b) < Size {
		return Outputs{}, fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidPublicValues, len(b), Size)
	}

	return Outputs{
		Icr:                 binary.LittleEndian.Uint32(b[0:4]),
		CollateralAmountUsd: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

var abiArguments = func() abi.Arguments {
	u32, err := abi.NewType("uint32", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: LabelIcr, Type: u32},
		{Name: LabelCollateralUsd, Type: u32},
	}
}()

// EncodeABI packs the outputs as the Solidity tuple (uint32 icr, uint32
// collateral_usd), the form verifier contracts decode with abi.decode.
func EncodeABI(o Outputs) ([]byte, error) {
	return abiArguments.Pack(o.Icr, o.CollateralAmountUsd)
}

// DecodeABI is the inverse of EncodeABI.
func DecodeABI(b []byte) (Outputs, error) {
	values, err := abiArguments.Unpack(b)
	if err != nil {
		return Outputs{}, fmt.Errorf("%w: %v", ErrInvalidPublicValues, err)
	}
	if len(values) != len(abiArguments) {
		return Outputs{}, fmt.Errorf("%w: got %d abi values", ErrInvalidPublicValues, len(values))
	}

	icr, ok1 := values[0].(uint32)
	usd, ok2 := values[1].(uint32)
	if !ok1 || !ok2 {
		return Outputs{}, fmt.Errorf("%w: unexpected abi value types", ErrInvalidPublicValues)
	}
	return Outputs{Icr: icr, CollateralAmountUsd: usd}, nil
}
