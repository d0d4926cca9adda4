package proving

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"icr-prover/internal/collateral"
	"icr-prover/internal/pricefeed"
	"icr-prover/internal/prover"
	dtocommon "icr-prover/pkg/dto_common"
	reasoncodes "icr-prover/pkg/reason_codes"
)

var ErrPersistence = errors.New("could not persist proof")

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return collateral.ErrInvalidRequest
}

// ReasonFor extends prover.ReasonFor with the errors raised around the
// pipeline.
func ReasonFor(err error) reasoncodes.ReasonCode {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return reasoncodes.ErrValidation
	case errors.Is(err, pricefeed.ErrPriceUnavailable):
		return reasoncodes.ErrPriceFeed
	case errors.Is(err, ErrPersistence):
		return reasoncodes.ErrPersistence
	default:
		return prover.ReasonFor(err)
	}
}

// IsClientError reports whether retrying the same request cannot succeed.
func IsClientError(err error) bool {
	return ReasonFor(err) == reasoncodes.ErrValidation || prover.IsClientError(err)
}

// NewFailure describes a failed request for the failure queue and table.
func NewFailure(eventId string, body []byte, err error) dtocommon.ZkpProofFailureDto {
	return dtocommon.NewZkpProofFailureFactory(eventId, body).CreateErrorDto(err, ReasonFor(err))
}
