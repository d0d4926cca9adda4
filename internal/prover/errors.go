package prover

import (
	"context"
	"errors"

	"icr-prover/internal/guestio"
	"icr-prover/internal/kernel"
	"icr-prover/internal/publicvalues"
	reasoncodes "icr-prover/pkg/reason_codes"
)

var (
	ErrProvingBackend       = errors.New("proving backend error")
	ErrUnknownProofSystem   = errors.New("unknown proof system")
	ErrVerifyingKeyMismatch = errors.New("verifying key mismatch")
	ErrInvalidProof         = errors.New("proof does not verify")
	ErrInvalidTransition    = errors.New("invalid session transition")
	ErrAbandoned            = errors.New("caller stopped waiting for proof")
)

// ReasonFor maps an error from the pipeline to its reason code.
func ReasonFor(err error) reasoncodes.ReasonCode {
	switch {
	case errors.Is(err, kernel.ErrDivisionByZero):
		return reasoncodes.ErrDivisionByZero
	case errors.Is(err, kernel.ErrOutputOverflow):
		return reasoncodes.ErrOutputOverflow
	case errors.Is(err, guestio.ErrTruncatedInput), errors.Is(err, guestio.ErrMalformedInput):
		return reasoncodes.ErrTruncatedInput
	case errors.Is(err, guestio.ErrEncoding), errors.Is(err, ErrUnknownProofSystem):
		return reasoncodes.ErrEncoding
	case errors.Is(err, publicvalues.ErrInvalidPublicValues):
		return reasoncodes.ErrInvalidPublicValues
	case errors.Is(err, ErrVerifyingKeyMismatch):
		return reasoncodes.ErrVerifyingKeyMismatch
	case errors.Is(err, ErrInvalidProof):
		return reasoncodes.ErrInvalidProof
	case errors.Is(err, ErrProvingBackend), errors.Is(err, ErrAbandoned),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return reasoncodes.ErrProofGeneration
	default:
		return reasoncodes.ErrInternal
	}
}

// IsClientError reports whether err was caused by the request itself, so
// fixing the input and retrying can succeed.
func IsClientError(err error) bool {
	switch ReasonFor(err) {
	case reasoncodes.ErrDivisionByZero,
		reasoncodes.ErrOutputOverflow,
		reasoncodes.ErrTruncatedInput,
		reasoncodes.ErrEncoding:
		return true
	default:
		return false
	}
}
