// Package handlers exposes the prover over HTTP.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"icr-prover/internal/collateral"
	"icr-prover/internal/prover"
	"icr-prover/internal/proving"
	"icr-prover/internal/repository"
	dtocommon "icr-prover/pkg/dto_common"
	"icr-prover/pkg/logger"
	reasoncodes "icr-prover/pkg/reason_codes"
)

type ProvingService interface {
	Prove(ctx context.Context, sr collateral.ServiceRequest, system prover.ProofSystem, eventId string) (*proving.Result, error)
	Execute(ctx context.Context, sr collateral.ServiceRequest, system prover.ProofSystem) (*prover.Execution, error)
	Verify(ctx context.Context, a *prover.Artifact) error
	VerifyingKey(ctx context.Context, system prover.ProofSystem) (proving.VerifyingKeyInfo, error)
	ExportVerifier(ctx context.Context, system prover.ProofSystem, w io.Writer) error
	RecordFailure(dto dtocommon.ZkpProofFailureDto)
}

type Handler struct {
	service       ProvingService
	proofs        repository.ProofRepository
	defaultSystem prover.ProofSystem
	logger        *logger.Logger
}

// NewHandler builds the handler. proofs may be nil, in which case proof
// history is not served.
func NewHandler(service ProvingService, proofs repository.ProofRepository, defaultSystem prover.ProofSystem, l *logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}
	return &Handler{
		service:       service,
		proofs:        proofs,
		defaultSystem: defaultSystem,
		logger:        l,
	}
}

type ErrorResponse struct {
	Error      string                 `json:"error"`
	ReasonCode reasoncodes.ReasonCode `json:"reason_code,omitempty"`
	Fields     map[string]string      `json:"fields,omitempty"`
}

// system reads the optional ?system= query parameter.
func (h *Handler) system(c *gin.Context) (prover.ProofSystem, bool) {
	raw := c.Query("system")
	if raw == "" {
		return h.defaultSystem, true
	}
	system, err := prover.ParseProofSystem(raw)
	if err != nil {
		h.respondError(c, err)
		return "", false
	}
	return system, true
}

func (h *Handler) pathSystem(c *gin.Context) (prover.ProofSystem, bool) {
	system, err := prover.ParseProofSystem(c.Param("system"))
	if err != nil {
		h.respondError(c, err)
		return "", false
	}
	return system, true
}

func (h *Handler) bindServiceRequest(c *gin.Context) (collateral.ServiceRequest, bool) {
	var req collateral.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON", ReasonCode: reasoncodes.ErrUnmarshal})
		return req, false
	}
	return req, true
}

// respondError maps err to a status. Server side failures get a generic
// message; the detail only goes to the log.
func (h *Handler) respondError(c *gin.Context, err error) {
	reason := proving.ReasonFor(err)

	var validationErr *proving.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:      "Invalid request",
			ReasonCode: reason,
			Fields:     validationErr.Fields,
		})
	case proving.IsClientError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), ReasonCode: reason})
	case errors.Is(err, prover.ErrVerifyingKeyMismatch),
		errors.Is(err, prover.ErrInvalidProof):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), ReasonCode: reason})
	case errors.Is(err, prover.ErrAbandoned):
		h.logger.Error(err, "Proof request timed out")
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "Proof generation timed out", ReasonCode: reason})
	default:
		h.logger.Error(err, "Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", ReasonCode: reason})
	}
}
