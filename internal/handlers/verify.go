package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"icr-prover/internal/fixture"
	"icr-prover/internal/publicvalues"
	"icr-prover/internal/repository"
	reasoncodes "icr-prover/pkg/reason_codes"
)

type VerifyResponse struct {
	Valid               bool   `json:"valid"`
	Icr                 uint32 `json:"icr"`
	CollateralAmountUsd uint32 `json:"collateralAmountUsd"`
}

// Verify godoc
// @Summary      Verify a proof fixture
// @Description  Checks a fixture's proof against this server's verifying key
// @Tags         Proofs
// @Accept       json
// @Produce      json
// @Param        body  body      fixture.Fixture  true  "Fixture produced by prove_icr or the CLI"
// @Success      200   {object}  VerifyResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /v1/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	var f fixture.Fixture
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON", ReasonCode: reasoncodes.ErrUnmarshal})
		return
	}

	artifact, err := f.Artifact()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), ReasonCode: reasoncodes.ErrEncoding})
		return
	}
	if err := h.service.Verify(c.Request.Context(), artifact); err != nil {
		if errors.Is(err, publicvalues.ErrInvalidPublicValues) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), ReasonCode: reasoncodes.ErrInvalidPublicValues})
			return
		}
		h.respondError(c, err)
		return
	}

	outputs, err := artifact.Outputs()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{
		Valid:               true,
		Icr:                 outputs.Icr,
		CollateralAmountUsd: outputs.CollateralAmountUsd,
	})
}

// VerifyingKey godoc
// @Summary      Verifying key id
// @Description  Returns the verifying key id and image id for a proof system
// @Tags         Keys
// @Produce      json
// @Param        system  path      string  true  "groth16 or plonk"
// @Success      200     {object}  proving.VerifyingKeyInfo
// @Failure      400     {object}  ErrorResponse
// @Router       /v1/vkey/{system} [get]
func (h *Handler) VerifyingKey(c *gin.Context) {
	system, ok := h.pathSystem(c)
	if !ok {
		return
	}

	info, err := h.service.VerifyingKey(c.Request.Context(), system)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Verifier godoc
// @Summary      Solidity verifier
// @Description  Returns a Solidity verifier contract for the current key pair
// @Tags         Keys
// @Produce      plain
// @Param        system  path      string  true  "groth16 or plonk"
// @Success      200     {string}  string
// @Failure      400     {object}  ErrorResponse
// @Router       /v1/verifier/{system} [get]
func (h *Handler) Verifier(c *gin.Context) {
	system, ok := h.pathSystem(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportVerifier(c.Request.Context(), system, &buf); err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// GetProofs godoc
// @Summary      Proof history
// @Description  Lists the proofs recorded for an address, newest first
// @Tags         Proofs
// @Produce      json
// @Param        address  path      string  true  "User address"
// @Success      200      {array}   repository.ProofRecord
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/proofs/{address} [get]
func (h *Handler) GetProofs(c *gin.Context) {
	if h.proofs == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Proof history is not enabled"})
		return
	}

	records, err := h.proofs.FindByUserAddress(c.Param("address"))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error(err, "Could not read proof history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", ReasonCode: reasoncodes.ErrPersistence})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No proofs for address"})
		return
	}
	c.JSON(http.StatusOK, records)
}
