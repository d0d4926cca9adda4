package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"icr-prover/internal/fixture"
	"icr-prover/internal/proving"
)

// ProveIcr godoc
// @Summary      Prove a borrower's ICR
// @Description  Prices the position at the current BTC price, proves its ICR and collateral value and returns the proof
// @Tags         Proofs
// @Accept       json
// @Produce      json
// @Param        system  query     string                     false  "groth16 or plonk"
// @Param        body    body      collateral.ServiceRequest  true   "Borrower position"
// @Success      200     {object}  fixture.ProofResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Failure      504     {object}  ErrorResponse
// @Router       /v1/prove_icr [post]
func (h *Handler) ProveIcr(c *gin.Context) {
	system, ok := h.system(c)
	if !ok {
		return
	}
	req, ok := h.bindServiceRequest(c)
	if !ok {
		return
	}

	result, err := h.service.Prove(c.Request.Context(), req, system, "")
	if err != nil {
		body, _ := json.Marshal(req)
		h.service.RecordFailure(proving.NewFailure("", body, err))
		h.respondError(c, err)
		return
	}

	resp, err := fixture.NewProofResponse(result.Artifact)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type ExecutionResponse struct {
	SessionId           string `json:"sessionId"`
	System              string `json:"system"`
	Icr                 uint32 `json:"icr"`
	CollateralAmountUsd uint32 `json:"collateralAmountUsd"`
	PublicValues        string `json:"publicValues"`
	Constraints         int    `json:"constraints"`
}

// ExecuteIcr godoc
// @Summary      Dry run a proof request
// @Description  Runs the guest and checks the constraints without generating a proof
// @Tags         Proofs
// @Accept       json
// @Produce      json
// @Param        system  query     string                     false  "groth16 or plonk"
// @Param        body    body      collateral.ServiceRequest  true   "Borrower position"
// @Success      200     {object}  ExecutionResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /v1/execute_icr [post]
func (h *Handler) ExecuteIcr(c *gin.Context) {
	system, ok := h.system(c)
	if !ok {
		return
	}
	req, ok := h.bindServiceRequest(c)
	if !ok {
		return
	}

	exec, err := h.service.Execute(c.Request.Context(), req, system)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExecutionResponse{
		SessionId:           exec.SessionID,
		System:              exec.System.String(),
		Icr:                 exec.Outputs.Icr,
		CollateralAmountUsd: exec.Outputs.CollateralAmountUsd,
		PublicValues:        hexutil.Encode(exec.PublicValues),
		Constraints:         exec.Constraints,
	})
}
