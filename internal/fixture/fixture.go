// Package fixture packages a proof with its request metadata for EVM
// consumers and for the HTTP response.
package fixture

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"icr-prover/internal/collateral"
	"icr-prover/internal/prover"
	"icr-prover/internal/publicvalues"
)

// Fixture is one proved request. liquidationThreshold and realTimeLtv are
// not committed by the guest and are always zero.
type Fixture struct {
	UserID               uint32 `json:"userId"`
	UserAddress          string `json:"userAddress"`
	Icr                  uint32 `json:"icr"`
	CollateralAmount     uint32 `json:"collateralAmount"`
	LiquidationThreshold uint32 `json:"liquidationThreshold"`
	RealTimeLtv          uint32 `json:"realTimeLtv"`
	Vkey                 string `json:"vkey"`
	PublicValues         string `json:"publicValues"`
	Proof                string `json:"proof"`
	ProofSystem          string `json:"proofSystem"`
	PublicValuesAbi      string `json:"publicValuesAbi"`
}

// Build assembles the fixture from the decoded artifact outputs.
func Build(req collateral.Request, a *prover.Artifact) (Fixture, error) {
	outputs, err := a.Outputs()
	if err != nil {
		return Fixture{}, err
	}
	abiValues, err := publicvalues.EncodeABI(outputs)
	if err != nil {
		return Fixture{}, fmt.Errorf("abi encode public values: %w", err)
	}

	return Fixture{
		UserID:           req.ID,
		UserAddress:      req.UserAddress,
		Icr:              outputs.Icr,
		CollateralAmount: outputs.CollateralAmountUsd,
		Vkey:             a.VerifyingKeyID,
		PublicValues:     hexutil.Encode(a.PublicValues),
		Proof:            hexutil.Encode(a.Proof),
		ProofSystem:      a.System.String(),
		PublicValuesAbi:  hexutil.Encode(abiValues),
	}, nil
}

// Artifact restores the proof artifact carried by the fixture.
func (f Fixture) Artifact() (*prover.Artifact, error) {
	system, err := prover.ParseProofSystem(f.ProofSystem)
	if err != nil {
		return nil, err
	}
	proof, err := hexutil.Decode(f.Proof)
	if err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	publicValues, err := hexutil.Decode(f.PublicValues)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", publicvalues.ErrInvalidPublicValues, err)
	}

	return &prover.Artifact{
		Proof:          proof,
		PublicValues:   publicValues,
		VerifyingKeyID: f.Vkey,
		System:         system,
	}, nil
}

// ProofResponse is the body returned by the proving endpoint.
type ProofResponse struct {
	Proof               string `json:"proof"`
	Icr                 uint32 `json:"icr"`
	CollateralAmountUsd uint32 `json:"collateralAmountUsd"`
	Vkey                string `json:"vkey"`
}

func NewProofResponse(a *prover.Artifact) (ProofResponse, error) {
	outputs, err := a.Outputs()
	if err != nil {
		return ProofResponse{}, err
	}

	return ProofResponse{
		Proof:               hex.EncodeToString(a.Proof),
		Icr:                 outputs.Icr,
		CollateralAmountUsd: outputs.CollateralAmountUsd,
		Vkey:                a.VerifyingKeyID,
	}, nil
}
