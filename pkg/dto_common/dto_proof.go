package dtocommon

import (
	reasoncodes "icr-prover/pkg/reason_codes"
	"icr-prover/pkg/utilities"
)

type ProofResultDto struct {
	EventId             string `json:"event_id"`
	UserId              uint32 `json:"user_id"`
	UserAddress         string `json:"user_address"`
	ProofSystem         string `json:"proof_system"`
	Icr                 uint32 `json:"icr"`
	CollateralAmountUsd uint32 `json:"collateral_amount_usd"`
	Vkey                string `json:"vkey"`
	PublicValues        string `json:"public_values"`
	Proof               string `json:"proof"`
}

func (pr ProofResultDto) Serialize() ([]byte, error) {
	return utilities.Serialize(pr)
}

type ZkpProofFailureDto struct {
	EventId     string                 `json:"event_id"`
	RequestBody []byte                 `json:"request_body"`
	Error       string                 `json:"error"`
	ReasonCode  reasoncodes.ReasonCode `json:"reason_code"`
}

func (zkpf ZkpProofFailureDto) Serialize() ([]byte, error) {
	return utilities.Serialize(zkpf)
}
