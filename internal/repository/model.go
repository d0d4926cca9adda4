package repository

import (
	"time"

	dtocommon "icr-prover/pkg/dto_common"
)

type ProofRecord struct {
	Id                  int    `gorm:"primaryKey;autoIncrement"`
	EventId             string `gorm:"index"`
	UserId              uint32
	UserAddress         string `gorm:"index"`
	ProofSystem         string
	Icr                 uint32
	CollateralAmountUsd uint32
	Vkey                string
	PublicValues        string
	Proof               string
	CreatedAt           time.Time
}

type ProofFailure struct {
	Id          int    `gorm:"primaryKey;autoIncrement"`
	EventId     string `gorm:"index"`
	RequestBody []byte
	Error       string
	ReasonCode  string
	CreatedAt   time.Time
}

func ProofRecordFromDto(dto dtocommon.ProofResultDto) ProofRecord {
	return ProofRecord{
		EventId:             dto.EventId,
		UserId:              dto.UserId,
		UserAddress:         dto.UserAddress,
		ProofSystem:         dto.ProofSystem,
		Icr:                 dto.Icr,
		CollateralAmountUsd: dto.CollateralAmountUsd,
		Vkey:                dto.Vkey,
		PublicValues:        dto.PublicValues,
		Proof:               dto.Proof,
	}
}

func ProofFailureFromDto(dto dtocommon.ZkpProofFailureDto) ProofFailure {
	return ProofFailure{
		EventId:     dto.EventId,
		RequestBody: dto.RequestBody,
		Error:       dto.Error,
		ReasonCode:  string(dto.ReasonCode),
	}
}
