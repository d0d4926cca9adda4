package dtocommon

import (
	reasoncodes "icr-prover/pkg/reason_codes"
)

type ZkpProofDtoFactory interface {
	CreateErrorDto(error, reasoncodes.ReasonCode) ZkpProofFailureDto
}

type zkpProofFailureDtoFactory struct {
	EventId     string
	RequestBody []byte
}

func NewZkpProofFailureFactory(eventId string, requestBody []byte) ZkpProofDtoFactory {
	return zkpProofFailureDtoFactory{
		EventId:     eventId,
		RequestBody: requestBody,
	}
}

func (zpfdf zkpProofFailureDtoFactory) CreateErrorDto(
	err error,
	reasonCode reasoncodes.ReasonCode) ZkpProofFailureDto {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	return ZkpProofFailureDto{
		EventId:     zpfdf.EventId,
		RequestBody: zpfdf.RequestBody,
		Error:       msg,
		ReasonCode:  reasonCode,
	}
}
