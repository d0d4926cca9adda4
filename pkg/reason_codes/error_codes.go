package reasoncodes

type ReasonCode string

const (
	ErrUnmarshal            ReasonCode = "UnmarshalError"
	ErrValidation           ReasonCode = "ValidationError"
	ErrEncoding             ReasonCode = "EncodingError"
	ErrTruncatedInput       ReasonCode = "TruncatedInput"
	ErrDivisionByZero       ReasonCode = "DivisionByZero"
	ErrOutputOverflow       ReasonCode = "OutputOverflow"
	ErrInvalidPublicValues  ReasonCode = "InvalidPublicValues"
	ErrProofGeneration      ReasonCode = "ProvingBackendError"
	ErrVerifyingKeyMismatch ReasonCode = "VerifyingKeyMismatch"
	ErrInvalidProof         ReasonCode = "InvalidProof"
	ErrPriceFeed            ReasonCode = "PriceFeedError"
	ErrPersistence          ReasonCode = "PersistenceError"
	ErrInternal             ReasonCode = "InternalError"
)
