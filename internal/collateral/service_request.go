package collateral

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"icr-prover/internal/kernel"
	"icr-prover/pkg/utilities/timeutil"
)

// ServiceRequest is the JSON body accepted by the proving endpoint.
type ServiceRequest struct {
	ID               uint32          `json:"id"`
	UserAddress      string          `json:"userAddress" validate:"required,max=256"`
	AmountInBtc      decimal.Decimal `json:"amountInBtc" validate:"gte=0"`
	PriceAtDeposited string          `json:"priceAtDeposited" validate:"max=256"`
	UsbdMinted       string          `json:"usbdMinted" validate:"required,numeric"`
	CollateralRatio  string          `json:"collateralRatio"`
	CreatedAt        string          `json:"createdAt,omitempty" validate:"max=256"`
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// decimal.Decimal is compared as float64 by gte/gt rules
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := val.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Validator{validate: v}
}

// Validate returns field name to message for every failed rule.
func (v *Validator) Validate(req ServiceRequest) map[string]string {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	errs := map[string]string{}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["_global"] = err.Error()
		return errs
	}

	for _, e := range validationErrs {
		msg := "Invalid value"
		switch e.Tag() {
		case "required":
			msg = "This field is required"
		case "max":
			msg = fmt.Sprintf("Must be at most %s characters", e.Param())
		case "gte":
			msg = fmt.Sprintf("Must be at least %s", e.Param())
		case "numeric":
			msg = "Must be a number"
		}
		errs[e.Field()] = msg
	}
	return errs
}

// ToRequest builds the position proven for this service request at the
// given BTC price. createdAt falls back to priceAtDeposited, which is what
// existing clients send in that slot, and then to the current time.
func (s ServiceRequest) ToRequest(btcPriceUsdCents uint32) (Request, error) {
	sats, err := BtcToSats(s.AmountInBtc)
	if err != nil {
		return Request{}, err
	}

	debt, err := ParseDebt(s.UsbdMinted)
	if err != nil {
		return Request{}, err
	}
	if debt == 0 {
		return Request{}, fmt.Errorf("%w: usbdMinted is zero", kernel.ErrDivisionByZero)
	}

	createdAt := s.CreatedAt
	if createdAt == "" {
		createdAt = s.PriceAtDeposited
	}
	if createdAt == "" {
		createdAt = timeutil.NowUTC().RFC3339()
	}

	return Request{
		ID:                   s.ID,
		UserAddress:          s.UserAddress,
		CreatedAt:            createdAt,
		CollateralAmountSats: sats,
		DebtAmount:           debt,
		BtcPriceUsdCents:     btcPriceUsdCents,
	}, nil
}
