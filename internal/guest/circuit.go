package guest

import (
	"github.com/consensys/gnark/frontend"

	"icr-prover/internal/kernel"
)

// ValueBits bounds every circuit value to the u32 range of the wire format.
const ValueBits = 32

// Circuit constrains the kernel relation. Public fields are declared in
// public output order so the public witness lines up with the committed
// bytes.
type Circuit struct {
	CollateralAmount frontend.Variable `gnark:",secret"`
	DebtAmount       frontend.Variable `gnark:",secret"`
	BtcPriceUsdCents frontend.Variable `gnark:",secret"`

	Icr           frontend.Variable `gnark:",public"`
	CollateralUsd frontend.Variable `gnark:",public"`
}

// Define proves icr and usd are the truncated quotients:
//
//	icr*debt <= collateral*100 < icr*debt + debt
//	usd*1e8  <= collateral*price < usd*1e8 + 1e8
func (c *Circuit) Define(api frontend.API) error {
	for _, v := range []frontend.Variable{
		c.CollateralAmount,
		c.DebtAmount,
		c.BtcPriceUsdCents,
		c.Icr,
		c.CollateralUsd,
	} {
		api.ToBinary(v, ValueBits)
	}

	api.AssertIsDifferent(c.DebtAmount, 0)

	scaled := api.Mul(c.CollateralAmount, kernel.PercentScale)
	icrFloor := api.Mul(c.Icr, c.DebtAmount)
	api.AssertIsLessOrEqual(icrFloor, scaled)
	api.AssertIsLessOrEqual(scaled, api.Sub(api.Add(icrFloor, c.DebtAmount), 1))

	value := api.Mul(c.CollateralAmount, c.BtcPriceUsdCents)
	usdFloor := api.Mul(c.CollateralUsd, kernel.SatsPerBtc)
	api.AssertIsLessOrEqual(usdFloor, value)
	api.AssertIsLessOrEqual(value, api.Add(usdFloor, kernel.SatsPerBtc-1))

	return nil
}
