// Package guest is the program proven by the prover: it reads the request
// from the input stream, runs the kernel and commits the public outputs.
package guest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"icr-prover/internal/guestio"
	"icr-prover/internal/kernel"
	"icr-prover/internal/publicvalues"
)

// Env is the execution environment handed to Main. It only exposes the
// input stream and the public output buffer.
type Env struct {
	in         *guestio.Reader
	committed  []byte
	labels     []string
	assignment *Circuit
}

func newEnv(input []byte) *Env {
	return &Env{in: guestio.NewReader(input)}
}

func (e *Env) ReadU32() (uint32, error) {
	return e.in.ReadU32()
}

func (e *Env) ReadString() (string, error) {
	return e.in.ReadString()
}

// Commit appends v to the public outputs as a little endian u32.
func (e *Env) Commit(label string, v uint32) {
	e.committed = binary.LittleEndian.AppendUint32(e.committed, v)
	e.labels = append(e.labels, label)
}

// Witness records the circuit assignment for this execution.
func (e *Env) Witness(c *Circuit) {
	e.assignment = c
}

// Main is the guest entry point.
func Main(env *Env) error {
	// id, userAddress and createdAt are bound into the input stream but do
	// not take part in the computation
	if _, err := env.ReadU32(); err != nil {
		return fmt.Errorf("read id: %w", err)
	}
	if _, err := env.ReadString(); err != nil {
		return fmt.Errorf("read user address: %w", err)
	}
	if _, err := env.ReadString(); err != nil {
		return fmt.Errorf("read created at: %w", err)
	}

	collateral, err := env.ReadU32()
	if err != nil {
		return fmt.Errorf("read collateral amount: %w", err)
	}
	debt, err := env.ReadU32()
	if err != nil {
		return fmt.Errorf("read debt amount: %w", err)
	}
	price, err := env.ReadU32()
	if err != nil {
		return fmt.Errorf("read btc price: %w", err)
	}

	icr, usd, err := kernel.Compute(collateral, debt, price)
	if err != nil {
		return err
	}

	env.Commit(publicvalues.LabelIcr, icr)
	env.Commit(publicvalues.LabelCollateralUsd, usd)

	env.Witness(&Circuit{
		CollateralAmount: uint64(collateral),
		DebtAmount:       uint64(debt),
		BtcPriceUsdCents: uint64(price),
		Icr:              uint64(icr),
		CollateralUsd:    uint64(usd),
	})
	return nil
}

var errNoWitness = errors.New("guest finished without recording a witness")

// Execution is the result of running the guest without proving.
type Execution struct {
	PublicValues []byte
	Labels       []string
	assignment   Circuit
}

// Assignment returns a copy of the full circuit assignment.
func (e *Execution) Assignment() *Circuit {
	c := e.assignment
	return &c
}

// Run executes Main over input. Any failure aborts the whole execution and
// no outputs are returned.
func Run(input []byte) (*Execution, error) {
	env := newEnv(input)
	if err := Main(env); err != nil {
		return nil, err
	}
	if err := env.in.Finish(); err != nil {
		return nil, err
	}
	if env.assignment == nil {
		return nil, errNoWitness
	}

	return &Execution{
		PublicValues: env.committed,
		Labels:       env.labels,
		assignment:   *env.assignment,
	}, nil
}
