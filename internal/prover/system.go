package prover

import (
	"fmt"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
)

const (
	ElipticalCurveID = ecc.BN254
)

type ProofSystem string

const (
	Groth16 ProofSystem = "groth16"
	Plonk   ProofSystem = "plonk"
)

var ProofSystems = []ProofSystem{Groth16, Plonk}

func ParseProofSystem(s string) (ProofSystem, error) {
	switch ProofSystem(strings.ToLower(strings.TrimSpace(s))) {
	case Groth16:
		return Groth16, nil
	case Plonk:
		return Plonk, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProofSystem, s)
	}
}

func (p ProofSystem) String() string {
	return string(p)
}
