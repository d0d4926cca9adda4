package prover

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"

	"icr-prover/internal/guest"
	"icr-prover/internal/publicvalues"
)

// ProvingContext is the compiled guest image with its key pair for one proof
// system. It is built once and then only read, so a single instance is
// handed to every proving task.
type ProvingContext struct {
	system  ProofSystem
	ccs     constraint.ConstraintSystem
	keys    KeyPair
	imageID string
	vkeyID  string
}

func newProvingContext(system ProofSystem, ccs constraint.ConstraintSystem, keys KeyPair, imageID string) (*ProvingContext, error) {
	vkBytes, err := keys.VerifyingKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize verifying key: %w", err)
	}

	return &ProvingContext{
		system:  system,
		ccs:     ccs,
		keys:    keys,
		imageID: imageID,
		vkeyID:  VerifyingKeyID(vkBytes),
	}, nil
}

func (pc *ProvingContext) System() ProofSystem { return pc.system }

func (pc *ProvingContext) ImageID() string { return pc.imageID }

func (pc *ProvingContext) VerifyingKeyID() string { return pc.vkeyID }

func (pc *ProvingContext) Constraints() int { return pc.ccs.GetNbConstraints() }

// VerifyingKeyID is the keccak256 of the serialized verifying key as 0x hex.
func VerifyingKeyID(vkBytes []byte) string {
	return crypto.Keccak256Hash(vkBytes).Hex()
}

// ImageID is the blake3 digest of the serialized constraint system.
func ImageID(ccs constraint.ConstraintSystem) (string, error) {
	h := blake3.New()
	if _, err := ccs.WriteTo(h); err != nil {
		return "", fmt.Errorf("hash constraint system: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Check solves the constraint system for the execution without proving.
func (pc *ProvingContext) Check(exec *guest.Execution) error {
	w, err := frontend.NewWitness(exec.Assignment(), ElipticalCurveID.ScalarField())
	if err != nil {
		return fmt.Errorf("%w: build witness: %v", ErrProvingBackend, err)
	}
	if _, err := pc.ccs.Solve(w); err != nil {
		return fmt.Errorf("%w: witness does not satisfy the guest image: %v", ErrProvingBackend, err)
	}
	return nil
}

func (pc *ProvingContext) Prove(exec *guest.Execution) (*Artifact, error) {
	w, err := frontend.NewWitness(exec.Assignment(), ElipticalCurveID.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: build witness: %v", ErrProvingBackend, err)
	}

	proof, err := pc.keys.Prove(pc.ccs, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %s prove: %v", ErrProvingBackend, pc.system, err)
	}

	return &Artifact{
		Proof:          proof,
		PublicValues:   bytes.Clone(exec.PublicValues),
		VerifyingKeyID: pc.vkeyID,
		System:         pc.system,
		ImageID:        pc.imageID,
	}, nil
}

func (pc *ProvingContext) Verify(a *Artifact) error {
	if a.System != pc.system || a.VerifyingKeyID != pc.vkeyID {
		return fmt.Errorf("%w: artifact %s/%s, loaded %s/%s",
			ErrVerifyingKeyMismatch, a.System, a.VerifyingKeyID, pc.system, pc.vkeyID)
	}

	outputs, err := a.Outputs()
	if err != nil {
		return err
	}
	public, err := publicWitness(outputs)
	if err != nil {
		return fmt.Errorf("%w: build public witness: %v", ErrProvingBackend, err)
	}

	if err := pc.keys.Verify(a.Proof, public); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

func (pc *ProvingContext) ExportSolidity(w io.Writer) error {
	return pc.keys.ExportSolidity(w)
}

func publicWitness(o publicvalues.Outputs) (witness.Witness, error) {
	assignment := &guest.Circuit{
		Icr:           uint64(o.Icr),
		CollateralUsd: uint64(o.CollateralAmountUsd),
	}
	return frontend.NewWitness(assignment, ElipticalCurveID.ScalarField(), frontend.PublicOnly())
}
