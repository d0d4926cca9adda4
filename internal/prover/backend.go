package prover

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
)

// Backend is one proof system: how to compile the guest image for it,
// derive keys and restore persisted keys.
type Backend interface {
	System() ProofSystem
	Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error)
	Setup(ccs constraint.ConstraintSystem) (KeyPair, error)
	ReadKeys(r io.Reader) (KeyPair, error)
}

// KeyPair is a proving/verifying key pair. It is read-only after setup and
// safe to share between concurrent proofs.
type KeyPair interface {
	Prove(ccs constraint.ConstraintSystem, fullWitness witness.Witness) ([]byte, error)
	Verify(proof []byte, publicWitness witness.Witness) error
	VerifyingKeyBytes() ([]byte, error)
	WriteTo(w io.Writer) error
	ExportSolidity(w io.Writer) error
}

func NewBackend(system ProofSystem) (Backend, error) {
	switch system {
	case Groth16:
		return groth16Backend{}, nil
	case Plonk:
		return plonkBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProofSystem, system)
	}
}

type groth16Backend struct{}

func (groth16Backend) System() ProofSystem { return Groth16 }

func (groth16Backend) Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ElipticalCurveID.ScalarField(), r1cs.NewBuilder, circuit)
}

func (groth16Backend) Setup(ccs constraint.ConstraintSystem) (KeyPair, error) {
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}
	return &groth16Keys{pk: pk, vk: vk}, nil
}

func (groth16Backend) ReadKeys(r io.Reader) (KeyPair, error) {
	pkBytes, vkBytes, err := readKeyFrames(r)
	if err != nil {
		return nil, err
	}

	pk := groth16.NewProvingKey(ElipticalCurveID)
	if _, err := pk.ReadFrom(bytes.NewReader(pkBytes)); err != nil {
		return nil, fmt.Errorf("read groth16 proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(ElipticalCurveID)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, fmt.Errorf("read groth16 verifying key: %w", err)
	}
	return &groth16Keys{pk: pk, vk: vk}, nil
}

type groth16Keys struct {
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

func (k *groth16Keys) Prove(ccs constraint.ConstraintSystem, fullWitness witness.Witness) ([]byte, error) {
	proof, err := groth16.Prove(ccs, k.pk, fullWitness)
	if err != nil {
		return nil, err
	}
	return marshal(proof)
}

func (k *groth16Keys) Verify(proofBytes []byte, publicWitness witness.Witness) error {
	proof := groth16.NewProof(ElipticalCurveID)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("read groth16 proof: %w", err)
	}
	return groth16.Verify(proof, k.vk, publicWitness)
}

func (k *groth16Keys) VerifyingKeyBytes() ([]byte, error) {
	return marshal(k.vk)
}

func (k *groth16Keys) WriteTo(w io.Writer) error {
	return writeKeyFrames(w, k.pk, k.vk)
}

func (k *groth16Keys) ExportSolidity(w io.Writer) error {
	return k.vk.ExportSolidity(w)
}

type plonkBackend struct{}

func (plonkBackend) System() ProofSystem { return Plonk }

func (plonkBackend) Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ElipticalCurveID.ScalarField(), scs.NewBuilder, circuit)
}

// Setup uses a locally generated KZG SRS. Production deployments restore
// keys derived from a ceremony SRS through the key store instead.
func (plonkBackend) Setup(ccs constraint.ConstraintSystem) (KeyPair, error) {
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, fmt.Errorf("generate kzg srs: %w", err)
	}

	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, err
	}
	return &plonkKeys{pk: pk, vk: vk}, nil
}

func (plonkBackend) ReadKeys(r io.Reader) (KeyPair, error) {
	pkBytes, vkBytes, err := readKeyFrames(r)
	if err != nil {
		return nil, err
	}

	pk := plonk.NewProvingKey(ElipticalCurveID)
	if _, err := pk.ReadFrom(bytes.NewReader(pkBytes)); err != nil {
		return nil, fmt.Errorf("read plonk proving key: %w", err)
	}
	vk := plonk.NewVerifyingKey(ElipticalCurveID)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, fmt.Errorf("read plonk verifying key: %w", err)
	}
	return &plonkKeys{pk: pk, vk: vk}, nil
}

type plonkKeys struct {
	pk plonk.ProvingKey
	vk plonk.VerifyingKey
}

func (k *plonkKeys) Prove(ccs constraint.ConstraintSystem, fullWitness witness.Witness) ([]byte, error) {
	proof, err := plonk.Prove(ccs, k.pk, fullWitness)
	if err != nil {
		return nil, err
	}
	return marshal(proof)
}

func (k *plonkKeys) Verify(proofBytes []byte, publicWitness witness.Witness) error {
	proof := plonk.NewProof(ElipticalCurveID)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("read plonk proof: %w", err)
	}
	return plonk.Verify(proof, k.vk, publicWitness)
}

func (k *plonkKeys) VerifyingKeyBytes() ([]byte, error) {
	return marshal(k.vk)
}

func (k *plonkKeys) WriteTo(w io.Writer) error {
	return writeKeyFrames(w, k.pk, k.vk)
}

func (k *plonkKeys) ExportSolidity(w io.Writer) error {
	return k.vk.ExportSolidity(w)
}

func marshal(v io.WriterTo) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := v.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Keys are stored as two frames, each a u64 little endian length followed
// by the key bytes: proving key first, then verifying key.
const maxKeyFrameBytes = 1 << 32

func writeKeyFrames(w io.Writer, pk, vk io.WriterTo) error {
	for _, key := range []io.WriterTo{pk, vk} {
		b, err := marshal(key)
		if err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(b))); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func readKeyFrames(r io.Reader) (pk []byte, vk []byte, err error) {
	frames := make([][]byte, 2)
	for i := range frames {
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("read key frame length: %w", err)
		}
		if n > maxKeyFrameBytes {
			return nil, nil, fmt.Errorf("key frame of %d bytes exceeds limit", n)
		}
		frames[i] = make([]byte, n)
		if _, err := io.ReadFull(r, frames[i]); err != nil {
			return nil, nil, fmt.Errorf("read key frame: %w", err)
		}
	}
	return frames[0], frames[1], nil
}
