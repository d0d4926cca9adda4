package prover

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icr-prover/internal/collateral"
	"icr-prover/internal/guestio"
	"icr-prover/internal/kernel"
	"icr-prover/internal/publicvalues"
)

var (
	sharedOnce sync.Once
	shared     *Orchestrator
)

func sharedOrchestrator() *Orchestrator {
	sharedOnce.Do(func() {
		shared = New(WithMaxConcurrentProofs(4))
	})
	return shared
}

func sampleRequest() collateral.Request {
	return collateral.Request{
		ID:                   1,
		UserAddress:          "abc",
		CreatedAt:            "2024-01-01",
		CollateralAmountSats: 1_000_000,
		DebtAmount:           300,
		BtcPriceUsdCents:     6_000_000,
	}
}

func TestProveEndToEnd(t *testing.T) {
	for _, system := range ProofSystems {
		t.Run(system.String(), func(t *testing.T) {
			o := sharedOrchestrator()
			req := sampleRequest()
			s := NewSession(req, system)

			artifact, err := o.ProveSession(context.Background(), s)
			require.NoError(t, err)

			outputs, err := artifact.Outputs()
			require.NoError(t, err)

			icr, usd, err := kernel.Compute(req.CollateralAmountSats, req.DebtAmount, req.BtcPriceUsdCents)
			require.NoError(t, err)
			assert.Equal(t, publicvalues.Outputs{Icr: icr, CollateralAmountUsd: usd}, outputs)
			assert.Equal(t, publicvalues.Outputs{Icr: 333_333, CollateralAmountUsd: 60_000}, outputs)

			assert.Equal(t, system, artifact.System)
			assert.NotEmpty(t, artifact.Proof)
			assert.Len(t, artifact.VerifyingKeyID, 66)
			assert.Len(t, artifact.ImageID, 64)

			assert.Equal(t, StageCompleted, s.Stage())
			var stages []Stage
			for _, tr := range s.History() {
				stages = append(stages, tr.To)
			}
			assert.Equal(t, []Stage{StageSetup, StageExecuting, StageProving, StageCompleted}, stages)

			require.NoError(t, o.Verify(context.Background(), artifact))
		})
	}
}

func TestExecuteOnly(t *testing.T) {
	exec, err := sharedOrchestrator().Execute(context.Background(), sampleRequest(), Groth16)
	require.NoError(t, err)

	assert.Equal(t, publicvalues.Outputs{Icr: 333_333, CollateralAmountUsd: 60_000}, exec.Outputs)
	assert.Equal(t, publicvalues.Encode(exec.Outputs), exec.PublicValues)
	assert.Positive(t, exec.Constraints)
}

func TestSetupIsShared(t *testing.T) {
	o := sharedOrchestrator()

	var wg sync.WaitGroup
	contexts := make([]*ProvingContext, 4)
	for i := range contexts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pc, err := o.Setup(context.Background(), Groth16)
			assert.NoError(t, err)
			contexts[i] = pc
		}(i)
	}
	wg.Wait()

	for _, pc := range contexts[1:] {
		assert.Same(t, contexts[0], pc)
	}
}

func TestConcurrentSubmissions(t *testing.T) {
	o := sharedOrchestrator()

	first := sampleRequest()
	second := sampleRequest()
	second.ID = 2
	second.UserAddress = "def"
	second.CollateralAmountSats = 50_000_000
	second.DebtAmount = 1_000
	second.BtcPriceUsdCents = 9_000_000

	requests := []collateral.Request{first, second}
	artifacts := make([]*Artifact, len(requests))
	errs := make([]error, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req collateral.Request) {
			defer wg.Done()
			artifacts[i], errs[i] = o.Submit(context.Background(), req, Groth16)
		}(i, req)
	}
	wg.Wait()

	for i, req := range requests {
		require.NoError(t, errs[i])

		outputs, err := artifacts[i].Outputs()
		require.NoError(t, err)

		icr, usd, err := kernel.Compute(req.CollateralAmountSats, req.DebtAmount, req.BtcPriceUsdCents)
		require.NoError(t, err)
		assert.Equal(t, publicvalues.Outputs{Icr: icr, CollateralAmountUsd: usd}, outputs)
		assert.NoError(t, o.Verify(context.Background(), artifacts[i]))
	}

	assert.Equal(t, artifacts[0].VerifyingKeyID, artifacts[1].VerifyingKeyID)
	assert.NotEqual(t, artifacts[0].PublicValues, artifacts[1].PublicValues)
}

func TestProveRejectsBadInputBeforeSetup(t *testing.T) {
	// no backends at all: any attempt to set up would fail differently
	o := New()
	o.backends = map[ProofSystem]Backend{}

	dollarPrice := sampleRequest()
	dollarPrice.BtcPriceUsdCents = 62_000

	s := NewSession(dollarPrice, Groth16)
	_, err := o.ProveSession(context.Background(), s)
	assert.ErrorIs(t, err, guestio.ErrEncoding)
	assert.True(t, IsClientError(err))
	assert.Equal(t, StageFailed, s.Stage())
	assert.ErrorIs(t, s.Err(), guestio.ErrEncoding)
}

func TestWithEncoderRelaxesPriceFloor(t *testing.T) {
	o := New(WithEncoder(guestio.Encoder{MaxStringBytes: guestio.MaxStringBytes}))
	o.backends = map[ProofSystem]Backend{}

	dollarPrice := sampleRequest()
	dollarPrice.BtcPriceUsdCents = 62_000

	// encoding passes, so the request reaches setup
	_, err := o.ProveSession(context.Background(), NewSession(dollarPrice, Groth16))
	assert.ErrorIs(t, err, ErrUnknownProofSystem)
	assert.NotErrorIs(t, err, guestio.ErrEncoding)
}

func TestProveRejectsZeroDebt(t *testing.T) {
	req := sampleRequest()
	req.DebtAmount = 0

	s := NewSession(req, Groth16)
	_, err := sharedOrchestrator().ProveSession(context.Background(), s)
	assert.ErrorIs(t, err, kernel.ErrDivisionByZero)
	assert.True(t, IsClientError(err))
	assert.Equal(t, StageFailed, s.Stage())
}

func TestProveUnknownSystem(t *testing.T) {
	_, err := sharedOrchestrator().Prove(context.Background(), sampleRequest(), ProofSystem("stark"))
	assert.ErrorIs(t, err, ErrUnknownProofSystem)
}

func TestVerifyRejectsTamperedArtifacts(t *testing.T) {
	o := sharedOrchestrator()
	artifact, err := o.Prove(context.Background(), sampleRequest(), Groth16)
	require.NoError(t, err)

	tampered := *artifact
	tampered.PublicValues = publicvalues.Encode(publicvalues.Outputs{Icr: 999_999, CollateralAmountUsd: 60_000})
	assert.ErrorIs(t, o.Verify(context.Background(), &tampered), ErrInvalidProof)

	wrongKey := *artifact
	wrongKey.VerifyingKeyID = "0x00"
	assert.ErrorIs(t, o.Verify(context.Background(), &wrongKey), ErrVerifyingKeyMismatch)

	short := *artifact
	short.PublicValues = artifact.PublicValues[:4]
	assert.ErrorIs(t, o.Verify(context.Background(), &short), publicvalues.ErrInvalidPublicValues)
}

func TestExportVerifier(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sharedOrchestrator().ExportVerifier(context.Background(), Groth16, &buf))
	assert.Contains(t, buf.String(), "pragma solidity")
}

type memoryKeyStore struct {
	mu    sync.Mutex
	saves int
	data  map[string][]byte
}

func (m *memoryKeyStore) LoadKeys(system, imageID string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[system+"/"+imageID]
	return b, ok, nil
}

func (m *memoryKeyStore) SaveKeys(system, imageID string, keys []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.data[system+"/"+imageID] = keys
	return nil
}

func TestKeysSurviveRestart(t *testing.T) {
	store := &memoryKeyStore{data: map[string][]byte{}}

	first, err := New(WithKeyStore(store)).Setup(context.Background(), Groth16)
	require.NoError(t, err)
	require.Equal(t, 1, store.saves)

	restarted := New(WithKeyStore(store))
	second, err := restarted.Setup(context.Background(), Groth16)
	require.NoError(t, err)

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, first.ImageID(), second.ImageID())
	assert.Equal(t, first.VerifyingKeyID(), second.VerifyingKeyID())

	artifact, err := restarted.Prove(context.Background(), sampleRequest(), Groth16)
	require.NoError(t, err)
	assert.NoError(t, restarted.Verify(context.Background(), artifact))
}

// blockingBackend wraps the real groth16 backend and holds every proof
// until release is closed.
type blockingBackend struct {
	Backend
	release chan struct{}
}

func (b blockingBackend) Setup(ccs constraint.ConstraintSystem) (KeyPair, error) {
	keys, err := b.Backend.Setup(ccs)
	if err != nil {
		return nil, err
	}
	return blockingKeys{KeyPair: keys, release: b.release}, nil
}

type blockingKeys struct {
	KeyPair
	release chan struct{}
}

func (k blockingKeys) Prove(ccs constraint.ConstraintSystem, w witness.Witness) ([]byte, error) {
	<-k.release
	return k.KeyPair.Prove(ccs, w)
}

func TestSubmitAbandonedProofStillCompletes(t *testing.T) {
	release := make(chan struct{})
	real, err := NewBackend(Groth16)
	require.NoError(t, err)

	o := New(WithBackend(blockingBackend{Backend: real, release: release}), WithMaxConcurrentProofs(1))
	_, err = o.Setup(context.Background(), Groth16)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = o.Submit(ctx, sampleRequest(), Groth16)
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// the orphaned proof holds the only slot until it finishes
	busy, cancelBusy := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelBusy()
	_, err = o.Submit(busy, sampleRequest(), Groth16)
	assert.ErrorIs(t, err, ErrAbandoned)

	close(release)
	o.Wait()

	artifact, err := o.Submit(context.Background(), sampleRequest(), Groth16)
	require.NoError(t, err)
	assert.NoError(t, o.Verify(context.Background(), artifact))
}

func TestSessionRejectsSkippedStages(t *testing.T) {
	s := NewSession(sampleRequest(), Groth16)

	assert.ErrorIs(t, s.advance(StageProving), ErrInvalidTransition)
	require.NoError(t, s.advance(StageSetup))
	assert.ErrorIs(t, s.advance(StageCompleted), ErrInvalidTransition)

	cause := errors.New("boom")
	assert.Same(t, cause, s.fail(cause))
	assert.Equal(t, StageFailed, s.Stage())
	assert.ErrorIs(t, s.advance(StageExecuting), ErrInvalidTransition)
}

func TestParseProofSystem(t *testing.T) {
	for in, want := range map[string]ProofSystem{"groth16": Groth16, " PLONK ": Plonk} {
		got, err := ParseProofSystem(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseProofSystem("stark")
	assert.ErrorIs(t, err, ErrUnknownProofSystem)
}
