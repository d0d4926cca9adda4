package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"icr-prover/internal/collateral"
	"icr-prover/internal/guest"
	"icr-prover/internal/guestio"
	"icr-prover/internal/publicvalues"
	"icr-prover/pkg/logger"
)

// KeyStore persists serialized key pairs between process restarts.
type KeyStore interface {
	LoadKeys(system, imageID string) ([]byte, bool, error)
	SaveKeys(system, imageID string, keys []byte) error
}

type Orchestrator struct {
	logger   *logger.Logger
	backends map[ProofSystem]Backend
	store    KeyStore
	encoder  guestio.Encoder
	slots    *semaphore.Weighted

	flight   singleflight.Group
	mu       sync.RWMutex
	contexts map[ProofSystem]*ProvingContext

	inflight sync.WaitGroup
}

type Option func(*Orchestrator)

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithKeyStore(s KeyStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

func WithEncoder(e guestio.Encoder) Option {
	return func(o *Orchestrator) { o.encoder = e }
}

// WithMaxConcurrentProofs bounds how many Submit calls prove at once.
func WithMaxConcurrentProofs(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.slots = semaphore.NewWeighted(n)
		}
	}
}

func WithBackend(b Backend) Option {
	return func(o *Orchestrator) { o.backends[b.System()] = b }
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   logger.Nop(),
		backends: map[ProofSystem]Backend{},
		encoder:  guestio.NewEncoder(),
		slots:    semaphore.NewWeighted(2),
		contexts: map[ProofSystem]*ProvingContext{},
	}
	for _, system := range ProofSystems {
		b, _ := NewBackend(system)
		o.backends[system] = b
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Setup returns the shared proving context for system, compiling the guest
// image and deriving keys on first use. Concurrent first callers share one
// setup run.
func (o *Orchestrator) Setup(ctx context.Context, system ProofSystem) (*ProvingContext, error) {
	o.mu.RLock()
	pc := o.contexts[system]
	o.mu.RUnlock()
	if pc != nil {
		return pc, nil
	}

	backend, ok := o.backends[system]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProofSystem, system)
	}

	ch := o.flight.DoChan(string(system), func() (interface{}, error) {
		pc, err := o.setup(backend)
		if err != nil {
			return nil, err
		}

		o.mu.Lock()
		o.contexts[system] = pc
		o.mu.Unlock()
		return pc, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ProvingContext), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) setup(backend Backend) (*ProvingContext, error) {
	system := backend.System()
	start := time.Now()

	ccs, err := backend.Compile(&guest.Circuit{})
	if err != nil {
		return nil, fmt.Errorf("%w: compile guest for %s: %v", ErrProvingBackend, system, err)
	}
	imageID, err := ImageID(ccs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvingBackend, err)
	}
	o.logger.Infof("Compiled guest image %s for %s with %d constraints", imageID, system, ccs.GetNbConstraints())

	keys := o.loadKeys(backend, imageID)
	if keys == nil {
		keys, err = backend.Setup(ccs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s setup: %v", ErrProvingBackend, system, err)
		}
		o.saveKeys(system, imageID, keys)
	}

	pc, err := newProvingContext(system, ccs, keys, imageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvingBackend, err)
	}

	o.logger.Infof("Setup for %s done in %s, vkey %s", system, time.Since(start).Round(time.Millisecond), pc.VerifyingKeyID())
	return pc, nil
}

// loadKeys returns nil when the store has no usable keys for the image.
func (o *Orchestrator) loadKeys(backend Backend, imageID string) KeyPair {
	if o.store == nil {
		return nil
	}

	raw, found, err := o.store.LoadKeys(backend.System().String(), imageID)
	if err != nil {
		o.logger.Error(err, "Could not read keys from key store, running setup")
		return nil
	}
	if !found {
		return nil
	}

	keys, err := backend.ReadKeys(bytes.NewReader(raw))
	if err != nil {
		o.logger.Error(err, "Stored keys are unreadable, running setup")
		return nil
	}

	o.logger.Infof("Loaded %s keys for image %s from key store", backend.System(), imageID)
	return keys
}

func (o *Orchestrator) saveKeys(system ProofSystem, imageID string, keys KeyPair) {
	if o.store == nil {
		return
	}

	var buf bytes.Buffer
	if err := keys.WriteTo(&buf); err != nil {
		o.logger.Error(err, "Could not serialize keys")
		return
	}
	if err := o.store.SaveKeys(system.String(), imageID, buf.Bytes()); err != nil {
		o.logger.Error(err, "Could not persist keys")
	}
}

// Execute runs the guest and checks its witness against the image without
// generating a proof.
func (o *Orchestrator) Execute(ctx context.Context, req collateral.Request, system ProofSystem) (*Execution, error) {
	s := NewSession(req, system)

	pc, exec, err := o.execute(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := pc.Check(exec); err != nil {
		return nil, s.fail(err)
	}

	outputs, err := publicvalues.Decode(exec.PublicValues)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.advance(StageCompleted); err != nil {
		return nil, s.fail(err)
	}

	return &Execution{
		SessionID:    s.ID.String(),
		System:       system,
		PublicValues: exec.PublicValues,
		Outputs:      outputs,
		Constraints:  pc.Constraints(),
	}, nil
}

// Prove runs the whole pipeline for req in the calling goroutine.
func (o *Orchestrator) Prove(ctx context.Context, req collateral.Request, system ProofSystem) (*Artifact, error) {
	return o.ProveSession(ctx, NewSession(req, system))
}

func (o *Orchestrator) ProveSession(ctx context.Context, s *Session) (*Artifact, error) {
	pc, exec, err := o.execute(ctx, s)
	if err != nil {
		return nil, err
	}

	if err := s.advance(StageProving); err != nil {
		return nil, s.fail(err)
	}
	start := time.Now()
	artifact, err := pc.Prove(exec)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.advance(StageCompleted); err != nil {
		return nil, s.fail(err)
	}

	o.logger.Infof("Proved session %s with %s in %s", s.ID, s.System, time.Since(start).Round(time.Millisecond))
	return artifact, nil
}

// execute takes the session through Setup and Executing. Input encoding runs
// before setup so malformed requests never wait for keys.
func (o *Orchestrator) execute(ctx context.Context, s *Session) (*ProvingContext, *guest.Execution, error) {
	input, err := o.encoder.Encode(s.Request.GuestInput())
	if err != nil {
		return nil, nil, s.fail(err)
	}

	if err := s.advance(StageSetup); err != nil {
		return nil, nil, s.fail(err)
	}
	pc, err := o.Setup(ctx, s.System)
	if err != nil {
		return nil, nil, s.fail(err)
	}

	if err := s.advance(StageExecuting); err != nil {
		return nil, nil, s.fail(err)
	}
	exec, err := guest.Run(input)
	if err != nil {
		return nil, nil, s.fail(err)
	}

	return pc, exec, nil
}

type proofResult struct {
	artifact *Artifact
	err      error
}

// Submit proves req on a worker goroutine and waits for it. When ctx ends
// first Submit returns ErrAbandoned; the proof keeps running and its result
// is dropped.
func (o *Orchestrator) Submit(ctx context.Context, req collateral.Request, system ProofSystem) (*Artifact, error) {
	if err := o.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for a proving slot: %w", ErrAbandoned, err)
	}

	s := NewSession(req, system)
	result := make(chan proofResult, 1)

	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		defer o.slots.Release(1)

		artifact, err := o.ProveSession(context.WithoutCancel(ctx), s)
		result <- proofResult{artifact: artifact, err: err}
	}()

	select {
	case r := <-result:
		return r.artifact, r.err
	case <-ctx.Done():
		o.logger.Warnf("Caller stopped waiting for session %s in stage %s", s.ID, s.Stage())
		return nil, fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())
	}
}

// Wait blocks until every submitted proof has finished, including ones
// whose callers gave up.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Verify checks the artifact against the cached key pair of its system.
func (o *Orchestrator) Verify(ctx context.Context, a *Artifact) error {
	if a == nil {
		return errors.New("nil artifact")
	}
	pc, err := o.Setup(ctx, a.System)
	if err != nil {
		return err
	}
	return pc.Verify(a)
}

func (o *Orchestrator) ExportVerifier(ctx context.Context, system ProofSystem, w io.Writer) error {
	pc, err := o.Setup(ctx, system)
	if err != nil {
		return err
	}
	if err := pc.ExportSolidity(w); err != nil {
		return fmt.Errorf("%w: export %s verifier: %v", ErrProvingBackend, system, err)
	}
	return nil
}
