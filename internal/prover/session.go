package prover

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"icr-prover/internal/collateral"
)

type Stage int

const (
	StageIdle Stage = iota
	StageSetup
	StageExecuting
	StageProving
	StageCompleted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageSetup:
		return "Setup"
	case StageExecuting:
		return "Executing"
	case StageProving:
		return "Proving"
	case StageCompleted:
		return "Completed"
	case StageFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Failed is reachable from every non-terminal stage.
var transitions = map[Stage][]Stage{
	StageIdle:      {StageSetup},
	StageSetup:     {StageExecuting},
	StageExecuting: {StageProving, StageCompleted},
	StageProving:   {StageCompleted},
}

type Transition struct {
	From Stage
	To   Stage
	At   time.Time
}

// Session tracks one request through the pipeline. The request it carries
// is owned by the session.
type Session struct {
	ID      uuid.UUID
	System  ProofSystem
	Request collateral.Request

	mu      sync.Mutex
	stage   Stage
	err     error
	history []Transition
}

func NewSession(req collateral.Request, system ProofSystem) *Session {
	return &Session{
		ID:      uuid.New(),
		System:  system,
		Request: req,
		stage:   StageIdle,
	}
}

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Err is the failure cause once the session is Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) History() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transition(nil), s.history...)
}

func (s *Session) advance(to Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range transitions[s.stage] {
		if allowed == to {
			s.record(to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.stage, to)
}

// fail moves the session to Failed and returns err for convenient chaining.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageCompleted && s.stage != StageFailed {
		s.record(StageFailed)
		s.err = err
	}
	return err
}

func (s *Session) record(to Stage) {
	s.history = append(s.history, Transition{From: s.stage, To: to, At: time.Now()})
	s.stage = to
}
