// Package proving runs service requests through pricing, the prover and
// persistence. The HTTP handlers, the queue worker, the refresh job and the
// CLI share it.
package proving

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"icr-prover/internal/collateral"
	"icr-prover/internal/fixture"
	"icr-prover/internal/pricefeed"
	"icr-prover/internal/prover"
	"icr-prover/internal/repository"
	"icr-prover/internal/users"
	dtocommon "icr-prover/pkg/dto_common"
	"icr-prover/pkg/logger"
)

type Service struct {
	orchestrator *prover.Orchestrator
	prices       pricefeed.Feed
	validator    *collateral.Validator
	fixtures     *fixture.FileStore
	proofs       repository.ProofRepository
	timeout      time.Duration
	logger       *logger.Logger
}

type Option func(*Service)

// WithFixtureStore writes a fixture file for every proof.
func WithFixtureStore(store *fixture.FileStore) Option {
	return func(s *Service) { s.fixtures = store }
}

// WithProofRepository records every proof in the database.
func WithProofRepository(repo repository.ProofRepository) Option {
	return func(s *Service) { s.proofs = repo }
}

// WithRequestTimeout bounds how long a caller waits for a proof. Zero waits
// forever.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(orchestrator *prover.Orchestrator, prices pricefeed.Feed, opts ...Option) *Service {
	s := &Service{
		orchestrator: orchestrator,
		prices:       prices,
		validator:    collateral.NewValidator(),
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify checks a proof artifact against the key pair this process holds.
func (s *Service) Verify(ctx context.Context, a *prover.Artifact) error {
	return s.orchestrator.Verify(ctx, a)
}

type VerifyingKeyInfo struct {
	System  string `json:"system"`
	Vkey    string `json:"vkey"`
	ImageId string `json:"imageId"`
}

func (s *Service) VerifyingKey(ctx context.Context, system prover.ProofSystem) (VerifyingKeyInfo, error) {
	pc, err := s.orchestrator.Setup(ctx, system)
	if err != nil {
		return VerifyingKeyInfo{}, err
	}
	return VerifyingKeyInfo{
		System:  system.String(),
		Vkey:    pc.VerifyingKeyID(),
		ImageId: pc.ImageID(),
	}, nil
}

func (s *Service) ExportVerifier(ctx context.Context, system prover.ProofSystem, w io.Writer) error {
	return s.orchestrator.ExportVerifier(ctx, system, w)
}

// Result is one proved request.
type Result struct {
	EventId  string
	Request  collateral.Request
	Artifact *prover.Artifact
	Fixture  fixture.Fixture
	// FixturePath is empty when no fixture store is configured.
	FixturePath string
}

func (r *Result) Dto() dtocommon.ProofResultDto {
	return dtocommon.ProofResultDto{
		EventId:             r.EventId,
		UserId:              r.Request.ID,
		UserAddress:         r.Request.UserAddress,
		ProofSystem:         r.Fixture.ProofSystem,
		Icr:                 r.Fixture.Icr,
		CollateralAmountUsd: r.Fixture.CollateralAmount,
		Vkey:                r.Fixture.Vkey,
		PublicValues:        r.Fixture.PublicValues,
		Proof:               r.Fixture.Proof,
	}
}

// Request validates sr and prices it at the current BTC price.
func (s *Service) Request(ctx context.Context, sr collateral.ServiceRequest) (collateral.Request, error) {
	if fields := s.validator.Validate(sr); len(fields) > 0 {
		return collateral.Request{}, &ValidationError{Fields: fields}
	}

	price, err := s.prices.BtcPriceUsdCents(ctx)
	if err != nil {
		return collateral.Request{}, err
	}
	return sr.ToRequest(price)
}

// Prove proves sr. An empty eventId gets a fresh one.
func (s *Service) Prove(ctx context.Context, sr collateral.ServiceRequest, system prover.ProofSystem, eventId string) (*Result, error) {
	req, err := s.Request(ctx, sr)
	if err != nil {
		return nil, err
	}
	return s.ProveRequest(ctx, req, system, eventId)
}

func (s *Service) ProveRequest(ctx context.Context, req collateral.Request, system prover.ProofSystem, eventId string) (*Result, error) {
	if eventId == "" {
		eventId = uuid.NewString()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	artifact, err := s.orchestrator.Submit(ctx, req, system)
	if err != nil {
		return nil, err
	}

	f, err := fixture.Build(req, artifact)
	if err != nil {
		return nil, err
	}
	result := &Result{EventId: eventId, Request: req, Artifact: artifact, Fixture: f}

	if err := s.persist(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) persist(result *Result) error {
	if s.fixtures != nil {
		path, err := s.fixtures.Save(result.Fixture)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		result.FixturePath = path
	}

	if s.proofs != nil {
		record := repository.ProofRecordFromDto(result.Dto())
		if err := s.proofs.SaveProof(&record); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	return nil
}

// Execute runs sr through the guest and constraint check without proving.
func (s *Service) Execute(ctx context.Context, sr collateral.ServiceRequest, system prover.ProofSystem) (*prover.Execution, error) {
	req, err := s.Request(ctx, sr)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Execute(ctx, req, system)
}

// RecordFailure stores a failed request. Without a repository it only logs.
func (s *Service) RecordFailure(dto dtocommon.ZkpProofFailureDto) {
	s.logger.Warnf("Proof for event %s failed with %s: %s", dto.EventId, dto.ReasonCode, dto.Error)
	if s.proofs == nil {
		return
	}

	failure := repository.ProofFailureFromDto(dto)
	if err := s.proofs.SaveFailure(&failure); err != nil {
		s.logger.Errorf(err, "Could not save failure for event %s", dto.EventId)
	}
}

// BatchReport summarises a run over many user records.
type BatchReport struct {
	Results []*Result
	// Failed maps user address to the error that stopped it.
	Failed map[string]error
}

// ProveUsers proves every record at a single BTC price. Setup runs once and
// a failing record does not stop the others.
func (s *Service) ProveUsers(ctx context.Context, records []users.Record, system prover.ProofSystem) (*BatchReport, error) {
	price, err := s.prices.BtcPriceUsdCents(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.orchestrator.Setup(ctx, system); err != nil {
		return nil, err
	}

	report := &BatchReport{Failed: map[string]error{}}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		req, err := record.ToRequest(price)
		if err != nil {
			report.Failed[record.UserAddress] = err
			continue
		}

		result, err := s.ProveRequest(ctx, req, system, "")
		if err != nil {
			s.logger.Errorf(err, "Could not prove user %s", record.UserAddress)
			report.Failed[record.UserAddress] = err
			continue
		}

		s.logger.Infof("Fixture saved for user %s", record.UserAddress)
		report.Results = append(report.Results, result)
	}
	return report, nil
}
