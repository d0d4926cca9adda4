package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"icr-prover/internal/collateral"
	"icr-prover/internal/fixture"
	"icr-prover/internal/kernel"
	"icr-prover/internal/prover"
	"icr-prover/internal/proving"
	"icr-prover/internal/users"
	dtocommon "icr-prover/pkg/dto_common"
	"icr-prover/pkg/logger"
	reasoncodes "icr-prover/pkg/reason_codes"
	"icr-prover/pkg/utilities"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []utilities.Serializable
}

func (p *recordingPublisher) Publish(body utilities.Serializable) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, body)
	return nil
}

type mockProver struct {
	mock.Mock
}

func (m *mockProver) Prove(ctx context.Context, sr collateral.ServiceRequest, system prover.ProofSystem, eventId string) (*proving.Result, error) {
	args := m.Called(ctx, sr, system, eventId)
	result, _ := args.Get(0).(*proving.Result)
	return result, args.Error(1)
}

func (m *mockProver) RecordFailure(dto dtocommon.ZkpProofFailureDto) {
	m.Called(dto)
}

func (m *mockProver) ProveUsers(ctx context.Context, records []users.Record, system prover.ProofSystem) (*proving.BatchReport, error) {
	args := m.Called(ctx, records, system)
	report, _ := args.Get(0).(*proving.BatchReport)
	return report, args.Error(1)
}

func newWorker(p RequestProver) (*ProveRequestWorker, *recordingPublisher, *recordingPublisher) {
	results := &recordingPublisher{}
	failures := &recordingPublisher{}
	return &ProveRequestWorker{
		results:       results,
		failures:      failures,
		prover:        p,
		defaultSystem: prover.Groth16,
		logger:        logger.Nop(),
	}, results, failures
}

func message(t *testing.T, system string) []byte {
	t.Helper()
	body, err := json.Marshal(ProveRequestMessage{
		EventId:     "evt-1",
		ProofSystem: system,
		Request:     collateral.ServiceRequest{ID: 3, UserAddress: "tb1qabc", UsbdMinted: "300"},
	})
	require.NoError(t, err)
	return body
}

func TestHandleMessagePublishesResult(t *testing.T) {
	p := &mockProver{}
	result := &proving.Result{
		EventId: "evt-1",
		Request: collateral.Request{ID: 3, UserAddress: "tb1qabc"},
		Fixture: fixture.Fixture{Icr: 333_333, CollateralAmount: 60_000, ProofSystem: "plonk", Vkey: "0xab"},
	}
	p.On("Prove", mock.Anything, mock.Anything, prover.Plonk, "evt-1").Return(result, nil)

	w, results, failures := newWorker(p)
	w.HandleMessage(context.Background(), message(t, "plonk"))

	require.Len(t, results.messages, 1)
	assert.Empty(t, failures.messages)

	dto := results.messages[0].(dtocommon.ProofResultDto)
	assert.Equal(t, "evt-1", dto.EventId)
	assert.Equal(t, uint32(333_333), dto.Icr)
	assert.Equal(t, "plonk", dto.ProofSystem)
	p.AssertExpectations(t)
}

func TestHandleMessageUsesDefaultSystem(t *testing.T) {
	p := &mockProver{}
	p.On("Prove", mock.Anything, mock.Anything, prover.Groth16, "evt-1").
		Return(&proving.Result{EventId: "evt-1"}, nil)

	w, results, _ := newWorker(p)
	w.HandleMessage(context.Background(), message(t, ""))

	assert.Len(t, results.messages, 1)
	p.AssertExpectations(t)
}

func TestHandleMessageFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     func(t *testing.T) []byte
		proveErr error
		reason   reasoncodes.ReasonCode
	}{
		{
			name:   "bad json",
			body:   func(*testing.T) []byte { return []byte(`{"event_id":`) },
			reason: reasoncodes.ErrUnmarshal,
		},
		{
			name:   "unknown proof system",
			body:   func(t *testing.T) []byte { return message(t, "stark") },
			reason: reasoncodes.ErrEncoding,
		},
		{
			name:     "zero debt",
			body:     func(t *testing.T) []byte { return message(t, "") },
			proveErr: kernel.ErrDivisionByZero,
			reason:   reasoncodes.ErrDivisionByZero,
		},
		{
			name:     "backend",
			body:     func(t *testing.T) []byte { return message(t, "") },
			proveErr: prover.ErrProvingBackend,
			reason:   reasoncodes.ErrProofGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProver{}
			if tt.proveErr != nil {
				p.On("Prove", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.proveErr)
			}
			p.On("RecordFailure", mock.Anything).Return()

			w, results, failures := newWorker(p)
			body := tt.body(t)
			w.HandleMessage(context.Background(), body)

			assert.Empty(t, results.messages)
			require.Len(t, failures.messages, 1)
			dto := failures.messages[0].(dtocommon.ZkpProofFailureDto)
			assert.Equal(t, tt.reason, dto.ReasonCode)
			assert.Equal(t, body, dto.RequestBody)
			p.AssertCalled(t, "RecordFailure", dto)
		})
	}
}

type staticSource struct {
	records []users.Record
	err     error
}

func (s staticSource) Users(context.Context) ([]users.Record, error) {
	return s.records, s.err
}

func newRefreshWorker(source users.Source, p BatchProver) *FixtureRefreshWorker {
	return &FixtureRefreshWorker{
		source:   source,
		prover:   p,
		system:   prover.Plonk,
		schedule: "@every 1h",
		logger:   logger.Nop(),
	}
}

func TestRefreshProvesAllUsers(t *testing.T) {
	records := users.SampleRecords()
	report := &proving.BatchReport{Results: []*proving.Result{{}, {}}, Failed: map[string]error{}}

	p := &mockProver{}
	p.On("ProveUsers", mock.Anything, records, prover.Plonk).Return(report, nil)

	got, err := newRefreshWorker(staticSource{records: records}, p).Refresh(context.Background())
	require.NoError(t, err)
	assert.Same(t, report, got)
	p.AssertExpectations(t)
}

func TestRefreshSkipsEmptyUserList(t *testing.T) {
	p := &mockProver{}

	report, err := newRefreshWorker(staticSource{}, p).Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	p.AssertNotCalled(t, "ProveUsers", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshSourceError(t *testing.T) {
	sourceErr := errors.New("api down")

	_, err := newRefreshWorker(staticSource{err: sourceErr}, &mockProver{}).Refresh(context.Background())
	assert.ErrorIs(t, err, sourceErr)
}
