package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icr-prover/internal/collateral"
	"icr-prover/internal/fixture"
	"icr-prover/internal/pricefeed"
	"icr-prover/internal/prover"
	"icr-prover/internal/proving"
	"icr-prover/internal/repository"
	dtocommon "icr-prover/pkg/dto_common"
	"icr-prover/pkg/logger"
	reasoncodes "icr-prover/pkg/reason_codes"
	"icr-prover/pkg/rest"
)

const proveBody = `{
  "id": 1,
  "userAddress": "bc1q:abc",
  "amountInBtc": "0.01",
  "priceAtDeposited": "2025-05-07T17:57:00Z",
  "usbdMinted": "300",
  "collateralRatio": "200"
}`

var (
	orchestratorOnce sync.Once
	orchestrator     *prover.Orchestrator
)

func sharedOrchestrator() *prover.Orchestrator {
	orchestratorOnce.Do(func() {
		orchestrator = prover.New()
	})
	return orchestrator
}

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	repo   repository.ProofRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := repository.Connect(repository.DriverSqlite, "file::memory:", logger.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	repo := repository.NewProofRepository(db)

	svc := proving.New(sharedOrchestrator(), pricefeed.StaticFeed(6_000_000), proving.WithProofRepository(repo))
	return &testServer{
		engine: newEngine(NewHandler(svc, repo, prover.Groth16, nil)),
		repo:   repo,
	}
}

func newEngine(h *Handler) *gin.Engine {
	engine := gin.New()
	rest.Register(engine, h.Routes(), []rest.Middleware{rest.NewMiddleware("*", rest.CORSMiddleware(""))})
	return engine
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestProveIcr(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/v1/prove_icr", "/prove_icr"} {
		t.Run(path, func(t *testing.T) {
			w := do(srv.engine, http.MethodPost, path, proveBody)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

			resp := decode[fixture.ProofResponse](t, w)
			assert.Equal(t, uint32(333_333), resp.Icr)
			assert.Equal(t, uint32(60_000), resp.CollateralAmountUsd)
			assert.Len(t, resp.Vkey, 66)
			assert.NotEmpty(t, resp.Proof)
		})
	}

	records, err := srv.repo.FindByUserAddress("bc1q:abc")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	w := do(srv.engine, http.MethodGet, "/v1/proofs/bc1q:abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]repository.ProofRecord](t, w), 2)

	w = do(srv.engine, http.MethodGet, "/v1/proofs/nobody", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProveIcrClientErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		reason reasoncodes.ReasonCode
	}{
		{"bad json", "/v1/prove_icr", `{"id":`, reasoncodes.ErrUnmarshal},
		{"missing address", "/v1/prove_icr", `{"id":1,"amountInBtc":"0.01","usbdMinted":"300"}`, reasoncodes.ErrValidation},
		{"zero debt", "/v1/prove_icr", `{"id":1,"userAddress":"a","amountInBtc":"0.01","usbdMinted":"0"}`, reasoncodes.ErrDivisionByZero},
		{"unknown system", "/v1/prove_icr?system=stark", proveBody, reasoncodes.ErrEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv.engine, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.reason, decode[ErrorResponse](t, w).ReasonCode)
		})
	}

	failures, err := srv.repo.FailuresByEventId("")
	require.NoError(t, err)
	assert.Len(t, failures, 2)
}

func TestExecuteIcr(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv.engine, http.MethodPost, "/v1/execute_icr?system=groth16", proveBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ExecutionResponse](t, w)
	assert.Equal(t, uint32(333_333), resp.Icr)
	assert.Equal(t, "groth16", resp.System)
	assert.Equal(t, "0x1516050060ea0000", resp.PublicValues)
	assert.Positive(t, resp.Constraints)
}

func TestVerifyRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv.engine, http.MethodPost, "/v1/prove_icr", proveBody)
	require.Equal(t, http.StatusOK, w.Code)
	records, err := srv.repo.FindByUserAddress("bc1q:abc")
	require.NoError(t, err)
	require.Len(t, records, 1)

	f := fixture.Fixture{
		UserAddress:  "bc1q:abc",
		Vkey:         records[0].Vkey,
		PublicValues: records[0].PublicValues,
		Proof:        records[0].Proof,
		ProofSystem:  records[0].ProofSystem,
	}
	body, err := json.Marshal(f)
	require.NoError(t, err)

	w = do(srv.engine, http.MethodPost, "/v1/verify", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[VerifyResponse](t, w)
	assert.True(t, resp.Valid)
	assert.Equal(t, uint32(60_000), resp.CollateralAmountUsd)

	tampered := f
	tampered.Vkey = "0x" + fmt.Sprintf("%064d", 0)
	body, _ = json.Marshal(tampered)
	w = do(srv.engine, http.MethodPost, "/v1/verify", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, reasoncodes.ErrVerifyingKeyMismatch, decode[ErrorResponse](t, w).ReasonCode)

	short := f
	short.PublicValues = "0x0102"
	body, _ = json.Marshal(short)
	w = do(srv.engine, http.MethodPost, "/v1/verify", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(srv.engine, http.MethodPost, "/v1/verify", `{"proofSystem":"stark"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKeyEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv.engine, http.MethodGet, "/v1/vkey/groth16", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[proving.VerifyingKeyInfo](t, w)
	assert.Equal(t, "groth16", info.System)
	assert.Len(t, info.Vkey, 66)

	w = do(srv.engine, http.MethodGet, "/v1/verifier/groth16", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pragma solidity")

	w = do(srv.engine, http.MethodGet, "/v1/vkey/stark", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProofHistoryDisabled(t *testing.T) {
	engine := newEngine(NewHandler(&stubService{}, nil, prover.Groth16, nil))

	w := do(engine, http.MethodGet, "/v1/proofs/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubService struct {
	proveErr error
	failures []dtocommon.ZkpProofFailureDto
}

func (s *stubService) Prove(context.Context, collateral.ServiceRequest, prover.ProofSystem, string) (*proving.Result, error) {
	return nil, s.proveErr
}

func (s *stubService) Execute(context.Context, collateral.ServiceRequest, prover.ProofSystem) (*prover.Execution, error) {
	return nil, s.proveErr
}

func (s *stubService) Verify(context.Context, *prover.Artifact) error {
	return s.proveErr
}

func (s *stubService) VerifyingKey(context.Context, prover.ProofSystem) (proving.VerifyingKeyInfo, error) {
	return proving.VerifyingKeyInfo{}, s.proveErr
}

func (s *stubService) ExportVerifier(context.Context, prover.ProofSystem, io.Writer) error {
	return s.proveErr
}

func (s *stubService) RecordFailure(dto dtocommon.ZkpProofFailureDto) {
	s.failures = append(s.failures, dto)
}

func TestServerErrorsHideDetails(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason reasoncodes.ReasonCode
	}{
		{"abandoned", fmt.Errorf("%w: %w", prover.ErrAbandoned, context.DeadlineExceeded), http.StatusGatewayTimeout, reasoncodes.ErrProofGeneration},
		{"backend", fmt.Errorf("%w: secret detail", prover.ErrProvingBackend), http.StatusInternalServerError, reasoncodes.ErrProofGeneration},
		{"price feed", fmt.Errorf("%w: secret detail", pricefeed.ErrPriceUnavailable), http.StatusInternalServerError, reasoncodes.ErrPriceFeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{proveErr: tt.err}
			engine := newEngine(NewHandler(svc, nil, prover.Groth16, nil))

			w := do(engine, http.MethodPost, "/v1/prove_icr", proveBody)
			assert.Equal(t, tt.status, w.Code)
			assert.NotContains(t, w.Body.String(), "secret detail")
			assert.Equal(t, tt.reason, decode[ErrorResponse](t, w).ReasonCode)
			require.Len(t, svc.failures, 1)
			assert.Equal(t, tt.reason, svc.failures[0].ReasonCode)
		})
	}
}
