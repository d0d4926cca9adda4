package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dtocommon "icr-prover/pkg/dto_common"
	"icr-prover/pkg/logger"
	reasoncodes "icr-prover/pkg/reason_codes"
)

func setupRepository(t *testing.T) ProofRepository {
	t.Helper()
	db, err := Connect(DriverSqlite, "file::memory:", logger.Nop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second pooled connection would see a different in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return NewProofRepository(db)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "", logger.Nop())
	assert.Error(t, err)
}

func TestSaveAndFindProofs(t *testing.T) {
	repo := setupRepository(t)

	for i, icr := range []uint32{100, 200} {
		record := ProofRecordFromDto(dtocommon.ProofResultDto{
			EventId:             "evt",
			UserId:              uint32(i),
			UserAddress:         "tb1qabc",
			ProofSystem:         "groth16",
			Icr:                 icr,
			CollateralAmountUsd: 60_000,
			Vkey:                "0x01",
		})
		require.NoError(t, repo.SaveProof(&record))
		assert.NotZero(t, record.Id)
	}

	records, err := repo.FindByUserAddress("tb1qabc")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint32(200), records[0].Icr)

	latest, err := repo.LatestByUserAddress("tb1qabc")
	require.NoError(t, err)
	assert.Equal(t, uint32(200), latest.Icr)

	none, err := repo.FindByUserAddress("someone-else")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.LatestByUserAddress("someone-else")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveFailure(t *testing.T) {
	repo := setupRepository(t)

	dto := dtocommon.NewZkpProofFailureFactory("evt-1", []byte(`{"id":1}`)).
		CreateErrorDto(assert.AnError, reasoncodes.ErrDivisionByZero)
	failure := ProofFailureFromDto(dto)
	require.NoError(t, repo.SaveFailure(&failure))

	failures, err := repo.FailuresByEventId("evt-1")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, string(reasoncodes.ErrDivisionByZero), failures[0].ReasonCode)
	assert.Equal(t, []byte(`{"id":1}`), failures[0].RequestBody)
}
