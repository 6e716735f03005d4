package provenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwerling/thornweld/internal/ir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(id string, created time.Time) *Run {
	return &Run{
		ID:        id,
		Thorn:     "WaveToy",
		SpecHash:  "abc123",
		CreatedAt: created,
		Schedules: []Schedule{
			{Phase: ir.PhaseInitial, Order: []string{"wavetoy_init"}, Hash: "h1"},
			{Phase: ir.PhaseEvolve, Order: []string{"wavetoy_rhs", "wavetoy_update"}, Hash: "h2"},
		},
		Warnings: []Warning{
			{Code: "DUPLICATE_ALIAS", Message: "alias rhs declared twice"},
		},
	}
}

// TestOpen_Idempotent tests that opening the same path twice succeeds.
func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

// TestRecordAndLastRun tests the full round trip of a run with schedules
// and warnings.
func TestRecordAndLastRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, testRun("run-1", created)))

	got, err := store.LastRun(ctx, "WaveToy")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "WaveToy", got.Thorn)
	assert.Equal(t, "abc123", got.SpecHash)
	assert.True(t, got.CreatedAt.Equal(created))

	require.Len(t, got.Schedules, 2)
	assert.Equal(t, ir.PhaseInitial, got.Schedules[0].Phase)
	assert.Equal(t, []string{"wavetoy_init"}, got.Schedules[0].Order)
	assert.Equal(t, ir.PhaseEvolve, got.Schedules[1].Phase)
	assert.Equal(t, []string{"wavetoy_rhs", "wavetoy_update"}, got.Schedules[1].Order)
	assert.Equal(t, "h2", got.Schedules[1].Hash)

	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "DUPLICATE_ALIAS", got.Warnings[0].Code)
}

// TestLastRun_Unknown tests that an unrecorded thorn yields nil, not an error.
func TestLastRun_Unknown(t *testing.T) {
	store := openTestStore(t)

	got, err := store.LastRun(context.Background(), "NoSuchThorn")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestRuns_NewestFirst tests ordering across multiple recorded runs.
func TestRuns_NewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, testRun("run-1", base)))
	require.NoError(t, store.Record(ctx, testRun("run-2", base.Add(time.Minute))))
	require.NoError(t, store.Record(ctx, testRun("run-3", base.Add(2*time.Minute))))

	runs, err := store.Runs(ctx, "WaveToy")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
	assert.Equal(t, "run-1", runs[2].ID)

	last, err := store.LastRun(ctx, "WaveToy")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-3", last.ID)
}

// TestRecord_DuplicateID tests that a reused run id is rejected.
func TestRecord_DuplicateID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, testRun("run-1", created)))
	assert.Error(t, store.Record(ctx, testRun("run-1", created)))
}

// TestNewRunID tests that ids are unique and well formed.
func TestNewRunID(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
