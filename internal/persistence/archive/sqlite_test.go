package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "db", "runs.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestBatchRuns(t *testing.T) {
	ctx := context.Background()
	a := openArchive(t)

	b, err := a.NewBatch(ctx, "battles/lab.json", 42, 4, "seed: 42\n")
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)

	runs := []Run{
		{Index: 0, Seed: 42, Status: "friendly_victory", Rounds: 3, Eval: 1},
		{Index: 1, Seed: 7961, Status: "enemy_victory", Rounds: 5, Eval: -1},
		{Index: 2, Seed: 15880, Status: "round_end", Rounds: 10, Eval: 0.2},
		{Index: 3, Seed: 23799, Status: "error", Rounds: 2, Err: "malformed action"},
	}
	for _, r := range runs {
		require.NoError(t, a.RecordRun(ctx, b.ID, r))
	}
	assert.Error(t, a.RecordRun(ctx, b.ID, runs[0]), "duplicate run")

	got, err := a.Runs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, runs, got)

	s, err := a.Summarize(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, Summary{Runs: 4, Friendly: 1, Enemy: 1, Unfinished: 1, Failed: 1, AvgRounds: 5}, s)
	assert.Equal(t, 0.25, s.WinRate())
}

func TestSummarize_EmptyBatch(t *testing.T) {
	a := openArchive(t)
	s, err := a.Summarize(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)
	assert.Zero(t, s.WinRate())
}

func TestRecordRun_UnknownBatch(t *testing.T) {
	a := openArchive(t)
	err := a.RecordRun(context.Background(), "missing", Run{Status: "continue"})
	assert.Error(t, err)
}

func TestBatches(t *testing.T) {
	ctx := context.Background()
	a := openArchive(t)
	first, err := a.NewBatch(ctx, "a.json", 1, 1, "")
	require.NoError(t, err)
	second, err := a.NewBatch(ctx, "b.json", 2, 1, "")
	require.NoError(t, err)

	got, err := a.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
	assert.Equal(t, "a.json", got[1].Battle)
}
