package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(url, title string) models.ScrapedJob {
	return models.ScrapedJob{ID: "id-" + title, Title: title, Company: "Acme", URL: url, Source: models.SourceLever}
}

func TestMemoryStoreUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, job("https://jobs.example.com/1", "First")))
	updated := job("https://jobs.example.com/1", "Renamed")
	updated.ID = "other-id"
	require.NoError(t, store.Upsert(ctx, updated))

	rows, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Renamed", rows[0].Title)
	assert.Equal(t, "id-First", rows[0].ID, "stored id must survive updates")
}

func TestMemoryStoreRejectsBatchWithoutURL(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.UpsertBatch(context.Background(), []models.ScrapedJob{
		job("https://jobs.example.com/1", "Ok"),
		job("  ", "Broken"),
	})
	require.Error(t, err)
	assert.Equal(t, 0, store.Len(), "failed batch must not be partially applied")
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "jobs.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	rows, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := store.UpsertBatch(ctx, []models.ScrapedJob{
		job("https://jobs.example.com/1", "One"),
		job("https://jobs.example.com/2", "Two"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Upsert(ctx, job("https://jobs.example.com/2", "Two v2")))

	rows, err = ReadJobs(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Two v2", rows[1].Title)
	assert.Equal(t, "id-Two", rows[1].ID)

	limited, err := store.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	other, err := store.List(ctx, Filter{Source: models.SourceIndeed})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReadJobsHandlesEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))

	rows, err := ReadJobs(empty)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ReadJobsAllowMissing(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = ReadJobs(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// flakyStore fails every batch and the rows listed in bad.
type flakyStore struct {
	*MemoryStore
	bad     map[string]bool
	batches []int
}

func (f *flakyStore) UpsertBatch(_ context.Context, jobs []models.ScrapedJob) (int, error) {
	f.batches = append(f.batches, len(jobs))
	return 0, errors.New("payload too large")
}

func (f *flakyStore) Upsert(ctx context.Context, job models.ScrapedJob) error {
	if f.bad[job.URL] {
		return fmt.Errorf("constraint violation")
	}
	return f.MemoryStore.Upsert(ctx, job)
}

func TestSaveJobsFallsBackToSingleRows(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), bad: map[string]bool{"https://jobs.example.com/7": true}}

	var jobs []models.ScrapedJob
	for i := 0; i < 120; i++ {
		jobs = append(jobs, job(fmt.Sprintf("https://jobs.example.com/%d", i), fmt.Sprintf("Job %d", i)))
	}

	saved, err := SaveJobs(context.Background(), store, jobs, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 119, saved)
	assert.Equal(t, []int{50, 50, 20}, store.batches)
	assert.Equal(t, 119, store.Len())
}

func TestSaveJobsWithoutStore(t *testing.T) {
	saved, err := SaveJobs(context.Background(), nil, []models.ScrapedJob{job("https://x", "x")}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoStore)
	assert.Zero(t, saved)

	saved, err = SaveJobs(context.Background(), nil, nil, zerolog.Nop())
	assert.NoError(t, err)
	assert.Zero(t, saved)
}

func TestUpsertArgsUseNullsForUnknowns(t *testing.T) {
	args := upsertArgs(job("https://jobs.example.com/1", "One"))
	require.Len(t, args, 13)
	assert.Nil(t, args[6])
	assert.Nil(t, args[11])
	assert.Equal(t, []string{}, args[10])
	assert.Equal(t, "lever", args[7])
}
