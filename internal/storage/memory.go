package storage

import (
	"context"
	"sync"

	"github.com/jimezsa/jobcrawl/internal/models"
)

// MemoryStore keeps jobs for the life of the process.
type MemoryStore struct {
	mu    sync.Mutex
	rows  []models.ScrapedJob
	index map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: map[string]int{}}
}

func (s *MemoryStore) UpsertBatch(_ context.Context, jobs []models.ScrapedJob) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validate(jobs); err != nil {
		return 0, err
	}
	s.rows = merge(s.rows, s.index, jobs)
	return len(jobs), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, job models.ScrapedJob) error {
	_, err := s.UpsertBatch(ctx, []models.ScrapedJob{job})
	return err
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]models.ScrapedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return list(s.rows, filter), nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *MemoryStore) Close() error { return nil }
