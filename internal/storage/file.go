package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jimezsa/jobcrawl/internal/models"
)

// FileStore keeps jobs as a pretty-printed JSON array on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) UpsertBatch(_ context.Context, jobs []models.ScrapedJob) (int, error) {
	if err := validate(jobs); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := ReadJobsAllowMissing(s.path)
	if err != nil {
		return 0, err
	}
	index := make(map[string]int, len(rows))
	for i, job := range rows {
		index[Key(job)] = i
	}

	if err := WriteJobs(s.path, merge(rows, index, jobs)); err != nil {
		return 0, err
	}
	return len(jobs), nil
}

func (s *FileStore) Upsert(ctx context.Context, job models.ScrapedJob) error {
	_, err := s.UpsertBatch(ctx, []models.ScrapedJob{job})
	return err
}

func (s *FileStore) List(_ context.Context, filter Filter) ([]models.ScrapedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := ReadJobsAllowMissing(s.path)
	if err != nil {
		return nil, err
	}
	return list(rows, filter), nil
}

func (s *FileStore) Close() error { return nil }

// Key is the identity of a job: its trimmed URL.
func Key(job models.ScrapedJob) string {
	return strings.TrimSpace(job.URL)
}

// ReadJobs reads a JSON array of jobs from path.
func ReadJobs(path string) ([]models.ScrapedJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []models.ScrapedJob{}, nil
	}

	var jobs []models.ScrapedJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if jobs == nil {
		return []models.ScrapedJob{}, nil
	}
	return jobs, nil
}

// ReadJobsAllowMissing treats a missing file as an empty store.
func ReadJobsAllowMissing(path string) ([]models.ScrapedJob, error) {
	jobs, err := ReadJobs(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.ScrapedJob{}, nil
		}
		return nil, err
	}
	return jobs, nil
}

// WriteJobs replaces the file atomically.
func WriteJobs(path string, jobs []models.ScrapedJob) error {
	if jobs == nil {
		jobs = []models.ScrapedJob{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
