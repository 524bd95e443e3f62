package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
)

// MemoryProgressStore keeps records in process memory
type MemoryProgressStore struct {
	mu      sync.Mutex
	records map[int64]models.UserProgress
	now     func() time.Time
}

// NewMemoryProgressStore creates an empty store
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{records: make(map[int64]models.UserProgress), now: time.Now}
}

// Load returns a copy of the record of userID
func (s *MemoryProgressStore) Load(_ context.Context, userID int64) (models.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[userID]
	if !ok {
		return models.UserProgress{}, ErrNotFound
	}
	return p.Clone(), nil
}

// Save stores a copy of p if its revision matches
func (s *MemoryProgressStore) Save(_ context.Context, p *models.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[p.UserID]
	if (!ok && p.Revision != 0) || (ok && current.Revision != p.Revision) {
		return ErrRevisionConflict
	}

	p.Revision++
	p.UpdatedAt = s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	s.records[p.UserID] = p.Clone()
	return nil
}

// Delete removes the record of userID
func (s *MemoryProgressStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// UserIDs returns every user with a record
func (s *MemoryProgressStore) UserIDs(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
