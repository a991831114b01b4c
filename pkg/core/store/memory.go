package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps records in process. It is used when no database
// is configured.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[[2]string]Record
	now     func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[[2]string]Record), now: time.Now}
}

func (m *MemoryRepository) Upsert(_ context.Context, rec Record) error {
	if err := validKey(rec.SubjectID, rec.PeriodKey); err != nil {
		return &PersistenceError{Op: "upsert", SubjectID: rec.SubjectID, PeriodKey: rec.PeriodKey, Err: err}
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[[2]string{rec.SubjectID, rec.PeriodKey}] = rec
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, subjectID, periodKey string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[[2]string{subjectID, periodKey}]
	if !ok {
		return nil, &PersistenceError{Op: "get", SubjectID: subjectID, PeriodKey: periodKey, Err: ErrNotFound}
	}
	return &rec, nil
}

func (m *MemoryRepository) Subjects(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	for k := range m.records {
		seen[k[0]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// Len reports the number of stored records.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
