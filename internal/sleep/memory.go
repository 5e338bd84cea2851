package sleep

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]Record
	nextID  int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]Record),
		nextID:  1,
		now:     time.Now,
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

func (s *MemoryStore) Recent(ctx context.Context, days int) ([]Record, error) {
	if days <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedLocked()
	if len(all) > days {
		all = all[len(all)-days:]
	}
	return all, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Create(ctx context.Context, in NewRecord) (Record, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec := Record{
		ID:         s.nextID,
		Date:       in.Date,
		SleepStart: in.SleepStart,
		SleepEnd:   in.SleepEnd,
		Note:       in.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.records[rec.ID] = rec
	s.nextID++
	return rec, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, in NewRecord) (Record, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Date = in.Date
	rec.SleepStart = in.SleepStart
	rec.SleepEnd = in.SleepEnd
	rec.Note = in.Note
	rec.UpdatedAt = s.now().UTC()
	s.records[id] = rec
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) sortedLocked() []Record {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}
