package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viant/taskgate/internal/clock"
)

// PartitionStore persists entries partitioned by UTC day. Append must reject
// days older than the newest day written with ErrPartitionClosed, and an
// entry that does not follow the stored partition tail with ErrChainConflict.
type PartitionStore interface {
	Append(ctx context.Context, day string, entry *Entry) error
	Read(ctx context.Context, day string) ([]*Entry, error)
	Days(ctx context.Context) ([]string, error)
}

// Follows reports whether entry extends a partition whose last entry is
// tail; a nil tail stands for an empty partition.
func Follows(tail, entry *Entry) bool {
	if tail == nil {
		return entry.Seq <= 1 && entry.PrevHash == ""
	}
	return entry.Seq == tail.Seq+1 && entry.PrevHash == tail.Hash
}

// ValidDay reports whether day is a well formed partition key.
func ValidDay(day string) bool {
	_, err := time.Parse(clock.DayLayout, day)
	return err == nil
}

// MemoryStore keeps partitions in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string][]*Entry
	newest     string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{partitions: map[string][]*Entry{}}
}

// Append adds a copy of entry to the day partition.
func (s *MemoryStore) Append(_ context.Context, day string, entry *Entry) error {
	if !ValidDay(day) {
		return ErrInvalidDay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if day < s.newest {
		return ErrPartitionClosed
	}
	var tail *Entry
	if entries := s.partitions[day]; len(entries) > 0 {
		tail = entries[len(entries)-1]
	}
	if !Follows(tail, entry) {
		return ErrChainConflict
	}
	s.newest = day
	s.partitions[day] = append(s.partitions[day], entry.Clone())
	return nil
}

// Read returns copies of the day's entries in append order.
func (s *MemoryStore) Read(_ context.Context, day string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.partitions[day]
	ret := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		ret = append(ret, entry.Clone())
	}
	return ret, nil
}

// Days returns every day with entries, ascending.
func (s *MemoryStore) Days(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]string, 0, len(s.partitions))
	for day := range s.partitions {
		ret = append(ret, day)
	}
	sort.Strings(ret)
	return ret, nil
}
