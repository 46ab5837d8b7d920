package store

import (
	"context"
	"sync"

	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/dao/criteria"
)

// FieldFunc exposes named string fields of an entity to List parameters.
type FieldFunc[T any] func(item *T, name string) (string, bool)

// MemoryStore is a generic in-memory implementation of dao.Service.
// Entities are keyed by keySelector and stored as shallow copies, so callers
// mutating a saved or loaded value do not affect the stored one.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
	field       FieldFunc[T]
}

// NewMemoryStore creates a new MemoryStore. field is optional; without it
// List ignores parameters.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, field ...FieldFunc[T]) *MemoryStore[K, T] {
	ret := &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
	if len(field) > 0 {
		ret.field = field[0]
	}
	return ret
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	clone := *v
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = &clone
	return nil
}

// Load returns a record by key or dao.ErrNotFound.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// List returns stored records matching parameters, in no particular order.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		clone := *v
		out = append(out, &clone)
	}
	s.mu.RUnlock()
	if s.field == nil {
		return out, nil
	}
	return criteria.Filter(out, s.field, parameters), nil
}

var _ dao.Service[string, struct{ ID string }] = (*MemoryStore[string, struct{ ID string }])(nil)
