package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/dao/criteria"
)

// Store persists one JSON document per entity under baseURL. Any process
// sharing the location sees the same data, which lets an operator CLI and a
// running server cooperate without a database.
type Store[T any] struct {
	baseURL     string
	fs          afs.Service
	keySelector func(*T) string
	field       func(item *T, name string) (string, bool)
	logger      *slog.Logger
	mu          sync.RWMutex
}

// Option customises a Store.
type Option[T any] func(*Store[T])

// WithField enables List parameter filtering.
func WithField[T any](field func(item *T, name string) (string, bool)) Option[T] {
	return func(s *Store[T]) { s.field = field }
}

// WithLogger sets the logger used to report unreadable documents.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(s *Store[T]) { s.logger = l }
}

// WithFileSystem overrides the afs service (for example a memory file system in tests).
func WithFileSystem[T any](fs afs.Service) Option[T] {
	return func(s *Store[T]) { s.fs = fs }
}

// New creates the store, making sure the base location exists.
func New[T any](ctx context.Context, baseURL string, keySelector func(*T) string, opts ...Option[T]) (*Store[T], error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	ret := &Store[T]{
		baseURL:     url.Normalize(baseURL, file.Scheme),
		fs:          afs.New(),
		keySelector: keySelector,
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.OrDefault(ret.logger)
	exists, _ := ret.fs.Exists(ctx, ret.baseURL)
	if !exists {
		if err := ret.fs.Create(ctx, ret.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory %s: %w", ret.baseURL, err)
		}
	}
	return ret, nil
}

// Save writes the entity document, replacing any previous version.
func (s *Store[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	id := s.keySelector(v)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.fs.Upload(ctx, s.documentURL(id), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", id, err)
	}
	return nil
}

// Load reads the entity document or returns dao.ErrNotFound.
func (s *Store[T]) Load(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.documentURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", URL, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", URL, err)
	}
	ret := new(T)
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", URL, err)
	}
	return ret, nil
}

// Delete removes the entity document.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.documentURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", URL, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	return s.fs.Delete(ctx, URL)
}

// List reads every document under the base location. Unreadable documents
// are logged and skipped.
func (s *Store[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.baseURL, err)
	}
	var ret []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "url", object.URL(), "error", err)
			continue
		}
		item := new(T)
		if err := json.Unmarshal(data, item); err != nil {
			s.logger.Warn("skipping malformed document", "url", object.URL(), "error", err)
			continue
		}
		ret = append(ret, item)
	}
	if s.field == nil {
		return ret, nil
	}
	return criteria.Filter(ret, s.field, parameters), nil
}

func (s *Store[T]) documentURL(id string) string {
	return url.Join(s.baseURL, id+".json")
}
