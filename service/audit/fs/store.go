// Package fs stores audit partitions as one JSONL document per UTC day on
// any viant/afs backed location.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/viant/taskgate/service/audit"
)

const (
	extension       = ".jsonl"
	maxLineBytes    = 4 * 1024 * 1024
	initialLineSize = 64 * 1024
)

// Store implements audit.PartitionStore. The open (newest) partition is
// kept in memory and rewritten as a whole on every append, since afs exposes
// no append primitive. Before each append the partition is reloaded when its
// stored size differs from the buffer, so entries written by another process
// sharing the location are kept and the chain tail is checked against them.
type Store struct {
	fs      afs.Service
	baseURL string

	mu      sync.Mutex
	newest  string
	current bytes.Buffer
	loaded  string
	tail    *audit.Entry
}

// New creates a Store rooted at baseURL.
func New(ctx context.Context, baseURL string) (*Store, error) {
	return NewWithFS(ctx, afs.New(), baseURL)
}

// NewWithFS creates a Store using the supplied afs service.
func NewWithFS(ctx context.Context, fs afs.Service, baseURL string) (*Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("audit fs: base URL cannot be empty")
	}
	ret := &Store{fs: fs, baseURL: url.Normalize(baseURL, file.Scheme)}
	if exists, _ := fs.Exists(ctx, ret.baseURL); !exists {
		if err := fs.Create(ctx, ret.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("audit fs: create %s: %w", ret.baseURL, err)
		}
	}
	days, err := ret.Days(ctx)
	if err != nil {
		return nil, err
	}
	if n := len(days); n > 0 {
		ret.newest = days[n-1]
	}
	return ret, nil
}

// Append writes entry as a new line of the day partition.
func (s *Store) Append(ctx context.Context, day string, entry *audit.Entry) error {
	if !audit.ValidDay(day) {
		return audit.ErrInvalidDay
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if day < s.newest {
		return audit.ErrPartitionClosed
	}
	if err := s.sync(ctx, day); err != nil {
		return err
	}
	if !audit.Follows(s.tail, entry) {
		return audit.ErrChainConflict
	}
	size := s.current.Len()
	s.current.Write(line)
	s.current.WriteByte('\n')
	if err := s.fs.Upload(ctx, s.partitionURL(day), file.DefaultFileOsMode, bytes.NewReader(s.current.Bytes())); err != nil {
		s.current.Truncate(size)
		return fmt.Errorf("write partition %s: %w", day, err)
	}
	s.tail = entry.Clone()
	s.newest = day
	return nil
}

// sync makes the buffer mirror the stored day partition. Partitions only
// grow, so an unchanged size means no other writer appended.
func (s *Store) sync(ctx context.Context, day string) error {
	URL := s.partitionURL(day)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("check partition %s: %w", day, err)
	}
	if !exists {
		s.current.Reset()
		s.loaded, s.tail = day, nil
		return nil
	}
	if s.loaded == day {
		object, err := s.fs.Object(ctx, URL)
		if err != nil {
			return fmt.Errorf("stat partition %s: %w", day, err)
		}
		if object.Size() == int64(s.current.Len()) {
			return nil
		}
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return fmt.Errorf("read partition %s: %w", day, err)
	}
	entries, err := decode(day, data)
	if err != nil {
		return err
	}
	s.current.Reset()
	s.current.Write(data)
	s.loaded, s.tail = day, nil
	if n := len(entries); n > 0 {
		s.tail = entries[n-1]
	}
	return nil
}

// Read decodes the stored day partition; a missing partition yields no entries.
func (s *Store) Read(ctx context.Context, day string) ([]*audit.Entry, error) {
	if !audit.ValidDay(day) {
		return nil, audit.ErrInvalidDay
	}
	URL := s.partitionURL(day)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("check partition %s: %w", day, err)
	}
	if !exists {
		return []*audit.Entry{}, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", day, err)
	}
	return decode(day, data)
}

func decode(day string, data []byte) ([]*audit.Entry, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, initialLineSize), maxLineBytes)
	ret := []*audit.Entry{}
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		entry := &audit.Entry{}
		if err := json.Unmarshal(raw, entry); err != nil {
			return nil, fmt.Errorf("partition %s line %d: %w", day, line, err)
		}
		ret = append(ret, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan partition %s: %w", day, err)
	}
	return ret, nil
}

// Days lists the partitions present in storage, ascending.
func (s *Store) Days(ctx context.Context) ([]string, error) {
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	var ret []string
	for _, object := range objects {
		name := object.Name()
		if object.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		if day := strings.TrimSuffix(name, extension); audit.ValidDay(day) {
			ret = append(ret, day)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

func (s *Store) partitionURL(day string) string {
	return url.Join(s.baseURL, day+extension)
}

var _ audit.PartitionStore = (*Store)(nil)
