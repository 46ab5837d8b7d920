package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/idgen"
	"github.com/viant/taskgate/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateFailed     MessageState = "failed"
	MessageStateDead       MessageState = "dlq"
)

// Message is a queue document stored as <state>/<name>.json.
type Message[T any] struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack moves the message to the completed directory (or drops it when completed messages are not kept).
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrAlreadyProcessed
	}
	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = clock.Now()
	return m.queue.settle(context.Background(), m)
}

// Nack moves the message to failed for a later retry, or to dlq once retries are exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrAlreadyProcessed
	}
	m.processed = true
	m.Retries++
	if err != nil {
		m.Error = err.Error()
	}
	m.UpdatedAt = clock.Now()
	m.State = MessageStateFailed
	if m.Retries > m.queue.config.MaxRetries {
		m.State = MessageStateDead
	}
	return m.queue.settle(context.Background(), m)
}

// QueueConfig holds configuration for filesystem queue
type QueueConfig struct {
	BasePath      string        // Base location for queue documents
	MaxRetries    int           // Maximum number of redeliveries
	RetryDelay    time.Duration // Minimum age of a failed message before redelivery
	PollInterval  time.Duration // How often Consume re-checks an empty queue
	KeepCompleted bool          // Keep acknowledged messages under completed/
}

// DefaultConfig returns a default queue configuration
func DefaultConfig() QueueConfig {
	return QueueConfig{
		BasePath:     "/tmp/taskgate/outbox",
		MaxRetries:   3,
		RetryDelay:   time.Second,
		PollInterval: 100 * time.Millisecond,
	}
}

// Queue is a durable messaging.Queue where each state is a directory.
// Messages left in processing by a crashed process are returned to pending on start.
type Queue[T any] struct {
	fs     afs.Service
	config QueueConfig
	dirs   map[MessageState]string
	mu     sync.Mutex
}

// NewQueue creates a new filesystem-based queue
func NewQueue[T any](ctx context.Context, fs afs.Service, config QueueConfig) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	base := url.Normalize(config.BasePath, file.Scheme)
	q := &Queue[T]{fs: fs, config: config, dirs: map[MessageState]string{}}
	for _, state := range []MessageState{MessageStatePending, MessageStateProcessing, MessageStateCompleted, MessageStateFailed, MessageStateDead} {
		dir := url.Join(base, string(state))
		q.dirs[state] = dir
		if exists, _ := fs.Exists(ctx, dir); !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	if err := q.recover(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// Publish writes the message under pending/.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := clock.Now()
	id := idgen.New()
	message := &Message[T]{
		ID:        id,
		Name:      fmt.Sprintf("%020d-%s", now.UnixNano(), id),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.write(ctx, message)
}

// Consume blocks until a pending message (or a failed one whose retry delay
// elapsed) is available, then moves it to processing.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()
	for {
		message, err := q.tryConsume(ctx)
		if err != nil || message != nil {
			return message, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *Queue[T]) tryConsume(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	message, err := q.claim(ctx, MessageStateFailed, func(m *Message[T]) bool {
		return clock.Now().Sub(m.UpdatedAt) >= q.config.RetryDelay
	})
	if err != nil || message != nil {
		return message, err
	}
	return q.claim(ctx, MessageStatePending, nil)
}

// claim moves the oldest eligible message of state to processing.
func (q *Queue[T]) claim(ctx context.Context, state MessageState, eligible func(*Message[T]) bool) (*Message[T], error) {
	objects, err := q.documents(ctx, state)
	if err != nil {
		return nil, err
	}
	for _, object := range objects {
		message, err := q.read(ctx, object)
		if err != nil {
			_ = q.fs.Move(ctx, object.URL(), url.Join(q.dirs[MessageStateDead], "invalid-"+object.Name()))
			continue
		}
		if eligible != nil && !eligible(message) {
			continue
		}
		message.State = MessageStateProcessing
		message.UpdatedAt = clock.Now()
		if err := q.write(ctx, message); err != nil {
			return nil, err
		}
		if err := q.fs.Delete(ctx, object.URL()); err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", object.URL(), err)
		}
		message.queue = q
		return message, nil
	}
	return nil, nil
}

// settle writes the message under its new state and removes the processing copy.
func (q *Queue[T]) settle(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if m.State != MessageStateCompleted || q.config.KeepCompleted {
		if err := q.write(ctx, m); err != nil {
			return err
		}
	}
	processing := q.location(MessageStateProcessing, m.Name)
	if exists, _ := q.fs.Exists(ctx, processing); exists {
		if err := q.fs.Delete(ctx, processing); err != nil {
			return fmt.Errorf("failed to delete %s: %w", processing, err)
		}
	}
	return nil
}

// recover returns messages stranded in processing to pending.
func (q *Queue[T]) recover(ctx context.Context) error {
	objects, err := q.documents(ctx, MessageStateProcessing)
	if err != nil {
		return err
	}
	for _, object := range objects {
		if err := q.fs.Move(ctx, object.URL(), url.Join(q.dirs[MessageStatePending], object.Name())); err != nil {
			return fmt.Errorf("failed to recover %s: %w", object.URL(), err)
		}
	}
	return nil
}

// Len returns the number of messages in the given state.
func (q *Queue[T]) Len(ctx context.Context, state MessageState) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	objects, err := q.documents(ctx, state)
	return len(objects), err
}

// DeadLetters returns dead-lettered payloads, oldest first.
func (q *Queue[T]) DeadLetters(ctx context.Context) ([]T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	objects, err := q.documents(ctx, MessageStateDead)
	if err != nil {
		return nil, err
	}
	var ret []T
	for _, object := range objects {
		message, err := q.read(ctx, object)
		if err != nil {
			continue
		}
		ret = append(ret, message.Data)
	}
	return ret, nil
}

func (q *Queue[T]) documents(ctx context.Context, state MessageState) ([]storage.Object, error) {
	objects, err := q.fs.List(ctx, q.dirs[state], option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s messages: %w", state, err)
	}
	var ret []storage.Object
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			ret = append(ret, object)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name() < ret[j].Name() })
	return ret, nil
}

func (q *Queue[T]) location(state MessageState, name string) string {
	return url.Join(q.dirs[state], name+".json")
}

func (q *Queue[T]) write(ctx context.Context, m *Message[T]) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", m.ID, err)
	}
	URL := q.location(m.State, m.Name)
	if err := q.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", URL, err)
	}
	return nil
}

func (q *Queue[T]) read(ctx context.Context, object storage.Object) (*Message[T], error) {
	data, err := q.fs.Download(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", object.URL(), err)
	}
	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", object.URL(), err)
	}
	return &message, nil
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
