package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/dao"
)

const selectColumns = `SELECT id, task_id, title, description, category, recommendation, approval_type, status, created_at, decided_at, notes, task
	FROM approval_requests`

// Store implements dao.Service for approval requests.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type scannable interface {
	Scan(dest ...any) error
}

// Save upserts the request.
func (s *Store) Save(ctx context.Context, r *approval.Request) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	var taskJSON []byte
	if r.Task != nil {
		var err error
		if taskJSON, err = json.Marshal(r.Task); err != nil {
			return fmt.Errorf("marshal task: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO approval_requests (id, task_id, title, description, category, recommendation, approval_type, status, created_at, decided_at, notes, task)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, decided_at = EXCLUDED.decided_at, notes = EXCLUDED.notes, task = EXCLUDED.task`,
		r.ID, r.TaskID, r.Title, r.Description, r.Category, r.Recommendation, r.ApprovalType,
		string(r.Status), r.CreatedAt, r.DecidedAt, r.Notes, taskJSON)
	if err != nil {
		return fmt.Errorf("save approval request %s: %w", r.ID, err)
	}
	return nil
}

// Load returns the request with the given id.
func (s *Store) Load(ctx context.Context, id string) (*approval.Request, error) {
	row := s.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)
	r, err := scanRequest(row)
	if err != nil {
		return nil, notFoundWrap(err, "load approval request %s", id)
	}
	return r, nil
}

// Delete removes the request with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM approval_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete approval request %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete approval request %s: %w", id, dao.ErrNotFound)
	}
	return nil
}

// List returns requests matching Status and TaskID parameters, oldest first.
func (s *Store) List(ctx context.Context, parameters ...*dao.Parameter) ([]*approval.Request, error) {
	var where []string
	var args []any
	for _, p := range parameters {
		if p == nil {
			continue
		}
		var column string
		switch p.Name {
		case dao.ParamStatus:
			column = "status"
		case dao.ParamTaskID:
			column = "task_id"
		default:
			continue
		}
		args = append(args, p.Values())
		where = append(where, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
	}
	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	defer rows.Close()

	var ret []*approval.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		ret = append(ret, r)
	}
	return ret, rows.Err()
}

func scanRequest(row scannable) (*approval.Request, error) {
	var (
		r         approval.Request
		status    string
		decidedAt *time.Time
		taskJSON  []byte
	)
	if err := row.Scan(&r.ID, &r.TaskID, &r.Title, &r.Description, &r.Category, &r.Recommendation,
		&r.ApprovalType, &status, &r.CreatedAt, &decidedAt, &r.Notes, &taskJSON); err != nil {
		return nil, err
	}
	r.Status = approval.Status(status)
	if decidedAt != nil {
		utc := decidedAt.UTC()
		r.DecidedAt = &utc
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if len(taskJSON) > 0 {
		r.Task = &task.Task{}
		if err := json.Unmarshal(taskJSON, r.Task); err != nil {
			return nil, fmt.Errorf("unmarshal task of request %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func notFoundWrap(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, dao.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

var _ dao.Service[string, approval.Request] = (*Store)(nil)
