package idgen

import "github.com/google/uuid"

// NewFunc generates identifiers; tests may replace it with a deterministic
// sequence.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// WithPrefix returns a new identifier prefixed with kind, e.g. "task_<uuid>".
func WithPrefix(kind string) string {
	if kind == "" {
		return New()
	}
	return kind + "_" + New()
}
