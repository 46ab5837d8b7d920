// Package memory wires an approval store over the in-memory dao.
package memory

import (
	"context"

	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/dao/store"
)

// NewDAO returns an empty in-memory request dao.
func NewDAO() *store.MemoryStore[string, approval.Request] {
	return store.NewMemoryStore[string, approval.Request](approval.RequestKey, approval.RequestField)
}

// New creates an approval store kept in process memory. Rebuilding the
// index of an empty memory dao cannot fail.
func New(auditor audit.Service, options ...approval.Option) *approval.Store {
	ret, err := approval.New(context.Background(), NewDAO(), auditor, options...)
	if err != nil {
		panic(err)
	}
	return ret
}
