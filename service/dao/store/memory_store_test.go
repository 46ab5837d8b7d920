package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/taskgate/service/dao"
)

type item struct {
	ID     string
	Status string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore[string, item](func(i *item) string { return i.ID }, func(i *item, name string) (string, bool) {
		if name == dao.ParamStatus {
			return i.Status, true
		}
		return "", false
	})

	original := &item{ID: "1", Status: "pending"}
	require.NoError(t, s.Save(ctx, original))
	original.Status = "mutated"

	loaded, err := s.Load(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "pending", loaded.Status)
	loaded.Status = "mutated"

	again, _ := s.Load(ctx, "1")
	assert.Equal(t, "pending", again.Status)

	_, err = s.Load(ctx, "2")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, s.Save(ctx, &item{}), dao.ErrInvalidID)

	require.NoError(t, s.Save(ctx, &item{ID: "2", Status: "approved"}))
	pending, err := s.List(ctx, dao.NewParameter(dao.ParamStatus, "pending"))
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, s.Delete(ctx, "1"))
	assert.ErrorIs(t, s.Delete(ctx, "1"), dao.ErrNotFound)
}
