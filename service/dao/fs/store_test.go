package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/taskgate/service/dao"
)

type document struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func documentField(d *document, name string) (string, bool) {
	if name == dao.ParamStatus {
		return d.Status, true
	}
	return "", false
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store, err := New[document](ctx, t.TempDir(), func(d *document) string { return d.ID }, WithField(documentField))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, &document{ID: "a", Status: "pending"}))
	require.NoError(t, store.Save(ctx, &document{ID: "b", Status: "approved"}))
	require.NoError(t, store.Save(ctx, &document{ID: "a", Status: "rejected"}))

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "rejected", loaded.Status)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := store.List(ctx, dao.NewParameter(dao.ParamStatus, "approved"))
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "b", approved[0].ID)

	require.NoError(t, store.Delete(ctx, "b"))
	assert.ErrorIs(t, store.Delete(ctx, "b"), dao.ErrNotFound)
}

func TestStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store, err := New[document](ctx, t.TempDir(), func(d *document) string { return d.ID })
	require.NoError(t, err)

	testCases := []struct {
		name   string
		doc    *document
		expect error
	}{
		{name: "nil", expect: dao.ErrNilEntity},
		{name: "empty id", doc: &document{}, expect: dao.ErrInvalidID},
		{name: "path traversal", doc: &document{ID: "../x"}, expect: dao.ErrInvalidID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, store.Save(ctx, tc.doc), tc.expect)
		})
	}
}
