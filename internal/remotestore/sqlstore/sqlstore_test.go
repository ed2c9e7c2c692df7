package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theone-todo/internal/config"
	"theone-todo/internal/database"
	"theone-todo/internal/models"
	"theone-todo/internal/remotestore"
	"theone-todo/internal/repositories"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.InitDB(config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(repositories.NewTodoRepository(db))
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	later, err := s.Create(ctx, models.TodoItem{OwnerName: "neo", DisplayText: "2024-01-01 : Buy milk", Deadline: models.NewDeadline(2024, 1, 1)})
	require.NoError(t, err)
	_, err = s.Create(ctx, models.TodoItem{OwnerName: "neo", DisplayText: " : someday"})
	require.NoError(t, err)
	sooner, err := s.Create(ctx, models.TodoItem{OwnerName: "neo", DisplayText: "2023-12-25 : Call mom", Deadline: models.NewDeadline(2023, 12, 25)})
	require.NoError(t, err)
	_, err = s.Create(ctx, models.TodoItem{OwnerName: "smith", DisplayText: " : hunt"})
	require.NoError(t, err)

	items, err := s.Query(ctx, "neo")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, sooner, items[0].ID)
	assert.Equal(t, later, items[1].ID)
	assert.False(t, items[2].Deadline.IsSet())

	done := true
	require.NoError(t, s.Update(ctx, sooner, models.TodoPatch{Completed: &done}))
	require.NoError(t, s.Delete(ctx, later))

	items, err = s.Query(ctx, "neo")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Completed)
}

func TestStore_NotFoundIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.Delete(ctx, "missing")
	assert.True(t, remotestore.IsPersistence(err))
	assert.ErrorIs(t, err, remotestore.ErrNotFound)
	assert.ErrorIs(t, err, repositories.ErrTodoNotFound)

	done := true
	err = s.Update(ctx, "missing", models.TodoPatch{Completed: &done})
	assert.ErrorIs(t, err, remotestore.ErrNotFound)
}
