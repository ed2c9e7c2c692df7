package httpstore_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theone-todo/internal/auth"
	"theone-todo/internal/models"
	"theone-todo/internal/remotestore"
	"theone-todo/internal/remotestore/httpstore"
	"theone-todo/internal/todosync"
	"theone-todo/testutil"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

type noToken struct{}

func (noToken) Token() (string, error) { return "", auth.ErrNotLoggedIn }

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	db, router, _, _ := testutil.SetupTestDB(t)
	t.Cleanup(func() { db.Close() })
	token, err := testutil.LoginAndGetToken(t, router, "normal_user@example.com", "password123")
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, token
}

func quiet() httpstore.Options {
	return httpstore.Options{Logger: log.New(io.Discard)}
}

func TestStore_AgainstAPI(t *testing.T) {
	srv, token := newServer(t)
	s := httpstore.New(srv.URL+"/", staticToken(token), quiet())
	ctx := context.Background()

	id, err := s.Create(ctx, models.TodoItem{
		OwnerName:   "normal_user",
		DisplayText: "2024-01-01 : Buy milk",
		Deadline:    models.NewDeadline(2024, 1, 1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	items, err := s.Query(ctx, "normal_user")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "2024-01-01", items[0].Deadline.String())

	done := true
	require.NoError(t, s.Update(ctx, id, models.TodoPatch{Completed: &done}))
	items, err = s.Query(ctx, "normal_user")
	require.NoError(t, err)
	assert.True(t, items[0].Completed)

	require.NoError(t, s.Delete(ctx, id))
	err = s.Delete(ctx, id)
	var pe *remotestore.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.ErrorIs(t, err, remotestore.ErrNotFound)

	items, err = s.Query(ctx, "normal_user")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestStore_ErrorsArePersistenceErrors(t *testing.T) {
	srv, token := newServer(t)
	ctx := context.Background()

	s := httpstore.New(srv.URL, staticToken(token), quiet())
	_, err := s.Query(ctx, "admin_user")
	var pe *remotestore.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusForbidden, pe.StatusCode)
	assert.Equal(t, remotestore.OpQuery, pe.Op)

	_, err = s.Create(ctx, models.TodoItem{OwnerName: "normal_user"})
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode, "empty display_text fails the schema")

	_, err = httpstore.New(srv.URL, staticToken("garbage"), quiet()).Query(ctx, "normal_user")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)

	_, err = httpstore.New(srv.URL, noToken{}, quiet()).Query(ctx, "normal_user")
	assert.True(t, remotestore.IsPersistence(err))
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)

	srv.Close()
	err = s.Delete(ctx, "anything")
	require.ErrorAs(t, err, &pe)
	assert.Zero(t, pe.StatusCode)
	assert.False(t, errors.Is(err, remotestore.ErrNotFound))
}

func TestEngine_OverHTTP(t *testing.T) {
	srv, token := newServer(t)
	ctx := context.Background()
	e := todosync.New(httpstore.New(srv.URL, staticToken(token), quiet()), todosync.Options{Logger: log.New(io.Discard)})

	require.NoError(t, e.OnIdentityChange(ctx, auth.Identity{Name: "normal_user"}))
	require.NoError(t, e.AddTodo(ctx, "Buy milk", models.NewDeadline(2024, 1, 1)))
	require.NoError(t, e.AddTodo(ctx, "Call mom", models.NewDeadline(2023, 12, 25)))

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "2023-12-25 : Call mom", items[0].DisplayText)
	assert.Equal(t, "2024-01-01 : Buy milk", items[1].DisplayText)

	require.NoError(t, e.ToggleTodo(ctx, items[0].ID))
	require.NoError(t, e.DeleteTodo(ctx, items[1].ID))

	// 再読み込みしても同じ状態
	require.NoError(t, e.OnIdentityChange(ctx, auth.Identity{Name: "normal_user"}))
	items = e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "2023-12-25 : Call mom", items[0].DisplayText)
	assert.True(t, items[0].Completed)
}
