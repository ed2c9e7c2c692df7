package repositories_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theone-todo/internal/config"
	"theone-todo/internal/database"
	"theone-todo/internal/models"
	"theone-todo/internal/repositories"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTodo(t *testing.T, repo *repositories.TodoRepository, owner, text string, deadline models.Deadline) *models.TodoItem {
	t.Helper()
	created, err := repo.Create(context.Background(), &models.TodoItem{
		OwnerName:   owner,
		DisplayText: models.ComposeDisplayText(deadline, text),
		Deadline:    deadline,
	})
	require.NoError(t, err)
	return created
}

func TestTodoRepository_CreateAndFind(t *testing.T) {
	repo := repositories.NewTodoRepository(openTestDB(t))
	ctx := context.Background()

	created := createTodo(t, repo, "neo", "Buy milk", models.NewDeadline(2024, time.January, 1))
	require.NotEmpty(t, created.ID)
	require.Len(t, created.ID, 36, "expected a UUID")
	assert.WithinDuration(t, time.Now(), created.CreatedAt, 5*time.Second)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "neo", found.OwnerName)
	assert.Equal(t, "2024-01-01 : Buy milk", found.DisplayText)
	assert.False(t, found.Completed)
	assert.Equal(t, "2024-01-01", found.Deadline.String())
}

func TestTodoRepository_FindByOwner_OrderedByDeadline(t *testing.T) {
	repo := repositories.NewTodoRepository(openTestDB(t))
	ctx := context.Background()

	createTodo(t, repo, "neo", "no deadline", models.Deadline{})
	createTodo(t, repo, "neo", "Buy milk", models.NewDeadline(2024, time.January, 1))
	createTodo(t, repo, "trinity", "not mine", models.NewDeadline(2020, time.January, 1))
	createTodo(t, repo, "neo", "Call mom", models.NewDeadline(2023, time.December, 25))

	todos, err := repo.FindByOwner(ctx, "neo")
	require.NoError(t, err)
	require.Len(t, todos, 3)
	assert.Equal(t, "2023-12-25 : Call mom", todos[0].DisplayText)
	assert.Equal(t, "2024-01-01 : Buy milk", todos[1].DisplayText)
	assert.Equal(t, " : no deadline", todos[2].DisplayText)
	for _, todo := range todos {
		assert.Equal(t, "neo", todo.OwnerName)
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "trinity", all[0].OwnerName)

	none, err := repo.FindByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTodoRepository_Update(t *testing.T) {
	repo := repositories.NewTodoRepository(openTestDB(t))
	ctx := context.Background()
	created := createTodo(t, repo, "neo", "Buy milk", models.Deadline{})

	done := true
	updated, err := repo.Update(ctx, created.ID, models.TodoPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, created.DisplayText, updated.DisplayText)
	assert.Equal(t, "neo", updated.OwnerName)

	deadline := models.NewDeadline(2025, time.February, 3)
	updated, err = repo.Update(ctx, created.ID, models.TodoPatch{Deadline: &deadline})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-03", updated.Deadline.String())
	assert.True(t, updated.Completed, "unpatched fields keep their values")

	_, err = repo.Update(ctx, "missing", models.TodoPatch{Completed: &done})
	assert.ErrorIs(t, err, repositories.ErrTodoNotFound)
}

func TestTodoRepository_Delete(t *testing.T) {
	repo := repositories.NewTodoRepository(openTestDB(t))
	ctx := context.Background()
	created := createTodo(t, repo, "neo", "Buy milk", models.Deadline{})

	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err := repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, repositories.ErrTodoNotFound)

	err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, repositories.ErrTodoNotFound)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo := repositories.NewUserRepository(openTestDB(t))
	ctx := context.Background()

	hash, err := repositories.HashPassword("password123")
	require.NoError(t, err)

	u := &models.User{Username: "neo", Email: "neo@example.com", PasswordHash: hash, Role: models.RoleUser}
	created, err := repo.Create(ctx, u)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	dup := &models.User{Username: "neo2", Email: "neo@example.com", PasswordHash: hash, Role: models.RoleUser}
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, repositories.ErrDuplicateEmail)

	found, err := repo.FindByEmail(ctx, "neo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "neo", found.Username)
	assert.NoError(t, repositories.VerifyPassword(found.PasswordHash, "password123"))

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}
