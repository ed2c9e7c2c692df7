package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"theone-todo/internal/models"
)

var (
	// ErrTodoNotFound はTODOが見つからない場合のエラーです。
	ErrTodoNotFound = errors.New("todo not found")
	// ErrTodoForbidden は他人のTODOにアクセスしようとした場合のエラーです。
	ErrTodoForbidden = errors.New("todo access forbidden")
)

const todoColumns = "id, owner_name, display_text, completed, deadline, created_at, updated_at"

// 期限なし (NULL) は末尾、同じ期限は作成順
const todoOrder = "ORDER BY deadline IS NULL, deadline ASC, created_at ASC"

// TodoRepository はtodosテーブルの操作を行います。
type TodoRepository struct {
	DB *sql.DB
}

// NewTodoRepository は新しいTodoRepositoryインスタンスを作成します。
func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{DB: db}
}

// Create は新しいTodoを挿入します。IDはここで採番します (UUIDv7)。
func (r *TodoRepository) Create(ctx context.Context, t *models.TodoItem) (*models.TodoItem, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("could not generate todo id: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)

	query := "INSERT INTO todos (" + todoColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err = r.DB.ExecContext(ctx, query, id.String(), t.OwnerName, t.DisplayText, t.Completed, t.Deadline, now, now)
	if err != nil {
		log.Error("Failed to insert todo", "owner", t.OwnerName, "err", err)
		return nil, fmt.Errorf("could not insert todo: %w", err)
	}

	created := *t
	created.ID = id.String()
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// FindByOwner は指定した所有者のTodoを期限の昇順で取得します。
func (r *TodoRepository) FindByOwner(ctx context.Context, owner string) ([]*models.TodoItem, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE owner_name = ? " + todoOrder
	return r.queryTodos(ctx, query, owner)
}

// FindAll はすべてのTodoを期限の昇順で取得します (admin用)。
func (r *TodoRepository) FindAll(ctx context.Context) ([]*models.TodoItem, error) {
	query := "SELECT " + todoColumns + " FROM todos " + todoOrder
	return r.queryTodos(ctx, query)
}

func (r *TodoRepository) queryTodos(ctx context.Context, query string, args ...interface{}) ([]*models.TodoItem, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("Failed to query todos", "err", err)
		return nil, fmt.Errorf("could not query todos: %w", err)
	}
	defer rows.Close()

	todos := []*models.TodoItem{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			log.Error("Failed to scan todo", "err", err)
			return nil, fmt.Errorf("could not scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

// FindByID は指定されたIDのTodoを取得します。
func (r *TodoRepository) FindByID(ctx context.Context, id string) (*models.TodoItem, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE id = ?"
	t, err := scanTodo(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		log.Error("Failed to query todo by ID", "id", id, "err", err)
		return nil, fmt.Errorf("could not query todo: %w", err)
	}
	return t, nil
}

// Update は指定されたIDのTodoを部分更新し、更新後のTodoを返します。
func (r *TodoRepository) Update(ctx context.Context, id string, patch models.TodoPatch) (*models.TodoItem, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	var sets []string
	var args []interface{}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	if patch.DisplayText != nil {
		sets = append(sets, "display_text = ?")
		args = append(args, *patch.DisplayText)
	}
	if patch.Deadline != nil {
		sets = append(sets, "deadline = ?")
		args = append(args, *patch.Deadline)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Truncate(time.Microsecond), id)

	query := "UPDATE todos SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("Failed to update todo", "id", id, "err", err)
		return nil, fmt.Errorf("could not update todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrTodoNotFound
	}

	return r.FindByID(ctx, id)
}

// Delete は指定されたIDのTodoを削除します。
func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		log.Error("Failed to delete todo", "id", id, "err", err)
		return fmt.Errorf("could not delete todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTodo(row rowScanner) (*models.TodoItem, error) {
	var t models.TodoItem
	err := row.Scan(&t.ID, &t.OwnerName, &t.DisplayText, &t.Completed, &t.Deadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
