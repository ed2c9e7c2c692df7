package services

import (
	"context"

	"theone-todo/internal/models"
	"theone-todo/internal/repositories"
)

// Caller はリクエストを送ってきたユーザーです (JWTクレーム由来)。
type Caller struct {
	UserID int
	Name   string
	Role   string
}

// IsAdmin は管理者かどうかを返します。
func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

func (c Caller) canAccess(owner string) bool {
	return owner == c.Name || c.IsAdmin()
}

// TodoService はTodo関連のビジネスロジックを扱います。
type TodoService struct {
	todoRepo *repositories.TodoRepository
}

// NewTodoService は新しいTodoServiceを作成します。
func NewTodoService(todoRepo *repositories.TodoRepository) *TodoService {
	return &TodoService{todoRepo: todoRepo}
}

// ListTodos は owner のTodoを期限順で取得します。owner が空なら呼び出し元のもの。
// 他人のTodoを取得できるのはadminのみです。
func (s *TodoService) ListTodos(ctx context.Context, owner string, caller Caller) ([]*models.TodoItem, error) {
	if owner == "" {
		owner = caller.Name
	}
	if !caller.canAccess(owner) {
		return nil, repositories.ErrTodoForbidden
	}
	return s.todoRepo.FindByOwner(ctx, owner)
}

// ListAllTodos はすべてのユーザーのTodoを取得します (adminのみ)。
func (s *TodoService) ListAllTodos(ctx context.Context, caller Caller) ([]*models.TodoItem, error) {
	if !caller.IsAdmin() {
		return nil, repositories.ErrTodoForbidden
	}
	return s.todoRepo.FindAll(ctx)
}

// CreateTodo は新しいTodoを作成します。所有者は呼び出し元に限ります。
func (s *TodoService) CreateTodo(ctx context.Context, todo *models.TodoItem, caller Caller) (*models.TodoItem, error) {
	if todo.OwnerName == "" {
		todo.OwnerName = caller.Name
	}
	if todo.OwnerName != caller.Name {
		return nil, repositories.ErrTodoForbidden
	}
	return s.todoRepo.Create(ctx, todo)
}

// GetTodoByID は指定IDのTodoを取得し、認可チェックを行います。
func (s *TodoService) GetTodoByID(ctx context.Context, id string, caller Caller) (*models.TodoItem, error) {
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.canAccess(todo.OwnerName) {
		return nil, repositories.ErrTodoForbidden
	}
	return todo, nil
}

// UpdateTodo はTodoを部分更新し、認可チェックを行います。
// 他人のTodoは管理者であっても変更できません (削除も同様)。
func (s *TodoService) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch, caller Caller) (*models.TodoItem, error) {
	existing, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.OwnerName != caller.Name {
		return nil, repositories.ErrTodoForbidden
	}
	return s.todoRepo.Update(ctx, id, patch)
}

// DeleteTodo はTodoを削除し、認可チェックを行います。
func (s *TodoService) DeleteTodo(ctx context.Context, id string, caller Caller) error {
	existing, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerName != caller.Name {
		return repositories.ErrTodoForbidden
	}
	return s.todoRepo.Delete(ctx, id)
}
