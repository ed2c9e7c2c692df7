// Package sqlstore はローカルのデータベースを remotestore.Store として使います (オフライン用)。
package sqlstore

import (
	"context"
	"errors"

	"theone-todo/internal/models"
	"theone-todo/internal/remotestore"
	"theone-todo/internal/repositories"
)

// Store は TodoRepository を Store に適合させます。
type Store struct {
	repo *repositories.TodoRepository
}

var _ remotestore.Store = (*Store)(nil)

// New は repo を使う Store を作成します。
func New(repo *repositories.TodoRepository) *Store {
	return &Store{repo: repo}
}

func (s *Store) Query(ctx context.Context, owner string) ([]models.TodoItem, error) {
	rows, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, wrap(remotestore.OpQuery, "", err)
	}
	items := make([]models.TodoItem, len(rows))
	for i, t := range rows {
		items[i] = *t
	}
	return items, nil
}

func (s *Store) Create(ctx context.Context, item models.TodoItem) (string, error) {
	created, err := s.repo.Create(ctx, &item)
	if err != nil {
		return "", wrap(remotestore.OpCreate, "", err)
	}
	return created.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, patch models.TodoPatch) error {
	_, err := s.repo.Update(ctx, id, patch)
	return wrap(remotestore.OpUpdate, id, err)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return wrap(remotestore.OpDelete, id, s.repo.Delete(ctx, id))
}

func wrap(op, id string, err error) error {
	if errors.Is(err, repositories.ErrTodoNotFound) {
		err = errors.Join(remotestore.ErrNotFound, err)
	}
	return remotestore.Wrap(op, id, err)
}
