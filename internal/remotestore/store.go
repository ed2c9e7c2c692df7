// Package remotestore は todo ドキュメントを保存するリモートストアの契約を定義します。
package remotestore

import (
	"context"
	"errors"
	"fmt"

	"theone-todo/internal/models"
)

// 操作名 (PersistenceError.Op)
const (
	OpQuery  = "query"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ErrNotFound は対象のドキュメントが存在しない場合のエラーです。
var ErrNotFound = errors.New("document not found")

// Store は所有者ごとのクエリと1件単位の作成・更新・削除を提供します。
// すべての失敗は *PersistenceError で返します。
type Store interface {
	// Query は owner のドキュメントを期限の昇順で返します。
	Query(ctx context.Context, owner string) ([]models.TodoItem, error)
	// Create はドキュメントを保存し、採番されたIDを返します。
	Create(ctx context.Context, item models.TodoItem) (string, error)
	// Update は patch の非nilフィールドだけを書き換えます。
	Update(ctx context.Context, id string, patch models.TodoPatch) error
	Delete(ctx context.Context, id string) error
}

// PersistenceError はリモートストア操作の失敗です (通信、権限、not found、タイムアウト)。
type PersistenceError struct {
	Op         string
	ID         string
	StatusCode int // HTTP 経由のときのみ
	Err        error
}

func (e *PersistenceError) Error() string {
	msg := "remote " + e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	return msg + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Wrap は err を PersistenceError にします。nil はそのまま、既に PersistenceError なら包み直しません。
func Wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, ID: id, Err: err}
}

// IsPersistence は err が PersistenceError かどうかを返します。
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
