// Package memstore はメモリ上の remotestore.Store 実装です。
// 失敗の注入とクエリの一時停止ができるので、同期エンジンのテストに使います。
package memstore

import (
	"context"
	"fmt"
	"sync"

	"theone-todo/internal/models"
	"theone-todo/internal/remotestore"
)

// Call は記録されたストア呼び出しです。Key はクエリなら所有者、それ以外はID。
type Call struct {
	Op  string
	Key string
}

// Gate は保留中のクエリを表します。
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered はクエリがゲートに到達すると閉じられます。
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release は保留中のクエリを再開させます。
func (g *Gate) Release() { g.once.Do(func() { close(g.release) }) }

// Store はメモリ上のストアです。IDは "todo-1", "todo-2", ... と採番します。
type Store struct {
	mu       sync.Mutex
	seq      int
	docs     map[string]models.TodoItem
	order    []string // 挿入順
	failures map[string]error
	gates    map[string]*Gate
	calls    []Call
}

var _ remotestore.Store = (*Store)(nil)

// New は空のストアを作成します。
func New() *Store {
	return &Store{
		docs:     map[string]models.TodoItem{},
		failures: map[string]error{},
		gates:    map[string]*Gate{},
	}
}

// Seed はドキュメントを直接追加し、採番したIDを返します。呼び出しは記録しません。
func (s *Store) Seed(item models.TodoItem) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(item)
}

// FailOn は op の呼び出しを err で失敗させます (ClearFailures まで)。
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// ClearFailures は注入した失敗をすべて解除します。
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]error{}
}

// Hold は次の owner へのクエリを Release されるまで止めます。
func (s *Store) Hold(owner string) *Gate {
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.gates[owner] = g
	s.mu.Unlock()
	return g
}

// Calls はこれまでの呼び出しを順に返します。
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Get はIDでドキュメントを取得します。
func (s *Store) Get(id string) (models.TodoItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.docs[id]
	return item, ok
}

// Len は保存されているドキュメント数です。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Store) Query(ctx context.Context, owner string) ([]models.TodoItem, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Op: remotestore.OpQuery, Key: owner})
	gate := s.gates[owner]
	delete(s.gates, owner)
	s.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		select {
		case <-gate.release:
		case <-ctx.Done():
			return nil, remotestore.Wrap(remotestore.OpQuery, "", ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[remotestore.OpQuery]; err != nil {
		return nil, remotestore.Wrap(remotestore.OpQuery, "", err)
	}
	items := []models.TodoItem{}
	for _, id := range s.order {
		if doc := s.docs[id]; doc.OwnerName == owner {
			items = append(items, doc)
		}
	}
	models.SortByDeadline(items)
	return items, nil
}

func (s *Store) Create(ctx context.Context, item models.TodoItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: remotestore.OpCreate, Key: item.OwnerName})
	if err := s.failures[remotestore.OpCreate]; err != nil {
		return "", remotestore.Wrap(remotestore.OpCreate, "", err)
	}
	if err := ctx.Err(); err != nil {
		return "", remotestore.Wrap(remotestore.OpCreate, "", err)
	}
	return s.insert(item), nil
}

func (s *Store) Update(ctx context.Context, id string, patch models.TodoPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: remotestore.OpUpdate, Key: id})
	if err := s.failures[remotestore.OpUpdate]; err != nil {
		return remotestore.Wrap(remotestore.OpUpdate, id, err)
	}
	doc, ok := s.docs[id]
	if !ok {
		return remotestore.Wrap(remotestore.OpUpdate, id, remotestore.ErrNotFound)
	}
	if patch.Completed != nil {
		doc.Completed = *patch.Completed
	}
	if patch.DisplayText != nil {
		doc.DisplayText = *patch.DisplayText
	}
	if patch.Deadline != nil {
		doc.Deadline = *patch.Deadline
	}
	s.docs[id] = doc
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: remotestore.OpDelete, Key: id})
	if err := s.failures[remotestore.OpDelete]; err != nil {
		return remotestore.Wrap(remotestore.OpDelete, id, err)
	}
	if _, ok := s.docs[id]; !ok {
		return remotestore.Wrap(remotestore.OpDelete, id, remotestore.ErrNotFound)
	}
	delete(s.docs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) insert(item models.TodoItem) string {
	s.seq++
	id := fmt.Sprintf("todo-%d", s.seq)
	item.ID = id
	s.docs[id] = item
	s.order = append(s.order, id)
	return id
}
