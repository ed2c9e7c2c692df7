// Package todosync は現在のユーザーの todo リストをリモートストアと同期させます。
//
// Engine がメモリ上のリストを唯一所有し、追加・完了切り替え・削除をストアへ仲介します。
// リストは常に期限の昇順 (期限なしは末尾) に並び、現在のユーザーの todo だけを含みます。
package todosync

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"theone-todo/internal/auth"
	"theone-todo/internal/models"
	"theone-todo/internal/remotestore"
)

// DefaultTimeout はストア呼び出し1回あたりの既定のタイムアウトです。
const DefaultTimeout = 10 * time.Second

// 何もせずに終わった操作の理由です。呼び出し元には返さず、デバッグログにだけ出します。
var (
	ErrEmptyText = errors.New("todo text is empty")
	ErrUnbound   = errors.New("no authenticated user")
	ErrNotOwner  = errors.New("todo belongs to another user")
)

// Options は Engine の設定です。
type Options struct {
	// Timeout はストア呼び出しのタイムアウトです。0 以下なら DefaultTimeout。
	Timeout time.Duration
	Logger  *log.Logger
}

// Engine は todo リストの同期エンジンです。
type Engine struct {
	store   remotestore.Store
	timeout time.Duration
	logger  *log.Logger

	mu              sync.Mutex
	gen             uint64 // Identity が変わるたびに増える
	current         auth.Identity
	items           []models.TodoItem
	pendingText     string
	pendingDeadline models.Deadline
	lastErr         error

	changes chan struct{}
	locks   keyedMutex
}

// New は store を使う Engine を作成します。最初は未認証です。
func New(store remotestore.Store, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("todosync")
	}
	return &Engine{
		store:   store,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		items:   []models.TodoItem{},
		changes: make(chan struct{}, 1),
	}
}

// Items は現在のリストのコピーを返します。
func (e *Engine) Items() []models.TodoItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.items)
}

// Current はエンジンが現在バインドしている Identity です。
func (e *Engine) Current() auth.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Changes は状態が変わると通知されます。連続した変更は1回にまとめられます。
func (e *Engine) Changes() <-chan struct{} { return e.changes }

// LastError は直近のストア操作の失敗です。
// 以降の操作が成功するか、Identity が切り替わるとクリアされます。
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// PendingText は入力中のテキストです。
func (e *Engine) PendingText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingText
}

// SetPendingText は入力中のテキストを設定します。
func (e *Engine) SetPendingText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingText = text
}

// PendingDeadline は入力中の期限です。
func (e *Engine) PendingDeadline() models.Deadline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingDeadline
}

// SetPendingDeadline は入力中の期限を設定します。
func (e *Engine) SetPendingDeadline(d models.Deadline) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingDeadline = d
}

// Submit は入力中のテキストと期限で AddTodo します。
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	text, deadline := e.pendingText, e.pendingDeadline
	e.mu.Unlock()
	return e.AddTodo(ctx, text, deadline)
}

// OnIdentityChange は id にバインドし直し、id のリストをストアから読み込みます。
// 未認証ならリストを空にするだけです。読み込み中に別の Identity に切り替わった場合、
// この読み込み結果は捨てられます。
func (e *Engine) OnIdentityChange(ctx context.Context, id auth.Identity) error {
	gen := e.bind(id)
	if !id.Authenticated() {
		return nil
	}
	return e.fetch(ctx, gen, id)
}

// Run は ids から届く Identity に追従します。ctx が終わるか ids が閉じられるまで戻りません。
// 読み込みは非同期に行い、失敗は LastError とログで報告します。
func (e *Engine) Run(ctx context.Context, ids <-chan auth.Identity) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-ids:
			if !ok {
				return
			}
			gen := e.bind(id)
			if !id.Authenticated() {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := e.fetch(ctx, gen, id); err != nil {
					e.logger.Error("Failed to load todos", "user", id.Name, "err", err)
				}
			}()
		}
	}
}

func (e *Engine) bind(id auth.Identity) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.current = id
	e.items = []models.TodoItem{}
	e.lastErr = nil
	e.notify()
	e.logger.Debug("Bound identity", "user", id)
	return e.gen
}

func (e *Engine) fetch(ctx context.Context, gen uint64, id auth.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	docs, err := e.store.Query(ctx, id.Name)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		e.logger.Debug("Discarding stale fetch", "user", id.Name)
		return nil
	}
	if err != nil {
		err = remotestore.Wrap(remotestore.OpQuery, "", err)
		e.lastErr = err
		e.notify()
		return err
	}

	items := make([]models.TodoItem, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.OwnerName != id.Name {
			e.logger.Warn("Dropping todo of another user", "id", doc.ID, "owner", doc.OwnerName)
			continue
		}
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		items = append(items, doc)
	}
	models.SortByDeadline(items)
	e.items = items
	e.notify()
	e.logger.Debug("Loaded todos", "user", id.Name, "count", len(items))
	return nil
}

// AddTodo は「期限 : テキスト」の todo を作成します。
// テキストが空白だけ、または未認証の場合は何もしません。
// 成功すると、入力中のテキストが text と同じ場合だけそれをクリアします。
// 失敗した場合はリストも入力中のテキストも変更しません。
func (e *Engine) AddTodo(ctx context.Context, text string, deadline models.Deadline) error {
	if strings.TrimSpace(text) == "" {
		e.logger.Debug("Add ignored", "err", ErrEmptyText)
		return nil
	}
	e.mu.Lock()
	owner, gen := e.current, e.gen
	e.mu.Unlock()
	if !owner.Authenticated() {
		e.logger.Debug("Add ignored", "err", ErrUnbound)
		return nil
	}

	item := models.TodoItem{
		OwnerName:   owner.Name,
		DisplayText: models.ComposeDisplayText(deadline, text),
		Deadline:    deadline,
	}
	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	id, err := e.store.Create(rctx, item)
	if err != nil {
		return e.fail(remotestore.Wrap(remotestore.OpCreate, "", err))
	}
	item.ID = id

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = nil
	if e.pendingText == text {
		e.pendingText = ""
	}
	if gen != e.gen {
		e.logger.Debug("Identity changed during add", "id", id, "owner", owner.Name)
		e.notify()
		return nil
	}
	if i := e.indexOf(id); i >= 0 {
		e.items[i] = item
	} else {
		e.items = append(e.items, item)
	}
	models.SortByDeadline(e.items)
	e.notify()
	return nil
}

// ToggleTodo は自分の todo の完了状態を反転します。
// メモリ上は先に反転し、ストアへの書き込みが失敗しても元に戻しません。
// 同じIDへの操作は順番に処理します。
func (e *Engine) ToggleTodo(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	e.mu.Lock()
	i, reason := e.ownedIndex(id)
	if reason != nil {
		e.mu.Unlock()
		e.logger.Debug("Toggle ignored", "id", id, "err", reason)
		return nil
	}
	e.items[i].Completed = !e.items[i].Completed
	completed := e.items[i].Completed
	e.notify()
	e.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.store.Update(rctx, id, models.TodoPatch{Completed: &completed}); err != nil {
		return e.fail(remotestore.Wrap(remotestore.OpUpdate, id, err))
	}
	e.mu.Lock()
	e.lastErr = nil
	e.mu.Unlock()
	return nil
}

// DeleteTodo は自分の todo を削除します。
// ストアからの削除が成功した後にリストから取り除きます。
func (e *Engine) DeleteTodo(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	e.mu.Lock()
	_, reason := e.ownedIndex(id)
	e.mu.Unlock()
	if reason != nil {
		e.logger.Debug("Delete ignored", "id", id, "err", reason)
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.store.Delete(rctx, id); err != nil {
		return e.fail(remotestore.Wrap(remotestore.OpDelete, id, err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = nil
	if i := e.indexOf(id); i >= 0 {
		e.items = slices.Delete(e.items, i, i+1)
		e.notify()
	}
	return nil
}

// ownedIndex は e.mu を保持して呼びます。
func (e *Engine) ownedIndex(id string) (int, error) {
	if !e.current.Authenticated() {
		return -1, ErrUnbound
	}
	i := e.indexOf(id)
	if i < 0 {
		return -1, remotestore.ErrNotFound
	}
	if e.items[i].OwnerName != e.current.Name {
		return -1, ErrNotOwner
	}
	return i, nil
}

func (e *Engine) indexOf(id string) int {
	return slices.IndexFunc(e.items, func(t models.TodoItem) bool { return t.ID == id })
}

func (e *Engine) fail(err error) error {
	e.logger.Warn("Remote store operation failed", "err", err)
	e.mu.Lock()
	e.lastErr = err
	e.notify()
	e.mu.Unlock()
	return err
}

// notify は e.mu を保持して呼びます。
func (e *Engine) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}
