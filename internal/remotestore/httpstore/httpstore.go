// Package httpstore は todo API サーバーを remotestore.Store として使うクライアントです。
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"theone-todo/internal/models"
	"theone-todo/internal/remotestore"
)

// TokenSource は Bearer トークンを返します (auth.Session)。
type TokenSource interface {
	Token() (string, error)
}

// Options は Store の設定です。
type Options struct {
	Client *http.Client
	Logger *log.Logger
}

// Store は /api/todos を叩く remotestore.Store です。
type Store struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  *log.Logger
}

var _ remotestore.Store = (*Store)(nil)

// New は baseURL (例: http://localhost:8080) のサーバーに接続する Store を作成します。
// タイムアウトは呼び出し側の context で制御します。
func New(baseURL string, tokens TokenSource, opts Options) *Store {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("httpstore")
	}
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  opts.Client,
		logger:  opts.Logger,
	}
}

func (s *Store) Query(ctx context.Context, owner string) ([]models.TodoItem, error) {
	path := "/api/todos?owner=" + url.QueryEscape(owner)
	var items []models.TodoItem
	if err := s.do(ctx, remotestore.OpQuery, "", http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.TodoItem{}
	}
	return items, nil
}

func (s *Store) Create(ctx context.Context, item models.TodoItem) (string, error) {
	body := models.TodoCreateRequest{
		OwnerName:   item.OwnerName,
		DisplayText: item.DisplayText,
		Completed:   item.Completed,
		Deadline:    item.Deadline,
	}
	var created models.TodoItem
	if err := s.do(ctx, remotestore.OpCreate, "", http.MethodPost, "/api/todos", body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &remotestore.PersistenceError{Op: remotestore.OpCreate, Err: errors.New("server returned no id")}
	}
	return created.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, patch models.TodoPatch) error {
	return s.do(ctx, remotestore.OpUpdate, id, http.MethodPatch, "/api/todos/"+url.PathEscape(id), patch, nil)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.do(ctx, remotestore.OpDelete, id, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, nil)
}

// apiError はサーバーのエラーレスポンス {"error": "..."} です。
type apiError struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Store) do(ctx context.Context, op, id, method, path string, in, out interface{}) error {
	fail := func(status int, err error) error {
		return &remotestore.PersistenceError{Op: op, ID: id, StatusCode: status, Err: err}
	}

	token, err := s.tokens.Token()
	if err != nil {
		return fail(0, err)
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fail(0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()
	s.logger.Debug("Request done", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
			if len(apiErr.Details) > 0 {
				msg += ": " + strings.Join(apiErr.Details, "; ")
			}
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		err := errors.New(msg)
		if resp.StatusCode == http.StatusNotFound {
			err = fmt.Errorf("%w: %s", remotestore.ErrNotFound, msg)
		}
		return fail(resp.StatusCode, err)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
