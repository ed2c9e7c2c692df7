package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"theone-todo/internal/auth"
	"theone-todo/internal/config"
	"theone-todo/internal/database"
	"theone-todo/internal/models"
	"theone-todo/internal/remotestore"
	"theone-todo/internal/remotestore/httpstore"
	"theone-todo/internal/remotestore/sqlstore"
	"theone-todo/internal/repositories"
	"theone-todo/internal/todosync"
)

// app はコマンド1回分のエンジンと認証状態です。
type app struct {
	engine   *todosync.Engine
	provider auth.Provider
	db       *sql.DB
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// session は API サーバー用の Session を作成します。
func (o *RootOptions) session() (*auth.Session, error) {
	s, err := auth.NewSession(auth.SessionConfig{
		BaseURL:         o.cfg.Client.APIBaseURL,
		CredentialsPath: o.cfg.Client.CredentialsPath,
		Token:           o.cfg.Client.Token,
		Logger:          o.logger.WithPrefix("auth"),
	})
	if err != nil {
		return nil, WrapExitError(ExitFailure, "could not read credentials", err)
	}
	return s, nil
}

// localUser は --local モードのユーザー名です。
func (o *RootOptions) localUser() (string, error) {
	name := o.cfg.Client.LocalUser
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		return "", NewExitError(ExitCommandError, "--local needs a user name: pass --user or set THEONE_USER")
	}
	return name, nil
}

// openApp はストアを選んでエンジンを作成します。
func (o *RootOptions) openApp() (*app, error) {
	var (
		store    remotestore.Store
		provider auth.Provider
		db       *sql.DB
	)

	if o.Local {
		name, err := o.localUser()
		if err != nil {
			return nil, err
		}
		db, err = database.InitDB(config.DatabaseConfig{Driver: "sqlite3", Path: o.cfg.Client.LocalDBPath})
		if err != nil {
			return nil, WrapExitError(ExitFailure, "could not open local store", err)
		}
		store = sqlstore.New(repositories.NewTodoRepository(db))
		provider = auth.NewStatic(name)
		o.logger.Debug("Using local store", "path", o.cfg.Client.LocalDBPath, "user", name)
	} else {
		s, err := o.session()
		if err != nil {
			return nil, err
		}
		store = httpstore.New(o.cfg.Client.APIBaseURL, s, httpstore.Options{Logger: o.logger.WithPrefix("http")})
		provider = s
		o.logger.Debug("Using API server", "url", o.cfg.Client.APIBaseURL)
	}

	engine := todosync.New(store, todosync.Options{
		Timeout: o.cfg.Client.RemoteTimeout.Duration,
		Logger:  o.logger.WithPrefix("sync"),
	})
	return &app{engine: engine, provider: provider, db: db}, nil
}

// load は現在のユーザーにバインドしてリストを読み込みます。
func (a *app) load(ctx context.Context) error {
	id := a.provider.Current()
	if !id.Authenticated() {
		return NewExitError(ExitCommandError, "not logged in: run `todo login` or use --local")
	}
	if err := a.engine.OnIdentityChange(ctx, id); err != nil {
		return WrapExitError(ExitFailure, "could not load todos", err)
	}
	return nil
}

// resolve は id (または一意な接頭辞) に一致する自分の ToDo を探します。
func (a *app) resolve(id string) (models.TodoItem, error) {
	var matches []models.TodoItem
	for _, it := range a.engine.Items() {
		if it.ID == id {
			return it, nil
		}
		if strings.HasPrefix(it.ID, id) {
			matches = append(matches, it)
		}
	}
	switch len(matches) {
	case 0:
		return models.TodoItem{}, NewExitError(ExitCommandError, fmt.Sprintf("no todo with id %q", id))
	case 1:
		return matches[0], nil
	default:
		return models.TodoItem{}, NewExitError(ExitCommandError, fmt.Sprintf("id %q is ambiguous (%d matches)", id, len(matches)))
	}
}
