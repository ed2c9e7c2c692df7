package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"theone-todo/internal/models"
)

var (
	// ErrNotLoggedIn はトークンがない、または期限切れの場合のエラーです。
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrLoginFailed はサーバーがログインを拒否した場合のエラーです。
	ErrLoginFailed = errors.New("login failed")
)

// Credentials は資格情報ファイルの内容です。
type Credentials struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// SessionConfig は Session の設定です。
type SessionConfig struct {
	BaseURL string
	// CredentialsPath が空なら ~/.theone/credentials.json
	CredentialsPath string
	// Token が設定されていれば資格情報ファイルより優先します (THEONE_TOKEN)。
	Token  string
	Client *http.Client
	Logger *log.Logger
}

// Session は API サーバーへのログイン状態を持つ Provider です。
type Session struct {
	broadcaster

	baseURL string
	path    string
	client  *http.Client
	logger  *log.Logger

	tokMu   sync.Mutex
	token   string
	expires time.Time
}

var _ Provider = (*Session)(nil)

// DefaultCredentialsPath は ~/.theone/credentials.json を返します。
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, ".theone", "credentials.json"), nil
}

// NewSession は保存済みの資格情報を読み込んで Session を作成します。
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.CredentialsPath == "" {
		p, err := DefaultCredentialsPath()
		if err != nil {
			return nil, err
		}
		cfg.CredentialsPath = p
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("auth")
	}
	s := &Session{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		path:    cfg.CredentialsPath,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}

	token := cfg.Token
	if token == "" {
		creds, err := s.readCredentials()
		if err != nil {
			return nil, err
		}
		token = creds.Token
	}
	if token != "" {
		id, exp, err := parseToken(token)
		if err != nil {
			s.logger.Warn("Ignoring unreadable token", "err", err)
		} else {
			s.token, s.expires = token, exp
			if exp.IsZero() || time.Now().Before(exp) {
				s.current = id
			}
		}
	}
	return s, nil
}

// Current は現在の Identity です。トークンが期限切れなら未認証になります。
func (s *Session) Current() Identity {
	if _, err := s.Token(); errors.Is(err, ErrNotLoggedIn) {
		s.publish(None)
	}
	return s.broadcaster.Current()
}

// Token は有効な Bearer トークンを返します。
func (s *Session) Token() (string, error) {
	s.tokMu.Lock()
	defer s.tokMu.Unlock()
	if s.token == "" {
		return "", ErrNotLoggedIn
	}
	if !s.expires.IsZero() && !time.Now().Before(s.expires) {
		return "", fmt.Errorf("%w: token expired at %s", ErrNotLoggedIn, s.expires.Format(time.RFC3339))
	}
	return s.token, nil
}

// Login は email/password でログインし、トークンを資格情報ファイルに保存します。
func (s *Session) Login(ctx context.Context, email, password string) (Identity, error) {
	body, err := json.Marshal(models.UserLoginRequest{Email: email, Password: password})
	if err != nil {
		return None, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return None, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return None, fmt.Errorf("could not reach %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return None, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return None, fmt.Errorf("%w: %s", ErrLoginFailed, msg)
	}

	var lr models.LoginResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return None, fmt.Errorf("decode login response: %w", err)
	}
	id, exp, err := parseToken(lr.Token)
	if err != nil {
		return None, err
	}
	if err := s.writeCredentials(Credentials{Server: s.baseURL, Username: id.Name, Token: lr.Token}); err != nil {
		return None, err
	}

	s.tokMu.Lock()
	s.token, s.expires = lr.Token, exp
	s.tokMu.Unlock()
	s.publish(id)
	s.logger.Info("Logged in", "user", id.Name, "server", s.baseURL)
	return id, nil
}

// Logout は資格情報ファイルを削除し、未認証にします。
func (s *Session) Logout() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove credentials: %w", err)
	}
	s.tokMu.Lock()
	s.token, s.expires = "", time.Time{}
	s.tokMu.Unlock()
	s.publish(None)
	return nil
}

func (s *Session) readCredentials() (Credentials, error) {
	var creds Credentials
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("could not read credentials: %w", err)
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("could not parse %s: %w", s.path, err)
	}
	return creds, nil
}

func (s *Session) writeCredentials(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("could not create credentials directory: %w", err)
	}
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("could not write credentials: %w", err)
	}
	return nil
}

// parseToken は署名を検証せずに "name" と "exp" を読みます。
// 署名の検証はサーバー側で行います。
func parseToken(token string) (Identity, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return None, time.Time{}, fmt.Errorf("malformed token: %w", err)
	}
	name, _ := claims["name"].(string)
	if name == "" {
		return None, time.Time{}, errors.New("token has no name claim")
	}
	var exp time.Time
	if e, err := claims.GetExpirationTime(); err == nil && e != nil {
		exp = e.Time
	}
	return Identity{Name: name}, exp, nil
}
