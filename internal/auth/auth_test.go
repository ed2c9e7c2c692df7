package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theone-todo/internal/models"
)

func signToken(t *testing.T, name string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1, "name": name, "email": name + "@example.com", "role": "user", "exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestStatic_SubscribeReplaysAndFollows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewStatic("neo")
	ch := p.Subscribe(ctx)
	assert.Equal(t, Identity{Name: "neo"}, <-ch)

	p.Set(Identity{Name: "smith"})
	p.Set(None)
	// 読まれていない値は最新で置き換えられる
	assert.Equal(t, None, <-ch)
	assert.False(t, p.Current().Authenticated())

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestStatic_SetSameIdentityDoesNotNotify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewStatic("neo")
	ch := p.Subscribe(ctx)
	<-ch

	p.Set(Identity{Name: "neo"})
	select {
	case id := <-ch:
		t.Fatalf("unexpected event %v", id)
	case <-time.After(20 * time.Millisecond):
	}
}

func newLoginServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.UserLoginRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/api/login" || req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.LoginResponse{Token: token, UserID: 1, Username: "neo", Role: "user"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_LoginPersistsAndLogoutForgets(t *testing.T) {
	token := signToken(t, "neo", time.Now().Add(time.Hour))
	srv := newLoginServer(t, token)
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	cfg := SessionConfig{BaseURL: srv.URL, CredentialsPath: path, Logger: log.New(io.Discard)}

	s, err := NewSession(cfg)
	require.NoError(t, err)
	assert.Equal(t, None, s.Current())
	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Subscribe(ctx)
	assert.Equal(t, None, <-events)

	_, err = s.Login(ctx, "neo@example.com", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)

	id, err := s.Login(ctx, "neo@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, Identity{Name: "neo"}, id)
	assert.Equal(t, id, <-events)
	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, token, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// 保存された資格情報は次のセッションで読み込まれる
	again, err := NewSession(cfg)
	require.NoError(t, err)
	assert.Equal(t, id, again.Current())

	require.NoError(t, s.Logout())
	assert.Equal(t, None, <-events)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, s.Logout(), "logout twice is fine")
}

func TestSession_ExpiredTokenIsUnauthenticated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s, err := NewSession(SessionConfig{
		CredentialsPath: path,
		Token:           signToken(t, "neo", time.Now().Add(-time.Minute)),
		Logger:          log.New(io.Discard),
	})
	require.NoError(t, err)
	assert.Equal(t, None, s.Current())
	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSession_EnvTokenOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	fileToken := signToken(t, "smith", time.Now().Add(time.Hour))
	raw, _ := json.Marshal(Credentials{Token: fileToken, Username: "smith"})
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	s, err := NewSession(SessionConfig{CredentialsPath: path, Logger: log.New(io.Discard)})
	require.NoError(t, err)
	assert.Equal(t, "smith", s.Current().Name)

	s, err = NewSession(SessionConfig{
		CredentialsPath: path,
		Token:           signToken(t, "neo", time.Now().Add(time.Hour)),
		Logger:          log.New(io.Discard),
	})
	require.NoError(t, err)
	assert.Equal(t, "neo", s.Current().Name)
}
