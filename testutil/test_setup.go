// Package testutil はAPIテスト用のデータベースとルーターを用意します。
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"theone-todo/internal/config"
	"theone-todo/internal/database"
	"theone-todo/internal/models"
	"theone-todo/internal/repositories"
	"theone-todo/internal/routes"
)

// TestJWTSecret はテスト用ルーターが使うJWTシークレットです。
const TestJWTSecret = "test-secret"

// TestConfig はテスト用の設定を返します (インメモリSQLite)。
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"}
	cfg.Server.JWTSecret = TestJWTSecret
	cfg.Server.TokenTTL = config.Duration{Duration: time.Hour}
	cfg.Server.FrontendURL = "http://localhost:3000"
	return cfg
}

// SetupTestDB はテスト用のデータベースを作成し、テーブルとテストユーザーを用意します。
// normal_user (normal_user@example.com / password123) と
// admin_user (admin@example.com / adminpass) が作成済みです。
func SetupTestDB(t *testing.T) (*sql.DB, *gin.Engine, *repositories.TodoRepository, *repositories.UserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := TestConfig()
	db, err := database.InitDB(cfg.Database)
	require.NoError(t, err, "Failed to open test database")

	userRepo := repositories.NewUserRepository(db)
	CreateTestUser(t, userRepo, "normal_user", "normal_user@example.com", "password123", models.RoleUser)
	CreateTestUser(t, userRepo, "admin_user", "admin@example.com", "adminpass", models.RoleAdmin)

	router, err := routes.SetupRouter(db, cfg)
	require.NoError(t, err)
	todoRepo := repositories.NewTodoRepository(db)

	return db, router, todoRepo, userRepo
}

// CreateTestUser はユーザーをデータベースに直接作成します。
func CreateTestUser(t *testing.T, userRepo *repositories.UserRepository, username, email, password, role string) *models.User {
	t.Helper()
	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	newUser := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	createdUser, err := userRepo.Create(context.Background(), &newUser)
	require.NoError(t, err)
	require.NotNil(t, createdUser)
	require.NotEqual(t, 0, createdUser.ID)
	return createdUser
}

// CreateTestTodo はAPI経由でTODOを作成します。deadline は "YYYY-MM-DD" または空文字列。
func CreateTestTodo(t *testing.T, router *gin.Engine, token, text, deadline string) *models.TodoItem {
	t.Helper()
	d, err := models.ParseDeadline(deadline)
	require.NoError(t, err)
	body, _ := json.Marshal(models.TodoCreateRequest{
		DisplayText: models.ComposeDisplayText(d, text),
		Deadline:    d,
	})

	req, _ := http.NewRequest(http.MethodPost, "/api/todos", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())

	var createdTodo models.TodoItem
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &createdTodo))
	return &createdTodo
}

// LoginAndGetToken はログインしてJWTトークンを取得します。
func LoginAndGetToken(t *testing.T, router http.Handler, email, password string) (string, error) {
	t.Helper()
	body, _ := json.Marshal(models.UserLoginRequest{Email: email, Password: password})

	req, _ := http.NewRequest(http.MethodPost, "/api/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes models.LoginResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if loginRes.Token == "" {
		return "", errors.New("token not found in login response")
	}
	return loginRes.Token, nil
}

// DoJSON は認証付きでJSONリクエストを送ります。body が nil ならボディなし。
func DoJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
