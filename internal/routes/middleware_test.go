package routes_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theone-todo/testutil"
)

func TestAuthMiddleware_ValidToken(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/protected", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Access granted", response["message"])
	assert.Equal(t, float64(1), response["user_id"]) // user_idはfloat64でデコードされる
	assert.Equal(t, "normal_user", response["username"])
	assert.Equal(t, "normal_user@example.com", response["email"])
	assert.Equal(t, "user", response["role"])
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no token", "", "Authorization header required"},
		{"no bearer prefix", "Token abc", "Invalid token format"},
		{"invalid token", "Bearer invalid.jwt.token", "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/api/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var response map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Contains(t, response["error"], tt.want)
		})
	}
}

func TestPublicEndpoints(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/hello", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hello from Go Backend!")

	w = testutil.DoJSON(t, r, http.MethodGet, "/api/dbcheck", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
