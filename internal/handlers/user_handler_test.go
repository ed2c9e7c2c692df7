package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theone-todo/internal/models"
	"theone-todo/testutil"
)

func TestRegisterUser_Success(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "newpassword",
	})
	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP Status Code 201 Created")

	var responseUser models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &responseUser))
	assert.NotZero(t, responseUser.ID, "Expected a non-zero User ID")
	assert.Equal(t, "newuser", responseUser.Username)
	assert.Equal(t, "newuser@example.com", responseUser.Email)
	assert.Equal(t, "user", responseUser.Role, "Expected default role to be 'user'")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegisterUser_InvalidInput(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "invaliduser",
		"email":    "invalid@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "Invalid request payload")
}

func TestRegisterUser_Duplicate(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	for _, body := range []map[string]string{
		{"username": "anotheruser", "email": "normal_user@example.com", "password": "somepassword"},
		{"username": "normal_user", "email": "fresh@example.com", "password": "somepassword"},
	} {
		w := testutil.DoJSON(t, r, http.MethodPost, "/api/register", "", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		var response map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response["error"], "Username or email already exists")
	}
}

func TestLoginUser_Success(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/login", "", models.UserLoginRequest{
		Email: "normal_user@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "normal_user", resp.Username)
	assert.Equal(t, models.RoleUser, resp.Role)
	assert.NotZero(t, resp.UserID)

	// クライアントは "name" クレームを所有者名として読む
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(resp.Token, claims)
	require.NoError(t, err)
	assert.Equal(t, "normal_user", claims["name"])
}

func TestLoginUser_InvalidCredentials(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	for _, req := range []models.UserLoginRequest{
		{Email: "normal_user@example.com", Password: "wrongpassword"},
		{Email: "nobody@example.com", Password: "password123"},
	} {
		w := testutil.DoJSON(t, r, http.MethodPost, "/api/login", "", req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	}
}
