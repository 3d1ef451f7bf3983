package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"linkhub-go/internal/model"
)

func seedUser(t *testing.T, e *testEnv, username, password, role string, enabled bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.users.Create(context.Background(), &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      enabled,
	}))
}

func TestLoginSuccess(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "alice", "s3cret", model.RoleUser, true)

	w := e.do(newJSONRequest(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice", "password": "s3cret"}))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, []any{"USER"}, body["roles"])
}

func TestLoginFailures(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "alice", "s3cret", model.RoleUser, true)
	seedUser(t, e, "carol", "s3cret", model.RoleUser, false)

	cases := []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "carol", "password": "s3cret"},
		{"username": "nobody", "password": "s3cret"},
	}
	for _, body := range cases {
		w := e.do(newJSONRequest(t, http.MethodPost, "/api/auth/login", "", body))
		require.Equal(t, http.StatusUnauthorized, w.Code, body["username"])
		assert.Equal(t, "Invalid username or password", decodeJSON(t, w)["message"], body["username"])
	}
}

func TestLoginMalformedBody(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(newJSONRequest(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice"}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Parameter verification failed", decodeJSON(t, w)["message"])
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "alice", "s3cret", model.RoleAdmin, true)

	w := e.do(newJSONRequest(t, http.MethodGet, "/api/auth/me", e.token(t, "alice", model.RoleAdmin), nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, []any{"ADMIN"}, body["roles"])
	// /me 不回传令牌
	assert.NotContains(t, body, "token")
}

func TestMeRequiresValidToken(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(newJSONRequest(t, http.MethodGet, "/api/auth/me", "", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication required", decodeJSON(t, w)["message"])

	w = e.do(newJSONRequest(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
