package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/adapter/store"
	"github.com/arturoeanton/go-mini-rag/internal/middleware"
	"github.com/arturoeanton/go-mini-rag/internal/service"
)

func newAuthTestApp(t *testing.T) *fiber.App {
	t.Helper()
	users := store.NewUserStore()
	require.NoError(t, users.Seed())
	auth := service.NewAuthService(users, service.AuthConfig{
		Secret:     "test-secret",
		Issuer:     "mini-rag",
		Expiration: time.Minute,
	}, zap.NewNop())

	app := fiber.New()
	h := NewAuthHandler(auth)
	h.RegisterPublic(app)
	protected := app.Group("", middleware.JWT(auth))
	h.Register(protected)
	return app
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"username":"`+username+`","password":"`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)
	require.Equal(t, "bearer", body.TokenType)
	return body.AccessToken
}

func authedRequest(method, path, body, token string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestLoginSuccess(t *testing.T) {
	app := newAuthTestApp(t)
	login(t, app, "admin", "admin123")
}

func TestLoginWrongPassword(t *testing.T) {
	app := newAuthTestApp(t)

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"username":"admin","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLoginMissingFields(t *testing.T) {
	app := newAuthTestApp(t)

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"username":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMe(t *testing.T) {
	app := newAuthTestApp(t)
	token := login(t, app, "user", "user123")

	resp, err := app.Test(authedRequest("GET", "/auth/me", "", token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "user", body["username"])
	assert.NotContains(t, body, "password_hash", "hash must never be serialized")
}

func TestLogoutInvalidatesToken(t *testing.T) {
	app := newAuthTestApp(t)
	token := login(t, app, "user", "user123")

	resp, err := app.Test(authedRequest("POST", "/auth/logout", "", token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(authedRequest("GET", "/auth/me", "", token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterRequiresAdmin(t *testing.T) {
	app := newAuthTestApp(t)
	token := login(t, app, "user", "user123")

	req := authedRequest("POST", "/auth/register", `{"username":"mallory","password":"secret1"}`, token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminUserLifecycle(t *testing.T) {
	app := newAuthTestApp(t)
	admin := login(t, app, "admin", "admin123")

	// create
	req := authedRequest("POST", "/auth/register",
		`{"username":"alice","password":"secret1","email":"alice@example.com","full_name":"Alice"}`, admin)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// fetch
	resp, err = app.Test(authedRequest("GET", "/auth/users/alice", "", admin))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// the new account can log in
	login(t, app, "alice", "secret1")

	// patch
	resp, err = app.Test(authedRequest("PUT", "/auth/users/alice", `{"email":"new@example.com"}`, admin))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "new@example.com", updated["email"])

	// delete
	resp, err = app.Test(authedRequest("DELETE", "/auth/users/alice", "", admin))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(authedRequest("GET", "/auth/users/alice", "", admin))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRegisterValidatesInput(t *testing.T) {
	app := newAuthTestApp(t)
	admin := login(t, app, "admin", "admin123")

	// password below minimum length
	req := authedRequest("POST", "/auth/register", `{"username":"bob","password":"short"}`, admin)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// duplicate username
	req = authedRequest("POST", "/auth/register", `{"username":"admin","password":"secret1"}`, admin)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
