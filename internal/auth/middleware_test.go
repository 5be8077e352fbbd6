package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedApp(tokens *TokenManager) *fiber.App {
	middleware := NewAuthMiddleware(tokens)
	app := fiber.New()
	app.Get("/protected", middleware.Handle, func(c *fiber.Ctx) error {
		operator, ok := OperatorFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendString(operator)
	})
	return app
}

func TestMiddlewarePassesOperatorThrough(t *testing.T) {
	tokens := NewTokenManager("test-secret", 60)
	app := newProtectedApp(tokens)

	token, _, err := tokens.GenerateToken("alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "alice", string(body))
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	app := newProtectedApp(NewTokenManager("test-secret", 60))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsForeignToken(t *testing.T) {
	app := newProtectedApp(NewTokenManager("test-secret", 60))

	token, _, err := NewTokenManager("other-secret", 60).GenerateToken("mallory")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestOperatorFromContextMissing(t *testing.T) {
	app := fiber.New()
	app.Get("/open", func(c *fiber.Ctx) error {
		if _, ok := OperatorFromContext(c); ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
