package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

const operatorKey = "auth_operator"

// AuthMiddleware validates bearer tokens for admin routes.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(operatorKey, claims.Operator)
	return c.Next()
}

// OperatorFromContext retrieves the authenticated operator name.
func OperatorFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(operatorKey)
	if val == nil {
		return "", false
	}
	operator, ok := val.(string)
	return operator, ok
}
