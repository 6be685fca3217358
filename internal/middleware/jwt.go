package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/service"
)

const (
	localsUserKey  = "user"
	localsTokenKey = "token"
)

// JWT creates a Fiber middleware that validates bearer tokens through the
// auth service and injects a UserContext into the request locals.
func JWT(auth *service.AuthService) fiber.Handler {
	return func(c fiber.Ctx) error {
		var token string

		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				token = parts[1]
			}
		}

		// Fallback: ?token= query param (for EventSource-style clients
		// which can't set headers)
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization",
			})
		}

		user, err := auth.Authenticate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		c.Locals(localsUserKey, user)
		c.Locals(localsTokenKey, token)
		return c.Next()
	}
}

// GetUserContext extracts the UserContext from Fiber locals.
func GetUserContext(c fiber.Ctx) *domain.UserContext {
	u, ok := c.Locals(localsUserKey).(*domain.UserContext)
	if !ok {
		return nil
	}
	return u
}

// GetToken extracts the raw bearer token from Fiber locals.
func GetToken(c fiber.Ctx) string {
	t, _ := c.Locals(localsTokenKey).(string)
	return t
}
