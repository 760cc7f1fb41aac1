package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/karthiknish/aroosi-onboarding/internal/auth"
)

// SessionAuth validates the wizard session token and exposes the session id
// and (when the user has signed in upstream) their identity via locals.
func SessionAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := auth.Verify(token, secret)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid session token")
		}
		if claims.SessionID == "" {
			return fiber.NewError(http.StatusUnauthorized, "token missing session")
		}

		c.Locals("session_id", claims.SessionID)
		c.Locals("identity", claims.Identity)
		return c.Next()
	}
}
