package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/tutorq-api/internal/utils"
)

// RequireRole admits requests whose principal holds at least one of roles.
// It must run after JWTProtected.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !principal.HasRole(roles...) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
