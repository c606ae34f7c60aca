package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

// RequireOperator ensures an operator is authenticated.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeOperator {
			return fiber.NewError(http.StatusForbidden, "operator required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated (owner or operator).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
