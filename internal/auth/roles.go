package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/itops/helpdesk-service/internal/policy"
	"github.com/itops/helpdesk-service/pkg/apperrors"
)

// RequireStaff ensures the caller holds ADMIN or IT_STAFF.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !policy.IsStaff(identity.Role) {
			return apperrors.NewForbidden("staff role required")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures any caller is authenticated.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
