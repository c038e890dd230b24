package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cdrive/internal/domain"
	applog "cdrive/internal/log"
)

// RequireAdmin lets only admin sessions through. Must run after WithProfile.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sf := storefront(c)
		if sf == nil || sf.Auth.Session().Kind() != domain.RoleAdmin {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
		}
		return c.Next()
	}
}

func loginRequired(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":  "login required",
		"prompt": storefront(c).Gate.State(),
	})
}
