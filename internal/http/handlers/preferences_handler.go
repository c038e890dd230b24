package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type PreferencesHandler struct{}

func (h *PreferencesHandler) Theme(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"theme": storefront(c).Prefs.Theme(c.UserContext())})
}

func (h *PreferencesHandler) SetTheme(c *fiber.Ctx) error {
	sf := storefront(c)
	var in struct {
		Theme string `json:"theme"`
	}
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := sf.Prefs.SetTheme(c.UserContext(), in.Theme); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"theme": sf.Prefs.Theme(c.UserContext())})
}
