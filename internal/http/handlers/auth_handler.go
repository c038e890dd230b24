package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"cdrive/internal/api"
	"cdrive/internal/domain"
	"cdrive/internal/log"
	"cdrive/internal/services"
	"cdrive/internal/validate"
)

type AuthHandler struct{}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func sessionView(c *fiber.Ctx, sf *services.Storefront) fiber.Map {
	s := sf.Auth.Session()
	out := fiber.Map{
		"user":          s.User,
		"role":          s.Role,
		"kind":          s.Kind().String(),
		"authenticated": sf.Auth.Authenticated(c.UserContext()),
	}
	if s.Kind() == domain.RoleAdmin {
		out["adminId"] = sf.Auth.AdminID(c.UserContext())
	}
	return out
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sf := storefront(c)
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	if !validate.LoginPassword(in.Password) {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_password_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	if _, err := sf.Login(c.UserContext(), email, in.Password); err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			log.Security(c, "auth.login.fail", map[string]any{"email": email})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		}
		log.Error(c, "auth.login.error", err, map[string]any{"email": email})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Login failed. Please try again."})
	}

	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.JSON(sessionView(c, sf))
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	sf := storefront(c)
	var in registration
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	name, okName := validate.Name(in.Name)
	email, okEmail := validate.Email(in.Email)
	role, okRole := validate.Role(in.Role)
	if !okName || !okEmail || !okRole || !validate.Password(in.Password) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Please check your name, email and password"})
	}
	err := sf.Auth.Register(c.UserContext(), api.RegisterRequest{Name: name, Email: email, Password: in.Password, Role: role})
	if err != nil {
		var ae *api.Error
		if errors.As(err, &ae) && ae.Status < 500 {
			msg := ae.Message()
			if msg == "" {
				msg = "Registration failed"
			}
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
		}
		log.Error(c, "auth.register.error", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Registration failed"})
	}
	log.Audit(c, "auth.register", map[string]any{"email": email, "role": role})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sf := storefront(c)
	sf.Logout(c.UserContext())
	log.Audit(c, "auth.logout", nil)
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) Session(c *fiber.Ctx) error {
	return c.JSON(sessionView(c, storefront(c)))
}

// Prompt reports the login prompt state.
func (h *AuthHandler) Prompt(c *fiber.Ctx) error {
	return c.JSON(storefront(c).Gate.State())
}

func (h *AuthHandler) DismissPrompt(c *fiber.Ctx) error {
	sf := storefront(c)
	sf.Gate.Close()
	return c.JSON(sf.Gate.State())
}
