package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	applog "cdrive/internal/log"
)

type Deps struct {
	Profiles           *Profiles
	ProductHandler     *ProductHandler
	CartHandler        *CartHandler
	AuthHandler        *AuthHandler
	CheckoutHandler    *CheckoutHandler
	PreferencesHandler *PreferencesHandler
	AdminHandler       *AdminHandler
}

func NewDeps(profiles *Profiles) *Deps {
	return &Deps{
		Profiles:           profiles,
		ProductHandler:     &ProductHandler{},
		CartHandler:        &CartHandler{},
		AuthHandler:        &AuthHandler{},
		CheckoutHandler:    &CheckoutHandler{},
		PreferencesHandler: &PreferencesHandler{},
		AdminHandler:       &AdminHandler{},
	}
}

// Mount registers the storefront routes on r. The profile middleware is
// attached per route, so unmatched paths never open a storefront.
func (d *Deps) Mount(r fiber.Router) {
	sf := WithProfile(d.Profiles)

	r.Get("/catalog", sf, d.ProductHandler.List)
	r.Post("/catalog/refresh", sf, d.ProductHandler.Refresh)
	r.Get("/products/:id/image-url", sf, d.ProductHandler.ImageURL)

	r.Get("/cart", sf, d.CartHandler.View)
	r.Post("/cart", sf, d.CartHandler.Add)
	r.Patch("/cart/:id", sf, d.CartHandler.Update)
	r.Delete("/cart/:id", sf, d.CartHandler.Remove)
	r.Delete("/cart", sf, d.CartHandler.Clear)

	r.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
		},
	}), sf, d.AuthHandler.Login)
	r.Post("/register", sf, d.AuthHandler.Register)
	r.Post("/logout", sf, d.AuthHandler.Logout)
	r.Get("/session", sf, d.AuthHandler.Session)
	r.Get("/prompt", sf, d.AuthHandler.Prompt)
	r.Delete("/prompt", sf, d.AuthHandler.DismissPrompt)

	r.Post("/checkout", sf, d.CheckoutHandler.Submit)

	r.Get("/preferences/theme", sf, d.PreferencesHandler.Theme)
	r.Put("/preferences/theme", sf, d.PreferencesHandler.SetTheme)

	admin := RequireAdmin()
	r.Get("/admin/cars", sf, admin, d.AdminHandler.Cars)
	r.Post("/admin/cars", sf, admin, d.AdminHandler.CreateCar)
	r.Put("/admin/cars/:id", sf, admin, d.AdminHandler.UpdateCar)
	r.Delete("/admin/cars/:id", sf, admin, d.AdminHandler.DeleteCar)
	r.Get("/admin/bookings", sf, admin, d.AdminHandler.Bookings)
	r.Delete("/admin/bookings/:id", sf, admin, d.AdminHandler.DeleteBooking)
}

// ErrorHandler logs the failure and answers with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
		code = fe.Code
		return c.Status(code).JSON(fiber.Map{"error": fe.Message})
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(code).JSON(fiber.Map{"error": "Something went wrong. Please try again."})
}
