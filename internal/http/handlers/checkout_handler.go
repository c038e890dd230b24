package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "cdrive/internal/log"
	"cdrive/internal/services"
	"cdrive/internal/validate"
)

type CheckoutHandler struct{}

func (h *CheckoutHandler) Submit(c *fiber.Ctx) error {
	sf := storefront(c)
	var in services.Contact
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
	}
	var ok bool
	if in.PreferredDate, ok = validate.Date(in.PreferredDate); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date"})
	}
	if in.PreferredTime, ok = validate.Time(in.PreferredTime); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid time"})
	}
	if in.Email != "" {
		if in.Email, ok = validate.Email(in.Email); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid email"})
		}
	}

	res, err := sf.Checkout.Submit(c.UserContext(), in)
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Your booking list is empty!"})
	case errors.Is(err, services.ErrNotAuthenticated):
		return loginRequired(c)
	case err != nil:
		applog.Error(c, "checkout.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Booking failed. Please try again."})
	}
	applog.Audit(c, "checkout.success", map[string]any{"bookings": len(res)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"bookings": res})
}
