package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"cdrive/internal/api"
	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/services"
)

type CartHandler struct{}

func cartView(cart *services.CartEngine) fiber.Map {
	return fiber.Map{
		"items": cart.Items(),
		"count": cart.Count(),
		"total": cart.Total(),
	}
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return c.JSON(cartView(storefront(c).Cart))
}

// Add takes a product record of any known shape, or just {"productId": ...}
// for a car already in the catalog.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sf := storefront(c)
	raw, err := domain.DecodeObject(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product"})
	}
	p := domain.NormalizeProduct(raw)
	if p.Name == "" && p.ID != "" {
		if known, ok := sf.Catalog.Find(p.ID); ok {
			p = known
		} else if sf.Auth.Authenticated(c.UserContext()) {
			fetched, err := sf.Client().GetProduct(c.UserContext(), p.ID)
			switch {
			case api.StatusOf(err) == fiber.StatusNotFound:
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "This car is no longer available"})
			case err != nil:
				applog.Error(c, "cart.lookup.fail", err, map[string]any{"id": p.ID})
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Could not load car"})
			}
			p = fetched
		}
	}
	if err := sf.Cart.Add(c.UserContext(), p); err != nil {
		if errors.Is(err, services.ErrNotAuthenticated) {
			return loginRequired(c)
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cartView(sf.Cart))
}

// Update sets the day count; the value may be a number or a string.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	sf := storefront(c)
	raw, err := domain.DecodeObject(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	q := ""
	if v, ok := raw["quantity"]; ok && v != nil {
		q = fmt.Sprint(v)
	}
	if err := sf.Cart.UpdateQuantity(c.UserContext(), c.Params("id"), q); err != nil {
		if errors.Is(err, services.ErrNotAuthenticated) {
			return loginRequired(c)
		}
		return err
	}
	return c.JSON(cartView(sf.Cart))
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sf := storefront(c)
	sf.Cart.Remove(c.UserContext(), c.Params("id"))
	return c.JSON(cartView(sf.Cart))
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	sf := storefront(c)
	sf.Cart.Clear(c.UserContext())
	applog.Info(c, "cart.clear", nil)
	return c.JSON(cartView(sf.Cart))
}
