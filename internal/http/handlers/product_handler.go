package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/services"
	"cdrive/internal/validate"
)

type ProductHandler struct{}

func catalogView(cat *services.CatalogStore) fiber.Map {
	out := fiber.Map{
		"items":   cat.Visible(),
		"loading": cat.Loading(),
		"filter":  cat.Filter(),
	}
	if err := cat.Err(); err != nil {
		out["error"] = "Failed to load cars"
	}
	return out
}

// List applies the category/location/q filter and returns the visible cars.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	sf := storefront(c)
	q, ok := validate.Q(c.Query("q"))
	if !ok {
		applog.Security(c, "catalog.query.invalid", map[string]any{"q": c.Query("q")})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid search"})
	}
	loc, ok := validate.Q(c.Query("location"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid location"})
	}
	cat, ok := validate.Q(c.Query("category"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid category"})
	}
	sf.Catalog.SetFilter(services.CatalogFilter{Category: cat, Location: loc, Query: q})
	return c.JSON(catalogView(sf.Catalog))
}

// Refresh reloads the catalog; ?silent=true keeps the current list on failure.
func (h *ProductHandler) Refresh(c *fiber.Ctx) error {
	sf := storefront(c)
	silent := c.QueryBool("silent", false)
	if err := sf.Catalog.Refresh(c.UserContext(), silent); err != nil && !silent {
		applog.Error(c, "catalog.refresh.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(catalogView(sf.Catalog))
	}
	return c.JSON(catalogView(sf.Catalog))
}

// ImageURL returns the preferred image location for a car. With ?check=true
// each candidate is probed and the first reachable one (or the placeholder)
// is returned.
func (h *ProductHandler) ImageURL(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	sf := storefront(c)
	p, found := sf.Catalog.Find(id)
	if !found {
		p = domain.Product{ID: id}
	}
	if c.QueryBool("check", false) {
		return c.JSON(fiber.Map{"url": sf.Client().ResolveImage(c.UserContext(), p)})
	}
	return c.JSON(fiber.Map{"url": sf.Client().ImageURL(p)})
}
