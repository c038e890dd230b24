package handlers

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"cdrive/internal/api"
	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/validate"
)

const maxImageBytes = 5 << 20

type AdminHandler struct{}

func (h *AdminHandler) Cars(c *fiber.Ctx) error {
	sf := storefront(c)
	cars, err := sf.AdminCars(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.cars.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to load admin cars."})
	}
	return c.JSON(fiber.Map{"items": cars})
}

// DeleteCar removes a car the admin owns.
func (h *AdminHandler) DeleteCar(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	sf := storefront(c)
	p, found := sf.Catalog.Find(id)
	if !found {
		p = domain.Product{ID: id}
	}
	own, err := sf.OwnsProduct(c.UserContext(), p)
	if err != nil {
		applog.Error(c, "admin.car.owner.fail", err, map[string]any{"id": id})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Could not verify ownership"})
	}
	if !own {
		applog.Security(c, "admin.car.delete.denied", map[string]any{"id": id})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only delete cars you added"})
	}
	if err := sf.Catalog.Delete(c.UserContext(), id); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Delete failed"})
	}
	applog.Audit(c, "admin.car.delete", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) CreateCar(c *fiber.Ctx) error {
	sf := storefront(c)
	draft, img, err := readCarForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	p, err := sf.Catalog.Create(c.UserContext(), draft, img, sf.Auth.AdminID(c.UserContext()))
	if err != nil {
		applog.Error(c, "admin.car.create.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Create failed"})
	}
	applog.Audit(c, "admin.car.create", map[string]any{"id": p.ID})
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *AdminHandler) UpdateCar(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	sf := storefront(c)
	draft, img, err := readCarForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	p, err := sf.Catalog.Update(c.UserContext(), id, draft, img, sf.Auth.AdminID(c.UserContext()))
	if err != nil {
		applog.Error(c, "admin.car.update.fail", err, map[string]any{"id": id})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Update failed"})
	}
	applog.Audit(c, "admin.car.update", map[string]any{"id": id})
	return c.JSON(p)
}

// readCarForm accepts multipart (JSON "product" part plus optional
// "imageFile") or a plain JSON body.
func readCarForm(c *fiber.Ctx) (domain.Product, *api.Image, error) {
	body := c.Body()
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		body = []byte(c.FormValue("product"))
	}
	raw, err := domain.DecodeObject(body)
	if err != nil {
		return domain.Product{}, nil, fiber.NewError(fiber.StatusBadRequest, "invalid product")
	}
	draft := domain.NormalizeProduct(raw)
	if _, ok := validate.Name(draft.Name); !ok {
		return domain.Product{}, nil, fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	fh, err := c.FormFile("imageFile")
	if err != nil {
		return draft, nil, nil
	}
	if fh.Size > maxImageBytes {
		return domain.Product{}, nil, fiber.NewError(fiber.StatusBadRequest, "image too large")
	}
	f, err := fh.Open()
	if err != nil {
		return domain.Product{}, nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return domain.Product{}, nil, err
	}
	return draft, &api.Image{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

// Bookings returns the board's enriched bookings.
func (h *AdminHandler) Bookings(c *fiber.Ctx) error {
	board := storefront(c).Board()
	if board == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Booking board not running"})
	}
	if c.QueryBool("reload", false) {
		_ = board.Load(c.UserContext())
	}
	out := fiber.Map{
		"items":  board.Bookings(),
		"notice": board.Notice(),
	}
	if board.Err() != nil {
		out["error"] = "Failed to load bookings."
	}
	return c.JSON(out)
}

func (h *AdminHandler) DeleteBooking(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	board := storefront(c).Board()
	if board == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Booking board not running"})
	}
	if err := board.DeleteBooking(c.UserContext(), id); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Delete failed"})
	}
	applog.Audit(c, "admin.booking.delete", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
