package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"cdrive/internal/domain"
)

func (c *Client) AdminProducts(ctx context.Context) ([]domain.Product, error) {
	data, err := c.getJSON(ctx, "/admin/products")
	if err != nil {
		return nil, err
	}
	return domain.DecodeProducts(data)
}

func (c *Client) AdminBookings(ctx context.Context) ([]domain.Booking, error) {
	data, err := c.getJSON(ctx, "/admin/bookings")
	if err != nil {
		return nil, err
	}
	raws, err := domain.DecodeList(data, "bookings", "items")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(raws))
	for _, r := range raws {
		out = append(out, domain.NormalizeBooking(r))
	}
	return out, nil
}

// DeleteBooking tries the admin route first, then the two public ones.
func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	esc := url.PathEscape(id)
	del := func(path string) func() ([]byte, error) {
		return func() ([]byte, error) {
			return c.do(ctx, request{method: http.MethodDelete, path: path})
		}
	}
	_, err := firstSuccess(
		del("/admin/bookings/"+esc),
		del("/bookings/"+esc),
		del("/booking/"+esc),
	)
	return err
}

// CreateBooking posts to /bookings and /booking under the API base, then
// under the root base. The first success wins.
func (c *Client) CreateBooking(ctx context.Context, req domain.BookingRequest) (map[string]any, error) {
	post := func(base, path string) func() ([]byte, error) {
		return func() ([]byte, error) { return c.postJSON(ctx, base, path, req) }
	}
	data, err := firstSuccess(
		post(c.base, "/bookings"),
		post(c.base, "/booking"),
		post(c.root, "/bookings"),
		post(c.root, "/booking"),
	)
	if err != nil {
		return nil, err
	}
	raw, derr := domain.DecodeObject(data)
	if derr != nil {
		return map[string]any{}, nil
	}
	return raw, nil
}
