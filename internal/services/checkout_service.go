package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cdrive/internal/domain"
	applog "cdrive/internal/log"
)

var ErrEmptyCart = errors.New("cart is empty")

// BookingAPI submits bookings.
type BookingAPI interface {
	CreateBooking(ctx context.Context, req domain.BookingRequest) (map[string]any, error)
}

// Contact is what the renter fills in at checkout. Empty name and email fall
// back to the signed-in account.
type Contact struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	PickupLocation string `json:"pickupLocation"`
	PreferredDate  string `json:"preferredDate"` // YYYY-MM-DD
	PreferredTime  string `json:"preferredTime"` // HH:MM
}

type Checkout struct {
	cart     *CartEngine
	auth     *AuthState
	gate     *LoginGate
	client   BookingAPI
	notifier *BookingNotifier
}

func NewCheckout(cart *CartEngine, auth *AuthState, gate *LoginGate, client BookingAPI, notifier *BookingNotifier) *Checkout {
	return &Checkout{cart: cart, auth: auth, gate: gate, client: client, notifier: notifier}
}

// Submit books the cart entries one at a time. Each accepted entry leaves the
// cart right away, so a failed checkout keeps only the entries still to book
// and a retry never re-sends one the server already took. Any accepted
// booking pings other listeners; a fully booked cart is cleared.
func (c *Checkout) Submit(ctx context.Context, contact Contact) ([]map[string]any, error) {
	items := c.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if !c.auth.Authenticated(ctx) {
		c.gate.Trigger(DefaultPromptMessage)
		return nil, ErrNotAuthenticated
	}

	reqs := c.requests(items, contact)
	results := make([]map[string]any, 0, len(reqs))
	for _, r := range reqs {
		res, err := c.client.CreateBooking(ctx, r)
		if err != nil {
			if len(results) > 0 {
				c.notifier.Ping(ctx)
			}
			applog.Warn(nil, "checkout.fail", err, map[string]any{"booked": len(results), "left": len(reqs) - len(results)})
			return results, fmt.Errorf("book %s: %w", r.ProductID, err)
		}
		c.cart.Remove(ctx, r.ProductID)
		results = append(results, res)
	}

	c.notifier.Ping(ctx)
	c.cart.Clear(ctx)
	applog.Audit(nil, "checkout.success", map[string]any{"entries": len(reqs)})
	return results, nil
}

func (c *Checkout) requests(items []domain.CartEntry, contact Contact) []domain.BookingRequest {
	name, email := strings.TrimSpace(contact.Name), strings.TrimSpace(contact.Email)
	if u := c.auth.Session().User; u != nil {
		if name == "" {
			name = u.Name
		}
		if email == "" {
			email = u.Email
		}
	}
	when := ""
	if d := strings.TrimSpace(contact.PreferredDate); d != "" {
		t := strings.TrimSpace(contact.PreferredTime)
		if t == "" {
			t = "00:00"
		}
		when = d + "T" + t
	}

	out := make([]domain.BookingRequest, 0, len(items))
	for _, it := range items {
		rate := 0.0
		if it.DailyRentalRate != nil {
			rate = *it.DailyRentalRate
		}
		total, _ := it.Subtotal()
		pickup := strings.TrimSpace(contact.PickupLocation)
		if pickup == "" {
			pickup = it.AvailableLocation
		}
		out = append(out, domain.BookingRequest{
			ClientRef:         uuid.NewString(),
			ProductID:         it.ID,
			CarName:           strings.TrimSpace(it.Brand + " " + it.Name),
			Days:              it.Quantity,
			DailyRentalRate:   rate,
			TotalPrice:        total,
			PickupLocation:    pickup,
			UserName:          name,
			UserEmail:         email,
			PreferredDateTime: when,
		})
	}
	return out
}
