package services

import (
	"context"
	"strconv"

	applog "cdrive/internal/log"
	"cdrive/internal/pkg/clock"
	"cdrive/internal/storage"
)

// BookingNotifier is a best-effort "a booking was created" signal carried by
// the booking_ping key. Delivery is at most once, unordered across writers
// and never acknowledged.
type BookingNotifier struct {
	store storage.Store
	clk   clock.Clock
}

// NewBookingNotifier uses store as the shared (non-profile) namespace so
// every profile and process on the same store hears the ping.
func NewBookingNotifier(store storage.Store, clk clock.Clock) *BookingNotifier {
	return &BookingNotifier{store: store, clk: clk}
}

// Ping writes the current time in millis so the value always changes.
func (n *BookingNotifier) Ping(ctx context.Context) {
	ts := strconv.FormatInt(n.clk.Now().UnixMilli(), 10)
	if err := n.store.Set(ctx, storage.KeyBookingPing, ts); err != nil {
		applog.Warn(nil, "booking.ping.fail", err, nil)
		return
	}
	applog.Info(nil, "booking.ping", map[string]any{"ts": ts})
}

// Listen calls fn for every change of booking_ping until ctx is done. It
// returns once the subscription is established.
func (n *BookingNotifier) Listen(ctx context.Context, fn func()) error {
	ch, err := n.store.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for ev := range ch {
			if ev.Key == storage.KeyBookingPing && !ev.Removed {
				fn()
			}
		}
	}()
	return nil
}
