package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/pkg/clock"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultNoticeTTL    = 4 * time.Second
)

// AdminAPI is the admin part of the remote client.
type AdminAPI interface {
	AdminProducts(ctx context.Context) ([]domain.Product, error)
	AdminBookings(ctx context.Context) ([]domain.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// adminCars lists the admin's cars, narrowed to adminID when it is known.
func adminCars(ctx context.Context, client AdminAPI, adminID string) ([]domain.Product, error) {
	all, err := client.AdminProducts(ctx)
	if err != nil {
		return nil, err
	}
	if adminID == "" {
		return all, nil
	}
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.AddedBy != "" && p.AddedBy == adminID {
			out = append(out, p)
		}
	}
	return out, nil
}

// BookingBoard is the admin's live view of incoming bookings. It reloads on a
// fixed interval and on every booking ping, and raises a short-lived notice
// when the number of bookings grows.
type BookingBoard struct {
	client    AdminAPI
	notifier  *BookingNotifier
	clk       clock.Clock
	interval  time.Duration
	noticeTTL time.Duration
	adminID   string

	mu          sync.Mutex
	bookings    []domain.Booking
	cars        []domain.Product
	lastCount   int // -1 until the first successful load
	notice      bool
	err         error
	carsErr     error
	pollTimer   clock.Timer
	noticeTimer clock.Timer
	cancel      context.CancelFunc
	stopped     bool
}

func NewBookingBoard(client AdminAPI, notifier *BookingNotifier, clk clock.Clock, interval, noticeTTL time.Duration, adminID string) *BookingBoard {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if noticeTTL <= 0 {
		noticeTTL = DefaultNoticeTTL
	}
	return &BookingBoard{
		client:    client,
		notifier:  notifier,
		clk:       clk,
		interval:  interval,
		noticeTTL: noticeTTL,
		adminID:   adminID,
		bookings:  []domain.Booking{},
		cars:      []domain.Product{},
		lastCount: -1,
	}
}

// Start loads cars and bookings, then begins polling and listening for pings.
// Load failures are kept on the board; only a failed subscription is returned.
func (b *BookingBoard) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { _ = b.LoadCars(ctx); return nil })
	g.Go(func() error { _ = b.Load(ctx); return nil })
	_ = g.Wait()

	b.schedulePoll(ctx)
	if b.notifier == nil {
		return nil
	}
	return b.notifier.Listen(ctx, func() {
		applog.Info(nil, "board.ping.received", nil)
		_ = b.Load(ctx)
	})
}

func (b *BookingBoard) schedulePoll(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pollTimer = b.clk.AfterFunc(b.interval, func() {
		if ctx.Err() != nil {
			return
		}
		_ = b.Load(ctx)
		b.schedulePoll(ctx)
	})
}

// Load fetches the bookings once.
func (b *BookingBoard) Load(ctx context.Context) error {
	list, err := b.client.AdminBookings(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil
	}
	if err != nil {
		b.err = err
		applog.Warn(nil, "board.load.fail", err, nil)
		return err
	}
	b.err = nil
	if b.lastCount >= 0 && len(list) > b.lastCount {
		b.raiseNotice()
	}
	b.lastCount = len(list)
	b.bookings = list
	return nil
}

// caller holds b.mu
func (b *BookingBoard) raiseNotice() {
	b.notice = true
	if b.noticeTimer != nil {
		b.noticeTimer.Stop()
	}
	var t clock.Timer
	t = b.clk.AfterFunc(b.noticeTTL, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.noticeTimer == t {
			b.notice = false
			b.noticeTimer = nil
		}
	})
	b.noticeTimer = t
	applog.Info(nil, "board.notice", map[string]any{"count": b.lastCount})
}

func (b *BookingBoard) LoadCars(ctx context.Context) error {
	cars, err := adminCars(ctx, b.client, b.adminID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.carsErr = err
		applog.Warn(nil, "board.cars.fail", err, nil)
		return err
	}
	b.carsErr = nil
	b.cars = cars
	return nil
}

// DeleteBooking removes a booking remotely and from the board.
func (b *BookingBoard) DeleteBooking(ctx context.Context, id string) error {
	if err := b.client.DeleteBooking(ctx, id); err != nil {
		applog.Warn(nil, "board.booking.delete.fail", err, map[string]any{"id": id})
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.bookings[:0]
	for _, bk := range b.bookings {
		if bk.ID != id {
			kept = append(kept, bk)
		}
	}
	b.bookings = kept
	b.lastCount = len(kept)
	applog.Audit(nil, "board.booking.delete", map[string]any{"id": id})
	return nil
}

// Bookings returns the bookings with car name and pickup filled in from the
// admin's cars where the booking lacks them.
func (b *BookingBoard) Bookings() []domain.Booking {
	b.mu.Lock()
	defer b.mu.Unlock()
	byID := make(map[string]domain.Product, len(b.cars))
	for _, c := range b.cars {
		if c.ID != "" {
			byID[c.ID] = c
		}
	}
	out := make([]domain.Booking, 0, len(b.bookings))
	for _, bk := range b.bookings {
		car, ok := byID[bk.ProductID]
		if bk.CarName == "" {
			if ok {
				bk.CarName = strings.TrimSpace(car.Brand + " " + car.Name)
			}
			if bk.CarName == "" && bk.ProductID != "" {
				bk.CarName = "Car #" + bk.ProductID
			}
		}
		if bk.PickupLocation == "" && ok {
			bk.PickupLocation = car.AvailableLocation
		}
		out = append(out, bk)
	}
	return out
}

func (b *BookingBoard) Cars() []domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneProducts(b.cars)
}

// Notice reports whether the "new booking" notice is showing.
func (b *BookingBoard) Notice() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notice
}

func (b *BookingBoard) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Stop cancels the poll, the ping listener and the notice timer.
func (b *BookingBoard) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.cancel != nil {
		b.cancel()
	}
	if b.pollTimer != nil {
		b.pollTimer.Stop()
		b.pollTimer = nil
	}
	if b.noticeTimer != nil {
		b.noticeTimer.Stop()
		b.noticeTimer = nil
	}
	b.notice = false
}
