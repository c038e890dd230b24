package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cdrive/internal/api"
	"cdrive/internal/domain"
	"cdrive/internal/pkg/clock"
	"cdrive/internal/storage"
)

var epoch = time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

func memStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func memKV(t *testing.T) (*storage.SQLiteStore, *storage.Adapter) {
	s := memStore(t)
	return s, storage.NewAdapter(s)
}

func fakeClock() *clock.FakeClock { return clock.NewFake(epoch) }

func rate(v float64) *float64 { return &v }

// eventually polls cond for up to a second.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fixedAuth bool

func (a fixedAuth) Authenticated(context.Context) bool { return bool(a) }

// fakeRemote implements every client interface the services use.
type fakeRemote struct {
	mu          sync.Mutex
	products    []domain.Product
	listErr     error
	deleteErr   error
	deleted     []string
	created     []domain.Product
	bookings    []domain.Booking
	adminCars   []domain.Product
	bookingErr  error
	failProduct string // CreateBooking fails for this product id only
	submitted   []domain.BookingRequest
	listCalls   int
	bookingGets int
}

func (f *fakeRemote) setProducts(ps []domain.Product, err error) {
	f.mu.Lock()
	f.products, f.listErr = ps, err
	f.mu.Unlock()
}

func (f *fakeRemote) ListProducts(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeRemote) CreateProduct(_ context.Context, draft domain.Product, _ *api.Image, adminID string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft.ID = "new-1"
	draft.AddedBy = adminID
	f.created = append(f.created, draft)
	return draft, nil
}

func (f *fakeRemote) UpdateProduct(_ context.Context, id string, draft domain.Product, _ *api.Image, _ string) (domain.Product, error) {
	draft.ID = id
	return draft, nil
}

func (f *fakeRemote) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) AdminProducts(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Product(nil), f.adminCars...), nil
}

func (f *fakeRemote) AdminBookings(context.Context) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookingGets++
	return append([]domain.Booking(nil), f.bookings...), nil
}

func (f *fakeRemote) setBookings(bs ...domain.Booking) {
	f.mu.Lock()
	f.bookings = bs
	f.mu.Unlock()
}

func (f *fakeRemote) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookingGets
}

func (f *fakeRemote) DeleteBooking(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, "booking:"+id)
	return nil
}

func (f *fakeRemote) CreateBooking(_ context.Context, req domain.BookingRequest) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookingErr != nil {
		return nil, f.bookingErr
	}
	if f.failProduct != "" && req.ProductID == f.failProduct {
		return nil, errors.New("rejected")
	}
	f.submitted = append(f.submitted, req)
	return map[string]any{"id": req.ClientRef}, nil
}
