package services

import (
	"context"
	"sync"
	"time"

	"cdrive/internal/api"
	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/pkg/clock"
	"cdrive/internal/storage"
)

// Deps is everything a Storefront needs from the process.
type Deps struct {
	Store        storage.Store // shared root store; profile keys are namespaced under it
	API          *api.Client
	Clock        clock.Clock
	PromptTTL    time.Duration
	PollInterval time.Duration
	NoticeTTL    time.Duration
}

// Storefront is the state of one profile: catalog, cart, session, prompt,
// booking signal and admin board, wired together.
type Storefront struct {
	Profile  string
	Catalog  *CatalogStore
	Cart     *CartEngine
	Auth     *AuthState
	Gate     *LoginGate
	Notifier *BookingNotifier
	Checkout *Checkout
	Prefs    *Preferences

	deps   Deps
	client *api.Client
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	board *BookingBoard
}

// NewStorefront restores the profile's session, loads its cart and starts the
// catalog. An admin session also starts the booking board.
func NewStorefront(ctx context.Context, profile string, d Deps) *Storefront {
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}
	ctx, cancel := context.WithCancel(ctx)
	kv := storage.NewAdapter(storage.Namespace(d.Store, "profile:"+profile))

	client := d.API.WithToken(func() string {
		tok, _ := kv.GetString(context.Background(), storage.KeyToken)
		return tok
	})

	sf := &Storefront{
		Profile: profile,
		deps:    d,
		client:  client,
		ctx:     ctx,
		cancel:  cancel,
	}
	sf.Auth = NewAuthState(kv, client)
	sf.Auth.Restore(ctx)
	sf.Gate = NewLoginGate(d.Clock, d.PromptTTL)
	sf.Cart = NewCartEngine(ctx, kv, sf.Auth, sf.Gate)
	sf.Catalog = NewCatalogStore(kv, client, d.Clock)
	sf.Notifier = NewBookingNotifier(d.Store, d.Clock)
	sf.Checkout = NewCheckout(sf.Cart, sf.Auth, sf.Gate, client, sf.Notifier)
	sf.Prefs = NewPreferences(kv)

	sf.Catalog.Start(ctx)
	if sf.Auth.Session().Kind() == domain.RoleAdmin {
		sf.startBoard()
	}
	applog.Info(nil, "storefront.open", map[string]any{"profile": profile, "role": sf.Auth.Session().Kind().String()})
	return sf
}

func (sf *Storefront) Client() *api.Client { return sf.client }

// Login signs in and starts the booking board for admins.
func (sf *Storefront) Login(ctx context.Context, email, password string) (domain.AuthSession, error) {
	s, err := sf.Auth.Login(ctx, email, password)
	if err != nil {
		return s, err
	}
	sf.stopBoard()
	if s.Kind() == domain.RoleAdmin {
		sf.startBoard()
	}
	return s, nil
}

func (sf *Storefront) Logout(ctx context.Context) {
	sf.stopBoard()
	sf.Gate.Close()
	sf.Auth.Logout(ctx)
}

// Board is the running booking board, or nil when the session is not admin.
func (sf *Storefront) Board() *BookingBoard {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.board
}

func (sf *Storefront) startBoard() {
	b := NewBookingBoard(sf.client, sf.Notifier, sf.deps.Clock, sf.deps.PollInterval, sf.deps.NoticeTTL, sf.Auth.AdminID(sf.ctx))
	sf.mu.Lock()
	sf.board = b
	sf.mu.Unlock()
	if err := b.Start(sf.ctx); err != nil {
		applog.Warn(nil, "board.listen.fail", err, map[string]any{"profile": sf.Profile})
	}
}

func (sf *Storefront) stopBoard() {
	sf.mu.Lock()
	b := sf.board
	sf.board = nil
	sf.mu.Unlock()
	if b != nil {
		b.Stop()
	}
}

// AdminCars lists the signed-in admin's cars.
func (sf *Storefront) AdminCars(ctx context.Context) ([]domain.Product, error) {
	return adminCars(ctx, sf.client, sf.Auth.AdminID(ctx))
}

// OwnsProduct reports whether the signed-in admin added p. Products without
// an addedBy are looked up in the admin's car list.
func (sf *Storefront) OwnsProduct(ctx context.Context, p domain.Product) (bool, error) {
	if sf.Auth.Session().Kind() != domain.RoleAdmin || p.ID == "" {
		return false, nil
	}
	adminID := sf.Auth.AdminID(ctx)
	if p.AddedBy != "" && adminID != "" {
		return p.AddedBy == adminID, nil
	}
	cars, err := sf.AdminCars(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range cars {
		if c.ID == p.ID {
			return true, nil
		}
	}
	return false, nil
}

// Close stops timers, watchers and background work.
func (sf *Storefront) Close() {
	sf.stopBoard()
	sf.Gate.Stop()
	sf.cancel()
	applog.Info(nil, "storefront.close", map[string]any{"profile": sf.Profile})
}
