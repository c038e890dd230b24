package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "cdrive/internal/log"
	"cdrive/internal/pkg/clock"
	"cdrive/internal/services"
)

// OpenFunc builds the storefront for a profile id.
type OpenFunc func(ctx context.Context, profile string) *services.Storefront

const (
	DefaultMaxProfiles = 1000
	DefaultProfileIdle = 30 * time.Minute
)

// ProfilesOption customizes a Profiles registry.
type ProfilesOption func(*Profiles)

// WithMaxProfiles caps the number of open storefronts; the least recently
// used one is closed when the cap is exceeded. n <= 0 keeps the default.
func WithMaxProfiles(n int) ProfilesOption {
	return func(p *Profiles) {
		if n > 0 {
			p.max = n
		}
	}
}

// WithProfileIdle closes storefronts not used for d. d <= 0 keeps the default.
func WithProfileIdle(d time.Duration) ProfilesOption {
	return func(p *Profiles) {
		if d > 0 {
			p.idle = d
		}
	}
}

func WithProfilesClock(clk clock.Clock) ProfilesOption {
	return func(p *Profiles) { p.clk = clk }
}

type profileEntry struct {
	sf       *services.Storefront
	lastUsed time.Time
}

// Profiles keeps one Storefront per sid cookie, opened on first use and
// closed again once idle or pushed out by the size cap.
type Profiles struct {
	ctx  context.Context
	open OpenFunc
	clk  clock.Clock
	max  int
	idle time.Duration

	mu     sync.Mutex
	m      map[string]*profileEntry
	sweep  clock.Timer
	closed bool
}

func NewProfiles(ctx context.Context, open OpenFunc, opts ...ProfilesOption) *Profiles {
	p := &Profiles{
		ctx:  ctx,
		open: open,
		clk:  clock.RealClock{},
		max:  DefaultMaxProfiles,
		idle: DefaultProfileIdle,
		m:    map[string]*profileEntry{},
	}
	for _, o := range opts {
		o(p)
	}
	p.mu.Lock()
	p.scheduleSweep()
	p.mu.Unlock()
	return p
}

// Get returns the storefront for sid, opening it outside the lock so a slow
// open (an admin board's first load) does not stall other profiles.
func (p *Profiles) Get(sid string) *services.Storefront {
	p.mu.Lock()
	if e, ok := p.m[sid]; ok {
		e.lastUsed = p.clk.Now()
		p.mu.Unlock()
		return e.sf
	}
	p.mu.Unlock()

	sf := p.open(p.ctx, sid)

	p.mu.Lock()
	if e, ok := p.m[sid]; ok {
		e.lastUsed = p.clk.Now()
		p.mu.Unlock()
		sf.Close()
		return e.sf
	}
	p.m[sid] = &profileEntry{sf: sf, lastUsed: p.clk.Now()}
	var evicted []*services.Storefront
	for len(p.m) > p.max {
		evicted = append(evicted, p.evictOldest())
	}
	p.mu.Unlock()

	closeAll(evicted, "lru")
	return sf
}

func (p *Profiles) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// Sweep closes every storefront idle for longer than the idle timeout.
func (p *Profiles) Sweep() int {
	p.mu.Lock()
	cutoff := p.clk.Now().Add(-p.idle)
	var evicted []*services.Storefront
	for sid, e := range p.m {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e.sf)
			delete(p.m, sid)
		}
	}
	p.mu.Unlock()
	closeAll(evicted, "idle")
	return len(evicted)
}

// Close tears down every open storefront and stops the sweeper.
func (p *Profiles) Close() {
	p.mu.Lock()
	p.closed = true
	if p.sweep != nil {
		p.sweep.Stop()
	}
	all := make([]*services.Storefront, 0, len(p.m))
	for sid, e := range p.m {
		all = append(all, e.sf)
		delete(p.m, sid)
	}
	p.mu.Unlock()
	closeAll(all, "")
}

// evictOldest removes the least recently used entry. Caller holds p.mu.
func (p *Profiles) evictOldest() *services.Storefront {
	var oldest string
	var at time.Time
	for sid, e := range p.m {
		if oldest == "" || e.lastUsed.Before(at) {
			oldest, at = sid, e.lastUsed
		}
	}
	sf := p.m[oldest].sf
	delete(p.m, oldest)
	return sf
}

// scheduleSweep arms the next idle sweep. Caller holds p.mu.
func (p *Profiles) scheduleSweep() {
	if p.closed {
		return
	}
	p.sweep = p.clk.AfterFunc(p.idle/2, func() {
		p.Sweep()
		p.mu.Lock()
		p.scheduleSweep()
		p.mu.Unlock()
	})
}

func closeAll(sfs []*services.Storefront, reason string) {
	for _, sf := range sfs {
		sf.Close()
	}
	if reason != "" && len(sfs) > 0 {
		applog.Info(nil, "profiles.evict", map[string]any{"reason": reason, "count": len(sfs)})
	}
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false,
		})
	}
	return sid
}

// WithProfile resolves the caller's storefront from the sid cookie.
func WithProfile(p *Profiles) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := ensureSID(c)
		c.Locals("sid", sid)
		c.Locals("storefront", p.Get(sid))
		return c.Next()
	}
}

func storefront(c *fiber.Ctx) *services.Storefront {
	sf, _ := c.Locals("storefront").(*services.Storefront)
	return sf
}
