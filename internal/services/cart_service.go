package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/storage"
)

// ErrNotAuthenticated is returned by gated cart actions. The login prompt has
// already been raised when a caller sees it.
var ErrNotAuthenticated = errors.New("login required")

// Authenticator answers whether cart mutations are allowed.
type Authenticator interface {
	Authenticated(ctx context.Context) bool
}

// CartEngine owns the cart. Every mutation rewrites the "cart" key.
type CartEngine struct {
	mu    sync.Mutex
	kv    *storage.Adapter
	auth  Authenticator
	gate  *LoginGate
	items []domain.CartEntry
}

// NewCartEngine loads the persisted cart. Unreadable records load as empty;
// each entry is normalized and its quantity coerced.
func NewCartEngine(ctx context.Context, kv *storage.Adapter, auth Authenticator, gate *LoginGate) *CartEngine {
	e := &CartEngine{kv: kv, auth: auth, gate: gate, items: []domain.CartEntry{}}
	var raws []json.RawMessage
	if !kv.GetJSON(ctx, storage.KeyCart, &raws) {
		return e
	}
	for _, r := range raws {
		obj, err := domain.DecodeObject(r)
		if err != nil {
			continue
		}
		e.items = append(e.items, domain.NormalizeCartEntry(obj))
	}
	return e
}

// Add puts one more day of p in the cart, or a new entry with quantity 1.
// Products without an id are always appended.
func (e *CartEngine) Add(ctx context.Context, p domain.Product) error {
	if !e.auth.Authenticated(ctx) {
		e.gate.Trigger(DefaultPromptMessage)
		applog.Security(nil, "cart.add.blocked", map[string]any{"product": p.ID})
		return ErrNotAuthenticated
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.ID != "" {
		for i := range e.items {
			if e.items[i].ID == p.ID {
				e.items[i].Quantity++
				e.persist(ctx)
				return nil
			}
		}
	}
	e.items = append(e.items, domain.CartEntry{Product: p, Quantity: 1})
	e.persist(ctx)
	applog.Info(nil, "cart.add", map[string]any{"product": p.ID})
	return nil
}

// Remove drops every entry whose id equals id exactly.
func (e *CartEngine) Remove(ctx context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.items[:0]
	for _, it := range e.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	e.items = kept
	e.persist(ctx)
}

// UpdateQuantity sets the day count of the entry with id from raw input.
// Non-numeric or non-positive input becomes 1.
func (e *CartEngine) UpdateQuantity(ctx context.Context, id, raw string) error {
	if !e.auth.Authenticated(ctx) {
		e.gate.Trigger(DefaultPromptMessage)
		return ErrNotAuthenticated
	}
	q := domain.CoerceQuantity(raw)
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.items {
		if e.items[i].ID == id {
			e.items[i].Quantity = q
		}
	}
	e.persist(ctx)
	return nil
}

// Total is Σ quantity × daily rate. Entries that cannot be priced count as 0.
func (e *CartEngine) Total() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var sum float64
	for _, it := range e.items {
		if v, ok := it.Subtotal(); ok {
			sum += v
		}
	}
	return sum
}

// Clear empties the cart and deletes the persisted key.
func (e *CartEngine) Clear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = []domain.CartEntry{}
	e.kv.Remove(ctx, storage.KeyCart)
	applog.Info(nil, "cart.clear", nil)
}

func (e *CartEngine) Items() []domain.CartEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CartEntry, len(e.items))
	copy(out, e.items)
	return out
}

// Count is the number of entries, not the number of days.
func (e *CartEngine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// caller holds e.mu
func (e *CartEngine) persist(ctx context.Context) {
	e.kv.SetJSON(ctx, storage.KeyCart, e.items)
}
