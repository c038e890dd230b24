package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"cdrive/internal/api"
	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/pkg/clock"
	"cdrive/internal/storage"
)

// CatalogAPI is the part of the remote client the catalog needs.
type CatalogAPI interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, draft domain.Product, img *api.Image, adminID string) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, draft domain.Product, img *api.Image, adminID string) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type CatalogFilter struct {
	Category string `json:"category"`
	Location string `json:"location"`
	Query    string `json:"query"`
}

// Match reports whether p passes the filter. Category "" or "all" matches
// everything; the other fields are case-insensitive substring checks.
func (f CatalogFilter) Match(p domain.Product) bool {
	cat := strings.TrimSpace(f.Category)
	if cat != "" && !strings.EqualFold(cat, "all") && !strings.EqualFold(cat, p.Category) {
		return false
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" &&
		!strings.Contains(strings.ToLower(p.AvailableLocation), loc) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		hay := strings.ToLower(p.Name + "\n" + p.Brand + "\n" + p.Description)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// CatalogStore is the in-memory product list mirrored to "products_cache".
type CatalogStore struct {
	mu      sync.Mutex
	kv      *storage.Adapter
	api     CatalogAPI
	clk     clock.Clock
	items   []domain.Product
	loading bool
	err     error
	filter  CatalogFilter

	startOnce sync.Once
	started   chan struct{}
}

func NewCatalogStore(kv *storage.Adapter, client CatalogAPI, clk clock.Clock) *CatalogStore {
	return &CatalogStore{kv: kv, api: client, clk: clk, items: []domain.Product{}}
}

// LoadInitial seeds the list from the persisted envelope and returns it.
// Cached records go through NormalizeProduct like fresh ones.
func (s *CatalogStore) LoadInitial(ctx context.Context) []domain.Product {
	var env struct {
		Items []json.RawMessage `json:"items"`
	}
	items := []domain.Product{}
	if s.kv.GetJSON(ctx, storage.KeyProductsCache, &env) {
		for _, r := range env.Items {
			if obj, err := domain.DecodeObject(r); err == nil {
				items = append(items, domain.NormalizeProduct(obj))
			}
		}
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return cloneProducts(items)
}

// Start seeds from cache and runs the first refresh in the background,
// silently when the cache had items. The returned channel closes when that
// refresh finishes. Later calls return the same channel.
func (s *CatalogStore) Start(ctx context.Context) <-chan struct{} {
	s.startOnce.Do(func() {
		cached := s.LoadInitial(ctx)
		silent := len(cached) > 0
		s.mu.Lock()
		s.loading = !silent
		s.mu.Unlock()

		s.started = make(chan struct{})
		go func() {
			defer close(s.started)
			_ = s.Refresh(ctx, silent)
		}()
	})
	return s.started
}

// Refresh reloads the catalog. A failed silent refresh changes nothing; a
// failed foreground refresh empties the list and records the error.
func (s *CatalogStore) Refresh(ctx context.Context, silent bool) error {
	if !silent {
		s.mu.Lock()
		s.loading = true
		s.mu.Unlock()
	}

	items, err := s.api.ListProducts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		applog.Warn(nil, "catalog.refresh.fail", err, map[string]any{"silent": silent})
		if !silent {
			s.items = []domain.Product{}
			s.err = err
			s.loading = false
		}
		return err
	}
	if items == nil {
		items = []domain.Product{}
	}
	s.items = items
	s.err = nil
	s.loading = false
	s.persist(ctx)
	applog.Info(nil, "catalog.refresh", map[string]any{"count": len(items), "silent": silent})
	return nil
}

// RemoveLocally drops the product with id. Ids are compared as trimmed strings.
func (s *CatalogStore) RemoveLocally(ctx context.Context, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]domain.Product, 0, len(s.items))
	for _, p := range s.items {
		if strings.TrimSpace(p.ID) != id {
			kept = append(kept, p)
		}
	}
	s.items = kept
	s.persist(ctx)
}

// InsertLocally prepends p ahead of the next refresh.
func (s *CatalogStore) InsertLocally(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]domain.Product{p}, s.items...)
}

// Delete removes a product remotely, then locally. A 404 means it is already
// gone and is treated as success.
func (s *CatalogStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteProduct(ctx, id); err != nil && api.StatusOf(err) != http.StatusNotFound {
		applog.Warn(nil, "catalog.delete.fail", err, map[string]any{"id": id})
		return err
	}
	s.RemoveLocally(ctx, id)
	applog.Audit(nil, "catalog.delete", map[string]any{"id": id})
	return nil
}

// Create uploads a new product, shows it immediately and revalidates silently.
func (s *CatalogStore) Create(ctx context.Context, draft domain.Product, img *api.Image, adminID string) (domain.Product, error) {
	p, err := s.api.CreateProduct(ctx, draft, img, adminID)
	if err != nil {
		applog.Warn(nil, "catalog.create.fail", err, nil)
		return domain.Product{}, err
	}
	s.InsertLocally(p)
	applog.Audit(nil, "catalog.create", map[string]any{"id": p.ID, "admin": adminID})
	_ = s.Refresh(ctx, true)
	return p, nil
}

func (s *CatalogStore) Update(ctx context.Context, id string, draft domain.Product, img *api.Image, adminID string) (domain.Product, error) {
	p, err := s.api.UpdateProduct(ctx, id, draft, img, adminID)
	if err != nil {
		applog.Warn(nil, "catalog.update.fail", err, map[string]any{"id": id})
		return domain.Product{}, err
	}
	applog.Audit(nil, "catalog.update", map[string]any{"id": id, "admin": adminID})
	_ = s.Refresh(ctx, true)
	return p, nil
}

func (s *CatalogStore) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProducts(s.items)
}

// Find returns the product with id from the in-memory list.
func (s *CatalogStore) Find(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.ID == id && id != "" {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *CatalogStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *CatalogStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *CatalogStore) SetFilter(f CatalogFilter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

func (s *CatalogStore) Filter() CatalogFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Visible is the list after the current filter.
func (s *CatalogStore) Visible() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range s.items {
		if s.filter.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// caller holds s.mu
func (s *CatalogStore) persist(ctx context.Context) {
	s.kv.SetJSON(ctx, storage.KeyProductsCache, domain.CatalogEnvelope{
		Items:     s.items,
		Timestamp: s.clk.Now().UnixMilli(),
	})
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	copy(out, in)
	return out
}
