package storage

import (
	"context"
	"encoding/json"

	applog "cdrive/internal/log"
)

// Adapter wraps a Store with JSON encoding and failure tolerance: reads that
// fail or do not parse report "absent", writes that fail are logged and
// dropped. Callers never see storage errors.
type Adapter struct {
	Store Store
}

func NewAdapter(s Store) *Adapter { return &Adapter{Store: s} }

func (a *Adapter) GetString(ctx context.Context, key string) (string, bool) {
	v, ok, err := a.Store.Get(ctx, key)
	if err != nil {
		applog.Warn(nil, "storage.read.fail", err, map[string]any{"key": key})
		return "", false
	}
	return v, ok
}

func (a *Adapter) SetString(ctx context.Context, key, value string) {
	if err := a.Store.Set(ctx, key, value); err != nil {
		applog.Warn(nil, "storage.write.fail", err, map[string]any{"key": key})
	}
}

// GetJSON decodes key into v and reports whether that succeeded.
func (a *Adapter) GetJSON(ctx context.Context, key string, v any) bool {
	raw, ok := a.GetString(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		applog.Warn(nil, "storage.parse.fail", err, map[string]any{"key": key})
		return false
	}
	return true
}

func (a *Adapter) SetJSON(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		applog.Warn(nil, "storage.encode.fail", err, map[string]any{"key": key})
		return
	}
	a.SetString(ctx, key, string(b))
}

func (a *Adapter) Remove(ctx context.Context, key string) {
	if err := a.Store.Remove(ctx, key); err != nil {
		applog.Warn(nil, "storage.remove.fail", err, map[string]any{"key": key})
	}
}
