package storage

import (
	"context"
	"strings"
	"sync"
)

// Store is a persistent string key-value store with change notifications,
// standing in for browser local storage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Subscribe delivers an Event whenever a key's value changes. Writes of an
	// identical value produce no event. Delivery is best effort: a slow
	// subscriber misses events rather than blocking writers. The channel is
	// closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

type Event struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

const subscriberBuffer = 16

// hub fans events out to in-process subscribers.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func (h *hub) subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs == nil {
		h.subs = map[int]chan Event{}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Namespace scopes every key of s under prefix. Events for other prefixes are
// filtered out and delivered keys have the prefix stripped.
func Namespace(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &namespaced{inner: s, prefix: prefix + ":"}
}

type namespaced struct {
	inner  Store
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}

func (n *namespaced) Subscribe(ctx context.Context) (<-chan Event, error) {
	src, err := n.inner.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for e := range src {
			if !strings.HasPrefix(e.Key, n.prefix) {
				continue
			}
			e.Key = strings.TrimPrefix(e.Key, n.prefix)
			select {
			case out <- e:
			default:
			}
		}
	}()
	return out, nil
}
