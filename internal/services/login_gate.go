package services

import (
	"sync"
	"time"

	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/pkg/clock"
)

const (
	DefaultPromptTTL     = 3 * time.Second
	DefaultPromptMessage = "Please login first before booking."
)

// LoginGate holds the "login required" prompt. Every Trigger issues a fresh
// key and restarts the auto-dismiss timer; only the newest timer may close it.
type LoginGate struct {
	mu    sync.Mutex
	clk   clock.Clock
	ttl   time.Duration
	state domain.LoginPrompt
	timer clock.Timer
}

func NewLoginGate(clk clock.Clock, ttl time.Duration) *LoginGate {
	if ttl <= 0 {
		ttl = DefaultPromptTTL
	}
	return &LoginGate{clk: clk, ttl: ttl}
}

// Trigger opens (or re-opens) the prompt with msg.
func (g *LoginGate) Trigger(msg string) domain.LoginPrompt {
	if msg == "" {
		msg = DefaultPromptMessage
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	key := g.clk.Now().UnixMilli()
	if key <= g.state.Key {
		key = g.state.Key + 1
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.state = domain.LoginPrompt{Open: true, Message: msg, Key: key}
	g.timer = g.clk.AfterFunc(g.ttl, func() { g.expire(key) })
	applog.Info(nil, "gate.prompt.open", map[string]any{"key": key})
	return g.state
}

func (g *LoginGate) expire(key int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.Open || g.state.Key != key {
		return
	}
	g.state.Open = false
	g.timer = nil
}

// Close dismisses the prompt immediately.
func (g *LoginGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.state.Open = false
}

func (g *LoginGate) State() domain.LoginPrompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Stop cancels any pending dismissal. The prompt state is left as is.
func (g *LoginGate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
