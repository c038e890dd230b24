package services_test

import (
	"testing"
	"time"

	"cdrive/internal/services"
)

func TestLoginGate_AutoDismiss(t *testing.T) {
	clk := fakeClock()
	g := services.NewLoginGate(clk, 0)

	p := g.Trigger("")
	if !p.Open || p.Message != services.DefaultPromptMessage || p.Key != epoch.UnixMilli() {
		t.Fatalf("unexpected prompt %+v", p)
	}
	clk.Advance(2999 * time.Millisecond)
	if !g.State().Open {
		t.Fatal("closed before 3s")
	}
	clk.Advance(time.Millisecond)
	if g.State().Open {
		t.Fatal("still open after 3s")
	}
}

func TestLoginGate_RetriggerRestartsTimer(t *testing.T) {
	clk := fakeClock()
	g := services.NewLoginGate(clk, 3*time.Second)

	first := g.Trigger("log in")
	clk.Advance(2 * time.Second)
	second := g.Trigger("log in")
	if second.Key <= first.Key {
		t.Fatalf("key not refreshed: %d then %d", first.Key, second.Key)
	}
	if clk.Pending() != 1 {
		t.Fatalf("want exactly one pending timer, got %d", clk.Pending())
	}

	// the first timer's deadline passes; the prompt must stay open
	clk.Advance(1500 * time.Millisecond)
	if !g.State().Open {
		t.Fatal("original timer closed the re-triggered prompt")
	}
	clk.Advance(1500 * time.Millisecond)
	if g.State().Open {
		t.Fatal("prompt should close 3s after the latest trigger")
	}
}

func TestLoginGate_SameMillisecondStillNewKey(t *testing.T) {
	clk := fakeClock()
	g := services.NewLoginGate(clk, time.Second)
	a := g.Trigger("x")
	b := g.Trigger("y")
	if b.Key == a.Key || b.Message != "y" {
		t.Fatalf("second trigger must replace the first: %+v %+v", a, b)
	}
}

func TestLoginGate_CloseAndStop(t *testing.T) {
	clk := fakeClock()
	g := services.NewLoginGate(clk, time.Second)

	g.Trigger("x")
	g.Close()
	if g.State().Open || clk.Pending() != 0 {
		t.Fatalf("close must cancel the timer: open=%v pending=%d", g.State().Open, clk.Pending())
	}

	g.Trigger("x")
	g.Stop()
	if clk.Pending() != 0 {
		t.Fatal("stop must cancel the timer")
	}
}
