package handlers_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"cdrive/internal/http/handlers"
)

func TestAuthLogging(t *testing.T) {
	a := newTestApp(t)

	run := func(email, pass string) ([]logEntry, int) {
		var status int
		entries := captureLogs(t, func() {
			resp, _, _ := a.call(t, "POST", "/login", `{"email":"`+email+`","password":"`+pass+`"}`, "")
			status = resp.StatusCode
		})
		return entries, status
	}

	failLogs, status := run("rae@cdrive.test", "wrong")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("bad password: want 401, got %d", status)
	}
	e, ok := findLog(failLogs, "auth.login.fail")
	if !ok {
		t.Fatalf("auth.login.fail log not found")
	}
	if _, ok := e.Fields["email"]; !ok {
		t.Fatalf("auth.login.fail missing email field")
	}

	badFormat, status := run("not-an-email", "x")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("bad email: want 401, got %d", status)
	}
	if e, ok := findLog(badFormat, "auth.login.fail"); !ok || e.Fields["reason"] != "bad_format" {
		t.Fatalf("bad format reason missing: %+v", badFormat)
	}

	okLogs, status := run("rae@cdrive.test", "Passw0rd!")
	if status != fiber.StatusOK {
		t.Fatalf("good login: want 200, got %d", status)
	}
	if e, ok := findLog(okLogs, "auth.login.success"); !ok || e.Level != "audit" {
		t.Fatalf("auth.login.success audit not found")
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)
	resp, _, _ := a.call(t, "POST", "/register", `{"name":"N","email":"n@cdrive.test","password":"weak"}`, "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("weak password: want 400, got %d", resp.StatusCode)
	}
	resp, _, _ = a.call(t, "POST", "/register", `{"name":"N","email":"n@cdrive.test","password":"Str0ng!pw"}`, "")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register: want 201, got %d", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	a := newTestApp(t)
	var last int
	for i := 0; i < 6; i++ {
		resp, _, _ := a.call(t, "POST", "/login", `{"email":"x@cdrive.test","password":"nope"}`, "")
		last = resp.StatusCode
		if i < 5 && last == fiber.StatusTooManyRequests {
			t.Fatalf("hit rate limit too early at %d", i)
		}
	}
	if last != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", last)
	}
}

// friendly error surface, no internal leakage
func TestErrorHandlerFriendlyMessage(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})

	var body string
	entries := captureLogs(t, func() {
		resp, err := app.Test(httptest.NewRequest("GET", "/err", nil))
		if err != nil {
			t.Fatalf("test request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
	})
	if !strings.Contains(body, "Something went wrong") {
		t.Fatalf("friendly message missing; body=%s", body)
	}
	if strings.Contains(body, "db timeout") || strings.Contains(body, "secret") {
		t.Fatalf("internal details leaked to user; body=%s", body)
	}
	if _, ok := findLog(entries, "server.error"); !ok {
		t.Fatal("server.error not logged")
	}
}
