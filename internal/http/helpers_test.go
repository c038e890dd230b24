package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"cdrive/internal/api"
	"cdrive/internal/http/handlers"
	"cdrive/internal/pkg/clock"
	"cdrive/internal/services"
	"cdrive/internal/storage"
)

type logEntry struct {
	Level  string                 `json:"level"`
	Action string                 `json:"action"`
	Fields map[string]interface{} `json:"fields"`
}

// capture logs by temporarily replacing the standard logger output
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	mu.Lock()
	defer mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

// remote is a stand-in for the car-rental REST API.
type remote struct {
	mu       sync.Mutex
	bookings []map[string]any
}

func (r *remote) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, 200, []map[string]any{
			{"id": 1, "name": "Civic", "brand": "Honda", "category": "Sedan", "dailyRentalRate": 40, "availableLocation": "College Park", "addedBy": "5"},
			{"_id": "2", "title": "Model Y", "brand": "Tesla", "category": "SUV", "dailyRate": "90", "availableLocation": "Baltimore", "addedBy": "6"},
		})
	})
	mux.HandleFunc("GET /api/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		if req.PathValue("id") != "3" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		reply(w, 200, map[string]any{"id": 3, "name": "Corolla", "brand": "Toyota", "dailyRentalRate": 35})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(req.Body).Decode(&in)
		switch {
		case in["email"] == "admin@cdrive.test" && in["password"] == "Passw0rd!":
			reply(w, 200, map[string]any{"admin": map[string]any{"id": 5, "email": in["email"], "name": "Ada"}, "token": "admin-token", "role": "ROLE_ADMIN"})
		case in["email"] == "rae@cdrive.test" && in["password"] == "Passw0rd!":
			reply(w, 200, map[string]any{"user": map[string]any{"id": 9, "email": in["email"], "name": "Rae", "role": "USER"}, "accessToken": "user-token"})
		default:
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, 201, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /api/admin/products", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, 200, map[string]any{"products": []map[string]any{
			{"id": 1, "name": "Civic", "brand": "Honda", "addedBy": "5"},
			{"id": 2, "name": "Model Y", "brand": "Tesla", "addedBy": "6"},
		}})
	})
	mux.HandleFunc("GET /api/admin/bookings", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		reply(w, 200, r.bookings)
	})
	mux.HandleFunc("POST /api/bookings", func(w http.ResponseWriter, req *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(req.Body).Decode(&in)
		r.mu.Lock()
		in["id"] = len(r.bookings) + 1
		r.bookings = append(r.bookings, in)
		r.mu.Unlock()
		reply(w, 201, in)
	})
	mux.HandleFunc("DELETE /api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (r *remote) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type testApp struct {
	app      *fiber.App
	remote   *remote
	profiles *handlers.Profiles
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	rm := &remote{}
	srv := httptest.NewServer(rm.handler())
	t.Cleanup(srv.Close)

	root, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = root.Close() })

	client := api.New(srv.URL+"/api", 2*time.Second)
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	profiles := handlers.NewProfiles(context.Background(), func(ctx context.Context, sid string) *services.Storefront {
		return services.NewStorefront(ctx, sid, services.Deps{Store: root, API: client, Clock: clk})
	})
	t.Cleanup(profiles.Close)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	handlers.NewDeps(profiles).Mount(app)
	return &testApp{app: app, remote: rm, profiles: profiles}
}

// call sends a JSON request as the profile in sid ("" for a new visitor) and
// returns the response, its decoded body and the sid in effect.
func (a *testApp) call(t *testing.T, method, path, body, sid string) (*http.Response, map[string]any, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := a.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			sid = c.Value
		}
	}
	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp, out, sid
}

// login signs in a fresh profile and returns its sid.
func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	resp, _, sid := a.call(t, "POST", "/login", `{"email":"`+email+`","password":"Passw0rd!"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	return sid
}
