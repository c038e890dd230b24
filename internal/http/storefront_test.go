package handlers_test

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCatalog_FilterAndNormalize(t *testing.T) {
	a := newTestApp(t)
	_, _, sid := a.call(t, "GET", "/session", "", "")

	// the first fetch runs in the background; refresh makes it deterministic
	resp, body, _ := a.call(t, "POST", "/catalog/refresh", "", sid)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: %d", resp.StatusCode)
	}
	if items, _ := body["items"].([]any); len(items) != 2 {
		t.Fatalf("want 2 cars, got %v", body["items"])
	}

	_, body, _ = a.call(t, "GET", "/catalog?category=suv&location=balt", "", sid)
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("want 1 filtered car, got %d", len(items))
	}
	car := items[0].(map[string]any)
	if car["id"] != "2" || car["name"] != "Model Y" || car["dailyRentalRate"] != 90.0 {
		t.Fatalf("car not normalized: %v", car)
	}

	resp, _, _ = a.call(t, "GET", "/catalog?q=%3Cscript%3E", "", sid)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("markup in query should be rejected, got %d", resp.StatusCode)
	}
}

func TestCart_GateThenBook(t *testing.T) {
	a := newTestApp(t)

	// anonymous visitor: blocked with the prompt
	resp, body, anon := a.call(t, "POST", "/cart", `{"id":1,"name":"Civic"}`, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous add: want 401, got %d", resp.StatusCode)
	}
	prompt, _ := body["prompt"].(map[string]any)
	if prompt["open"] != true {
		t.Fatalf("prompt should be open: %v", body)
	}
	_, body, _ = a.call(t, "GET", "/cart", "", anon)
	if body["count"] != 0.0 {
		t.Fatalf("cart must stay empty, got %v", body["count"])
	}
	_, body, _ = a.call(t, "DELETE", "/prompt", "", anon)
	if body["open"] != false {
		t.Fatal("prompt should close on dismiss")
	}

	// signed-in user
	sid := a.login(t, "rae@cdrive.test")
	_, _, _ = a.call(t, "POST", "/catalog/refresh", "", sid)
	for i := 0; i < 2; i++ {
		if resp, _, _ := a.call(t, "POST", "/cart", `{"productId":"1"}`, sid); resp.StatusCode != http.StatusCreated {
			t.Fatalf("add: %d", resp.StatusCode)
		}
	}
	_, body, _ = a.call(t, "POST", "/cart", `{"_id":"2","title":"Model Y","dailyRate":"90"}`, sid)
	if body["count"] != 2.0 || body["total"] != 170.0 {
		t.Fatalf("want 2 entries totalling 170, got %v / %v", body["count"], body["total"])
	}

	_, body, _ = a.call(t, "PATCH", "/cart/2", `{"quantity":"3.7"}`, sid)
	if body["total"] != 350.0 {
		t.Fatalf("want 2*40 + 3*90 = 350, got %v", body["total"])
	}

	resp, body, _ = a.call(t, "POST", "/checkout", `{"preferredDate":"2025-03-10","preferredTime":"10:30"}`, sid)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: %d %v", resp.StatusCode, body)
	}
	if a.remote.count() != 2 {
		t.Fatalf("want 2 bookings at the API, got %d", a.remote.count())
	}
	_, body, _ = a.call(t, "GET", "/cart", "", sid)
	if body["count"] != 0.0 {
		t.Fatal("cart should be cleared after checkout")
	}

	resp, _, _ = a.call(t, "POST", "/checkout", "", sid)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty cart checkout: want 400, got %d", resp.StatusCode)
	}
}

func TestSession_LogoutKeepsProfile(t *testing.T) {
	a := newTestApp(t)
	sid := a.login(t, "rae@cdrive.test")

	_, body, _ := a.call(t, "GET", "/session", "", sid)
	if body["kind"] != "user" || body["authenticated"] != true {
		t.Fatalf("unexpected session %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "rae@cdrive.test" {
		t.Fatalf("user record not returned: %v", body["user"])
	}

	_, _, after := a.call(t, "POST", "/logout", "", sid)
	if after != sid {
		t.Fatal("logout must keep the profile cookie")
	}
	_, body, _ = a.call(t, "GET", "/session", "", sid)
	if body["kind"] != "anonymous" || body["user"] != nil {
		t.Fatalf("session should be anonymous after logout: %v", body)
	}
}

func TestPreferences_Theme(t *testing.T) {
	a := newTestApp(t)
	_, body, sid := a.call(t, "GET", "/preferences/theme", "", "")
	if body["theme"] != "light" {
		t.Fatalf("default theme: %v", body["theme"])
	}
	_, body, _ = a.call(t, "PUT", "/preferences/theme", `{"theme":"dark"}`, sid)
	if body["theme"] != "dark" {
		t.Fatalf("theme not saved: %v", body)
	}
	resp, _, _ := a.call(t, "PUT", "/preferences/theme", `{"theme":"sepia"}`, sid)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad theme: want 400, got %d", resp.StatusCode)
	}
}

func TestAdmin_BoardSeesNewBooking(t *testing.T) {
	a := newTestApp(t)
	admin := a.login(t, "admin@cdrive.test")

	_, body, _ := a.call(t, "GET", "/admin/bookings", "", admin)
	if items, _ := body["items"].([]any); len(items) != 0 {
		t.Fatalf("no bookings yet, got %v", body["items"])
	}

	user := a.login(t, "rae@cdrive.test")
	_, _, _ = a.call(t, "POST", "/cart", `{"id":"1","name":"Civic","brand":"Honda","dailyRentalRate":40}`, user)
	if resp, _, _ := a.call(t, "POST", "/checkout", "", user); resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: %d", resp.StatusCode)
	}

	// the checkout ping reaches the admin's board through the shared store
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, body, _ = a.call(t, "GET", "/admin/bookings", "", admin)
		if items, _ := body["items"].([]any); len(items) == 1 {
			booking := items[0].(map[string]any)
			if booking["carName"] != "Honda Civic" {
				t.Fatalf("unexpected booking %v", booking)
			}
			if body["notice"] != true {
				t.Fatal("new booking notice should show")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("board never saw the booking: %v", body)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCart_AddByIDOutsideCatalog(t *testing.T) {
	a := newTestApp(t)
	sid := a.login(t, "rae@cdrive.test")

	resp, body, _ := a.call(t, "POST", "/cart", `{"productId":"3"}`, sid)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: want 201, got %d", resp.StatusCode)
	}
	items, _ := body["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["name"] != "Corolla" {
		t.Fatalf("car should be fetched from the API, got %v", body["items"])
	}
	if body["total"] != 35.0 {
		t.Fatalf("want total 35, got %v", body["total"])
	}

	resp, _, _ = a.call(t, "POST", "/cart", `{"productId":"99"}`, sid)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown car: want 404, got %d", resp.StatusCode)
	}
}

func TestProducts_ImageURL(t *testing.T) {
	a := newTestApp(t)
	_, body, sid := a.call(t, "GET", "/products/3/image-url", "", "")
	if url, _ := body["url"].(string); !strings.HasSuffix(url, "/api/products/3/image") {
		t.Fatalf("preferred url: %v", body["url"])
	}
	_, body, _ = a.call(t, "GET", "/products/3/image-url?check=true", "", sid)
	if body["url"] != "/placeholder.svg" {
		t.Fatalf("unreachable image should fall back to the placeholder, got %v", body["url"])
	}
}
