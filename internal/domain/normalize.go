package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Known upstream aliases, in priority order.
var (
	productIDKeys   = []string{"id", "_id", "productId"}
	productNameKeys = []string{"name", "title"}
	categoryKeys    = []string{"category", "categoryName", "category_type"}
	rateKeys        = []string{"dailyRentalRate", "daily_rental_rate", "dailyRate"}
	modelYearKeys   = []string{"modelYear", "model_year"}
	seatingKeys     = []string{"seatingCapacity", "seating_capacity"}
	fuelKeys        = []string{"fuelType", "fuel_type"}
	locationKeys    = []string{"availableLocation", "AvailableLocation", "available_location"}
	imageKeys       = []string{"imageName", "image_name", "image"}
	addedByKeys     = []string{"addedBy", "added_by", "adminId", "ownerId", "createdBy"}

	userIDKeys = []string{"id", "_id", "userId", "adminId"}
	roleKeys   = []string{"role", "Role", "userRole"}
)

var ErrUnexpectedShape = errors.New("unexpected response shape")

// ResolveID returns the first non-empty id alias of a raw product record, or "".
func ResolveID(raw map[string]any) string {
	return firstString(raw, productIDKeys...)
}

// NormalizeProduct translates any known upstream product shape into Product.
func NormalizeProduct(raw map[string]any) Product {
	p := Product{
		ID:                ResolveID(raw),
		Name:              firstString(raw, productNameKeys...),
		Brand:             firstString(raw, "brand"),
		Category:          firstString(raw, categoryKeys...),
		FuelType:          firstString(raw, fuelKeys...),
		AvailableLocation: firstString(raw, locationKeys...),
		Description:       firstString(raw, "description"),
		ImageName:         firstString(raw, imageKeys...),
		AddedBy:           firstString(raw, addedByKeys...),
	}
	if v, ok := firstNumber(raw, rateKeys...); ok && v >= 0 {
		p.DailyRentalRate = &v
	}
	if v, ok := firstNumber(raw, modelYearKeys...); ok {
		p.ModelYear = int(v)
	}
	if v, ok := firstNumber(raw, seatingKeys...); ok {
		p.SeatingCapacity = int(v)
	}
	return p
}

// NormalizeCartEntry rebuilds a cart entry from a persisted record of any
// historical shape. Quantity is coerced with CoerceQuantity.
func NormalizeCartEntry(raw map[string]any) CartEntry {
	e := CartEntry{Product: NormalizeProduct(raw), Quantity: 1}
	if v, ok := raw["quantity"]; ok {
		e.Quantity = CoerceQuantity(stringOf(v))
	}
	return e
}

// CoerceQuantity parses a day count: non-numeric, non-finite or <= 0 becomes 1,
// anything else is floored.
func CoerceQuantity(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(f) || f <= 0 {
		return 1
	}
	q := math.Floor(f)
	if q < 1 {
		return 1
	}
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(q)
}

// NormalizeUser builds a User from the API/persisted record.
func NormalizeUser(raw map[string]any) *User {
	if raw == nil {
		return nil
	}
	return &User{
		ID:    firstString(raw, userIDKeys...),
		Name:  firstString(raw, "name", "fullName", "username"),
		Email: firstString(raw, "email"),
		Role:  firstString(raw, roleKeys...),
		Attrs: raw,
	}
}

func (u *User) MarshalJSON() ([]byte, error) {
	if u == nil || u.Attrs == nil {
		return []byte("null"), nil
	}
	return json.Marshal(u.Attrs)
}

// NormalizeBooking translates an upstream booking record.
func NormalizeBooking(raw map[string]any) Booking {
	b := Booking{
		ID:             firstString(raw, "id", "_id", "bookingId", "orderId"),
		ProductID:      firstString(raw, "productId", "carId", "product.id", "product.productId"),
		UserName:       firstString(raw, "userName", "user.name", "name"),
		UserEmail:      firstString(raw, "userEmail", "user.email", "email"),
		CarName:        firstString(raw, "carName", "car.name", "product.name"),
		PickupLocation: firstString(raw, "pickupLocation", "location", "pickup", "availableLocation"),
		BookingDate:    firstString(raw, "bookingDate", "createdAt", "date"),
		PreferredDate:  firstString(raw, "preferredDate", "preferred_date"),
		PreferredTime:  firstString(raw, "preferredTime", "preferred_time"),
	}
	if v, ok := firstNumber(raw, "days", "quantity", "rentalDays", "numberOfDays", "number_of_days"); ok {
		b.Days = int(v)
	}
	if v, ok := firstNumber(raw, "totalPrice", "total", "amount"); ok {
		b.TotalPrice = &v
	}
	if dt := firstString(raw, "preferredDateTime", "preferred_date_time"); strings.Contains(dt, "T") {
		date, clock, _ := strings.Cut(dt, "T")
		if b.PreferredDate == "" {
			b.PreferredDate = date
		}
		if b.PreferredTime == "" && clock != "" {
			if len(clock) > 5 {
				clock = clock[:5]
			}
			b.PreferredTime = clock
		}
	}
	return b
}

// RoleOf returns the first raw role found on a record.
func RoleOf(raw map[string]any) string {
	return firstString(raw, roleKeys...)
}

// LoginPayload is the resolved content of a login response.
type LoginPayload struct {
	User  map[string]any
	Token string
	Role  string // raw, not normalized
}

// ParseLoginPayload picks the account record, token and role out of the
// several response shapes the auth endpoint has used.
func ParseLoginPayload(payload map[string]any) LoginPayload {
	user := payload
	for _, k := range []string{"user", "admin", "account", "data"} {
		if m, ok := payload[k].(map[string]any); ok {
			user = m
			break
		}
	}
	token := firstString(payload, "token", "accessToken", "jwt", "authToken")
	if token == "" {
		token = firstString(user, "token")
	}
	role := ""
	for _, k := range roleKeys {
		if role = firstString(user, k); role != "" {
			break
		}
		if role = firstString(payload, k); role != "" {
			break
		}
	}
	return LoginPayload{User: user, Token: token, Role: role}
}

// DecodeObject parses a JSON object keeping numbers exact.
func DecodeObject(data []byte) (map[string]any, error) {
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrUnexpectedShape
	}
	return out, nil
}

// DecodeList parses either a bare JSON array or an object wrapping the array
// under one of the given keys.
func DecodeList(data []byte, wrapKeys ...string) ([]map[string]any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if arr, ok := v.([]any); ok {
		return objects(arr), nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrUnexpectedShape
	}
	for _, k := range wrapKeys {
		if arr, ok := obj[k].([]any); ok {
			return objects(arr), nil
		}
	}
	return []map[string]any{}, nil
}

// DecodeProducts parses a product list response.
func DecodeProducts(data []byte) ([]Product, error) {
	raws, err := DecodeList(data, "products", "items")
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeProduct(r))
	}
	return out, nil
}

func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// lookup resolves a dotted path ("user.name") inside nested objects.
func lookup(raw map[string]any, path string) (any, bool) {
	cur := raw
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := cur[p]
		if !ok || v == nil {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if cur, ok = v.(map[string]any); !ok {
			return nil, false
		}
	}
	return nil, false
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := lookup(raw, k); ok {
			if s := strings.TrimSpace(stringOf(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNumber(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := lookup(raw, k)
		if !ok {
			continue
		}
		s := strings.TrimSpace(stringOf(v))
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
