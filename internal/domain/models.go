package domain

// Product is the canonical in-memory shape of a rentable car. Upstream records
// are translated into it by NormalizeProduct; nothing else resolves aliases.
type Product struct {
	ID                string   `json:"id,omitempty"`
	Name              string   `json:"name"`
	Brand             string   `json:"brand"`
	Category          string   `json:"category"`
	DailyRentalRate   *float64 `json:"dailyRentalRate"` // nil when missing or malformed
	ModelYear         int      `json:"modelYear,omitempty"`
	SeatingCapacity   int      `json:"seatingCapacity,omitempty"`
	FuelType          string   `json:"fuelType,omitempty"`
	AvailableLocation string   `json:"availableLocation,omitempty"`
	Description       string   `json:"description,omitempty"`
	ImageName         string   `json:"imageName,omitempty"`
	AddedBy           string   `json:"addedBy,omitempty"`
}

// CartEntry is a product snapshot plus the rental day count.
type CartEntry struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns quantity × daily rate, and false when the entry cannot be priced.
func (e CartEntry) Subtotal() (float64, bool) {
	if e.DailyRentalRate == nil || !finite(*e.DailyRentalRate) || e.Quantity < 1 {
		return 0, false
	}
	return float64(e.Quantity) * *e.DailyRentalRate, true
}

// CatalogEnvelope is the persisted products cache.
type CatalogEnvelope struct {
	Items     []Product `json:"items"`
	Timestamp int64     `json:"timestamp"` // unix millis
}

// LoginPrompt is the ephemeral "login required" signal. Key changes on every
// trigger so a repeated message still restarts the auto-dismiss timer.
type LoginPrompt struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`
	Key     int64  `json:"key"`
}

// Booking is the normalized admin view of a booking record.
type Booking struct {
	ID             string   `json:"id"`
	ProductID      string   `json:"productId,omitempty"`
	UserName       string   `json:"userName"`
	UserEmail      string   `json:"userEmail"`
	CarName        string   `json:"carName"`
	PickupLocation string   `json:"pickupLocation"`
	Days           int      `json:"days,omitempty"`
	TotalPrice     *float64 `json:"totalPrice,omitempty"`
	BookingDate    string   `json:"bookingDate,omitempty"`
	PreferredDate  string   `json:"preferredDate,omitempty"`
	PreferredTime  string   `json:"preferredTime,omitempty"`
}

// BookingRequest is what the storefront submits for one cart entry.
type BookingRequest struct {
	ClientRef         string  `json:"clientRef"`
	ProductID         string  `json:"productId"`
	CarName           string  `json:"carName"`
	Days              int     `json:"days"`
	DailyRentalRate   float64 `json:"dailyRentalRate"`
	TotalPrice        float64 `json:"totalPrice"`
	PickupLocation    string  `json:"pickupLocation"`
	UserName          string  `json:"userName"`
	UserEmail         string  `json:"userEmail"`
	PreferredDateTime string  `json:"preferredDateTime,omitempty"`
}
