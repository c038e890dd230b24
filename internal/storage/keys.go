package storage

// Persisted keys.
const (
	KeyCart          = "cart"
	KeyProductsCache = "products_cache"
	KeyUser          = "user"
	KeyToken         = "token"
	KeyRole          = "role"
	KeyIsLoggedIn    = "isLoggedIn"
	KeyTheme         = "theme"
	KeyBookingPing   = "booking_ping"
)
