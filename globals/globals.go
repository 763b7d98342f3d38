package globals

// Context keys
type ContextKey string

const (
	// UserIDKey holds the identity-provider subject of the caller.
	UserIDKey ContextKey = "userId"
	// UserKey holds the *models.User loaded by RequireUser/RequireAdmin.
	UserKey ContextKey = "user"
	// ClaimsKey holds the verified *middleware.Claims.
	ClaimsKey ContextKey = "claims"
)

// Redis channel carrying booking events.
const BookingEventsChannel = "booking-events"
