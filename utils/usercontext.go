package utils

import (
	"context"
	"net/http"

	"wanderlust/globals"
	"wanderlust/models"
)

// GetUserIDFromRequest returns the identity-provider subject set by Authenticate.
func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

// CurrentUser returns the user record loaded by RequireUser or RequireAdmin.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(globals.UserKey).(*models.User)
	return u
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	ctx = context.WithValue(ctx, globals.UserIDKey, u.ExternalID)
	return context.WithValue(ctx, globals.UserKey, u)
}
