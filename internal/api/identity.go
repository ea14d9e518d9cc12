package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// AnonymousUser is the fallback identity for unauthenticated callers.
const AnonymousUser = "anonymous"

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID returns the caller identity from the request context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok && v != "" {
		return v
	}
	return AnonymousUser
}

// IdentityMiddleware resolves the caller's user id from the X-User-ID
// header set by the API gateway, falling back to anonymous. Actual
// authentication happens in the gateway in front of this service.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			userID = AnonymousUser
		}
		r = r.WithContext(withUserID(r.Context(), userID))
		next.ServeHTTP(w, r)
	})
}
