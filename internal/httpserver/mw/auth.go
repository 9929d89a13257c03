package mw

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/shortlist/internal/auth"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

type ctxKey int

const userIDKey ctxKey = iota

// Bearer rejects requests without a valid bearer token with 401 and stores
// the token subject in the request context.
func Bearer(v *auth.Verifier, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractToken(r.Header.Get("Authorization"))
			if err == nil {
				var userID string
				if userID, err = v.Verify(token); err == nil {
					next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
					return
				}
			}

			log.Debug("rejected unauthenticated request",
				logger.String("path", r.URL.Path),
				logger.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="shortlist"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, or "" outside Bearer.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
