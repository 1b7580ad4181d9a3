package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"marketplace/internal/access"
	"marketplace/internal/identity"

	"github.com/rs/zerolog"
)

// Injected key type to avoid context collisions
type contextKey string

const (
	UserContextKey     = contextKey("user")
	DecisionContextKey = contextKey("entitlement_decision")
)

// UserIDFromContext returns the verified caller id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserContextKey).(string)
	return userID, ok && userID != ""
}

// DecisionFromContext returns the gate decision for the current request.
func DecisionFromContext(ctx context.Context) (access.Decision, bool) {
	d, ok := ctx.Value(DecisionContextKey).(access.Decision)
	return d, ok
}

var errNoToken = errors.New("no token")

// TokenFromRequest reads a bearer token, falling back to the session cookie
// when the header is absent or malformed.
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	var headerErr error
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1]), nil
		}
		headerErr = errors.New("invalid authorization header")
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}
	if headerErr != nil {
		return "", headerErr
	}
	return "", errNoToken
}

// AuthMiddleware rejects requests without a valid token. Requests already
// identified upstream pass straight through.
func AuthMiddleware(verifier identity.Verifier, cookieName string, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("middleware", "Auth").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := TokenFromRequest(r, cookieName)
			if errors.Is(err, errNoToken) {
				logger.Debug().Str("path", r.URL.Path).Msg("Authorization missing")
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}
			if err != nil {
				logger.Debug().Err(err).Msg("Invalid authorization header")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			userID, err := verifier.Verify(tokenString)
			if err != nil {
				logger.Debug().Err(err).Msg("Invalid token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := withUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
