package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

const requestLogKey = contextKey("request_log")

// requestLog collects fields set by inner middleware, which only see a
// derived request.
type requestLog struct {
	userID string
}

// withUserID stores the verified caller on ctx and on the request log entry.
func withUserID(ctx context.Context, userID string) context.Context {
	if entry, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		entry.userID = userID
	}
	return context.WithValue(ctx, UserContextKey, userID)
}

// LoggerMiddleware logs incoming HTTP requests.
func LoggerMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			entry := &requestLog{}
			r = r.WithContext(context.WithValue(r.Context(), requestLogKey, entry))

			next.ServeHTTP(rec, r)

			event := logger.Debug()
			if rec.status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			if entry.userID != "" {
				event = event.Str("user_id", entry.userID)
			}
			event.
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msgf("%s %s", r.Method, r.URL.RequestURI())
		})
	}
}
