package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chunk-summarizer/internal/handler/http/respond"
)

// Timeout returns middleware that bounds the request context by d.
// The summarization pipeline observes the deadline and cancels in-flight
// backend calls; handlers map the resulting error to 504 themselves. If a
// handler returns without writing after the deadline, 504 is written here.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			if !rec.wroteHeader && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				respond.SafeError(rec, http.StatusGatewayTimeout,
					respond.NewAppError(http.StatusGatewayTimeout, "request timeout", ctx.Err()))
			}
		})
	}
}
