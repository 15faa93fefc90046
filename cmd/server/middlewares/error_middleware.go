package middlewares

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ta-forever/server/cmd/server/controllers"
)

// ErrorMiddleware catches request-context cancellation and logs each
// request's outcome: completed requests below 400, context errors, and
// error statuses set without a body. An error response a controller has
// already written is not logged here. Controllers are expected to write their own
// error body via the controllers.Write* helpers; this middleware's job is
// to make sure a cancelled/timed-out request still gets a response instead
// of hanging the client, and that nothing slips through silently.
func ErrorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &errorResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		if ctxErr := r.Context().Err(); ctxErr != nil && !rw.headerWritten {
			slog.ErrorContext(r.Context(), "request context error", "error", ctxErr)
			switch ctxErr {
			case context.Canceled:
				controllers.WriteError(rw, http.StatusRequestTimeout, "REQUEST_CANCELLED", "request was cancelled")
			case context.DeadlineExceeded:
				controllers.WriteError(rw, http.StatusRequestTimeout, "REQUEST_TIMEOUT", "request timeout")
			default:
				controllers.WriteInternalError(rw, ctxErr.Error())
			}
			return
		}

		if rw.statusCode >= 400 && !rw.headerWritten {
			slog.ErrorContext(r.Context(), "error status without response body", "status", rw.statusCode)
			controllers.WriteError(rw, rw.statusCode, "ERROR", http.StatusText(rw.statusCode))
			return
		}

		if rw.statusCode < 400 {
			slog.InfoContext(r.Context(), "request completed", "status", rw.statusCode)
		}
	})
}

// ContextualErrorMiddleware is kept as an alias for call sites written
// against the older context-propagating middleware name.
func ContextualErrorMiddleware(next http.Handler) http.Handler {
	return ErrorMiddleware(next)
}

// errorResponseWriter wraps http.ResponseWriter to track whether a status
// and body have already been written, so this middleware never double-writes.
type errorResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *errorResponseWriter) WriteHeader(statusCode int) {
	if !rw.headerWritten {
		rw.statusCode = statusCode
		rw.headerWritten = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *errorResponseWriter) Write(data []byte) (int, error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(data)
}
