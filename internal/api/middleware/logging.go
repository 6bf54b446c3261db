package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/codehub-io/codehub-server/internal/auth"
)

// Logging middleware adds request logging, performance timing, panic
// recovery, and request ID propagation.
func Logging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			r = r.WithContext(ctx)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("PANIC: %s - %v\n%s", requestID, rec, debug.Stack())

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, map[string]string{
						"message":    "500 Internal Server Error",
						"request_id": requestID,
					})
				}

				var userDisplay string
				if user := auth.GetUserFromContext(r.Context()); user != nil {
					userDisplay = fmt.Sprintf("user_id=%d", user.ID)
				} else {
					userDisplay = "anonymous"
				}

				log.Printf("%s - %s %s - %d - %s - %dms",
					requestID,
					r.Method,
					r.URL.Path,
					ww.Status(),
					userDisplay,
					time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
