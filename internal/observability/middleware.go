package observability

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
)

// Recover turns handler panics into 500 responses and reports them.
func Recover(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub := sentry.CurrentHub().Clone()
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if rec := recover(); rec != nil {
					hub.WithScope(func(scope *sentry.Scope) {
						scope.SetExtra("stack", string(debug.Stack()))
						scope.SetRequest(r)
						hub.CaptureException(fmt.Errorf("panic in request: %v", rec))
					})

					log.Error("HTTP server: panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"panic", fmt.Sprint(rec))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"detail": "internal server error"})
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
