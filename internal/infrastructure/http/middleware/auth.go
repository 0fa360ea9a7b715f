package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mrops-br/catalog-api/internal/infrastructure/auth"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/response"
)

// AuthFailedMessage is the body of every denied request
const AuthFailedMessage = "Auth failed"

// RequireAuth lets a request through only when gate authorizes it.
// Denied requests get 401 and never reach next.
func RequireAuth(gate auth.Gate, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := gate.Authorize(r)
			if err != nil {
				logger.WarnContext(r.Context(), "Request denied by auth gate",
					slog.String("http.request.method", r.Method),
					slog.String("url.path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				response.Message(w, http.StatusUnauthorized, AuthFailedMessage)
				return
			}

			logger.DebugContext(r.Context(), "Request authorized",
				slog.String("caller", claims.Caller()),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
