package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
)

// Authenticate resolves the bearer token into the caller's uid and rejects
// requests without a valid one.
func Authenticate(provider auth.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeJSON(w, http.StatusUnauthorized, NewErrorResponse("Authorization header required"))
				return
			}
			id, err := provider.Verify(r.Context(), token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, NewErrorResponse("Invalid or expired token"))
				return
			}
			ctx := logger.IntoContext(r.Context(), logger.FromContext(r.Context(), nil).With("user", id.UID))
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(ctx, id.UID)))
		})
	}
}

// requestLogger logs one line per request with slog and stores a logger
// scoped to the request id in the context.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			ctx := logger.IntoContext(r.Context(), log.With("request_id", reqID))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", reqID,
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Warn("http request failed", attrs...)
				return
			}
			log.Debug("http request", attrs...)
		})
	}
}
