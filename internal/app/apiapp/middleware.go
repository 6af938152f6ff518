package apiapp

import (
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Appeals-service/Appeals-service/internal/infra/httpclient"
	authsvc "github.com/Appeals-service/Appeals-service/internal/services/auth"
	httperrors "github.com/Appeals-service/Appeals-service/internal/transport/http/errors"
)

const accessTokenCookie = "access_token"

func ApplyMiddlewares(r chiRouter, log *zap.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log))
}

// AuthMiddleware resolves the access-token cookie into an identity through
// the authorization service and stores it on the request context.
func AuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "AUTH_SERVICE_UNAVAILABLE",
					Message: "auth service is unavailable",
				})
				return
			}

			identity, err := authService.Resolve(r.Context(), cookieValue(r, accessTokenCookie))
			if err != nil {
				writeResolveError(w, log, err)
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeResolveError(w http.ResponseWriter, log *zap.Logger, err error) {
	var connErr *httpclient.ConnectionError
	switch {
	case errors.Is(err, authsvc.ErrUnauthorized):
		httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
			Code:    "UNAUTHORIZED",
			Message: "authentication required",
		})
	case errors.As(err, &connErr):
		httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
			Code:    "UPSTREAM_UNAVAILABLE",
			Message: "authorization service is unreachable",
		})
	default:
		if log != nil {
			log.Error("identity resolution failed", zap.Error(err))
		}
		httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
