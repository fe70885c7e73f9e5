package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authenticator resolves a session token into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

// RequestLogger attaches a request-scoped logger and writes one access log line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Error(r.Context(), reqLog, "request", fields...)
				return
			}
			logger.Info(r.Context(), reqLog, "request", fields...)
		})
	}
}

// SessionAuth reads the session cookie and attaches the caller's identity.
// Missing or invalid sessions leave the request anonymous; handlers decide whether that is allowed.
func SessionAuth(a Authenticator, cookieName string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := a.Authenticate(r.Context(), c.Value)
			switch {
			case errors.Is(err, domain.ErrTransientIO):
				handleServiceError(w, r, err)
				return
			case err != nil:
				logger.Debug(r.Context(), log, "ignoring invalid session", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

type cartIDKey struct{}

// CartSession makes sure the visitor has a cart id cookie and exposes it to handlers.
func CartSession(cookieName string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int((30 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), cartIDKey{}, id)))
		})
	}
}

func cartIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(cartIDKey{}).(string)
	return id
}
