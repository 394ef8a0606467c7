package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
)

type contextKey string

// SessionContextKey is the context key for the authenticated principal
const SessionContextKey contextKey = "session"

// SessionSource reads the principal from a loaded session
type SessionSource interface {
	Current(ctx context.Context) auth.Session
}

// Logger is a middleware that logs requests
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// RequireLogin rejects requests without an authenticated session
func RequireLogin(src SessionSource) func(http.Handler) http.Handler {
	return guard(src, auth.RequireLogin)
}

// RequireRole rejects requests whose session holds none of roles
func RequireRole(src SessionSource, roles ...database.Role) func(http.Handler) http.Handler {
	return guard(src, func(s auth.Session) error {
		return auth.RequireRole(s, roles...)
	})
}

func guard(src SessionSource, check func(auth.Session) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := src.Current(r.Context())
			if err := check(session); err != nil {
				status := http.StatusForbidden
				message := "Access denied"
				if errors.Is(err, auth.ErrLoginRequired) {
					status = http.StatusUnauthorized
					message = "Login required"
				}
				log.Debug().Str("path", r.URL.Path).Int64("user_id", session.UserID).Msg("Request rejected by guard")
				deny(w, status, message, auth.RedirectPath(err))
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, status int, message, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  false,
		"message":  message,
		"redirect": redirect,
	})
}

// GetSession retrieves the principal placed in context by a guard
func GetSession(ctx context.Context) auth.Session {
	session, ok := ctx.Value(SessionContextKey).(auth.Session)
	if !ok {
		return auth.Session{}
	}
	return session
}
