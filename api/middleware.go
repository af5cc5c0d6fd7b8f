package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/warp/timesheet-engine/identity"
)

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate resolves the bearer token and stores the identity on the
// request context. Missing or invalid credentials get 401; a valid token that
// grants no access gets 403.
func Authenticate(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required", codeUnauthenticated)
				return
			}
			id, err := resolver.Resolve(r.Context(), token)
			if errors.Is(err, identity.ErrUnauthorized) {
				writeError(w, http.StatusForbidden, "Token does not grant access", codeForbidden)
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", codeUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

// RequestLogger logs one line per request through logrus.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			entry := logger.WithFields(logrus.Fields{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case ww.Status() >= 500:
				entry.Error("request failed")
			case ww.Status() >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request completed")
			}
		})
	}
}
