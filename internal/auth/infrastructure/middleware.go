package infrastructure

import (
	"net/http"
	"strings"

	"github.com/mateusmacedo/togobus-bff/internal/auth/application"
	"github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	"github.com/mateusmacedo/togobus-bff/pkg/infrastructure/web"
)

const SessionCookie = "togobus_session"

// BearerToken reads the session token from the Authorization header or the session cookie.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate attaches the caller's session to the request context when a
// valid token is presented. Anonymous requests pass through untouched.
func Authenticate(manager *application.Manager, logger pkgApp.AppLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			session, err := manager.Resolve(r.Context(), token)
			if err != nil {
				pkgApp.LogDebug(r.Context(), logger, "ignoring unusable session token", map[string]interface{}{
					"error": err.Error(),
				})
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.ContextWithSession(r.Context(), session)))
		})
	}
}

// RequireRole rejects requests without a session (401) or whose role is not allowed (403).
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := domain.SessionFromContext(r.Context())
			if !ok {
				web.Error(w, r, http.StatusUnauthorized, "unauthenticated", domain.ErrUnauthenticated.Error())
				return
			}
			if _, ok := allowed[session.Profile.Role()]; !ok {
				web.Error(w, r, http.StatusForbidden, "forbidden", domain.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
