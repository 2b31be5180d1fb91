package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/togobus-bff/internal/auth/application"
	"github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	"github.com/mateusmacedo/togobus-bff/internal/auth/infrastructure"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
)

type AuthSlice struct {
	Manager     *application.Manager
	logger      pkgApp.AppLogger
	httpHandler *infrastructure.AuthHTTPHandler
}

func NewAuthSlice(manager *application.Manager, logger pkgApp.AppLogger) *AuthSlice {
	return &AuthSlice{
		Manager:     manager,
		logger:      logger,
		httpHandler: infrastructure.NewAuthHTTPHandler(manager),
	}
}

// Middleware attaches the caller's session, if any, to every request.
func (s *AuthSlice) Middleware() func(http.Handler) http.Handler {
	return infrastructure.Authenticate(s.Manager, s.logger)
}

func (s *AuthSlice) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return infrastructure.RequireRole(roles...)
}

func (s *AuthSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
