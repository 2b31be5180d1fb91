package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/togobus-bff/internal/auth/application"
	"github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	"github.com/mateusmacedo/togobus-bff/pkg/infrastructure/web"
)

type AuthHTTPHandler struct {
	manager *application.Manager
}

func NewAuthHTTPHandler(manager *application.Manager) *AuthHTTPHandler {
	return &AuthHTTPHandler{manager: manager}
}

type sessionResponse struct {
	Token string         `json:"token"`
	Role  domain.Role    `json:"role"`
	User  domain.Profile `json:"user"`
}

func newSessionResponse(issued application.Issued) sessionResponse {
	return sessionResponse{
		Token: issued.Token,
		Role:  issued.Session.Profile.Role(),
		User:  issued.Session.Profile,
	}
}

func (h *AuthHTTPHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials domain.Credentials
	if err := web.Decode(r, &credentials); err != nil {
		web.Error(w, r, http.StatusBadRequest, "invalid_request", "Invalid request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	issued, err := h.manager.Login(ctx, credentials)
	if err != nil {
		handleError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, newSessionResponse(issued))
}

func (h *AuthHTTPHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registration domain.Registration
	if err := web.Decode(r, &registration); err != nil {
		web.Error(w, r, http.StatusBadRequest, "invalid_request", "Invalid request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	issued, err := h.manager.Register(ctx, registration)
	if err != nil {
		handleError(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, newSessionResponse(issued))
}

func (h *AuthHTTPHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	session, err := h.manager.Restore(ctx, token)
	if err != nil {
		handleError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"role":        session.Profile.Role(),
		"user":        session.Profile,
		"verified_at": session.VerifiedAt,
	})
}

func (h *AuthHTTPHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, ok := domain.SessionFromContext(r.Context())
	if !ok {
		handleError(w, r, domain.ErrUnauthenticated)
		return
	}
	if err := h.manager.Logout(r.Context(), session.ID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/register", h.HandleRegister)
		r.Get("/me", h.HandleMe)
		r.Post("/logout", h.HandleLogout)
	})
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		web.Error(w, r, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, domain.ErrRegistrationFailed):
		web.Error(w, r, http.StatusUnprocessableEntity, "registration_failed", err.Error())
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrSessionNotFound):
		web.Error(w, r, http.StatusUnauthorized, "unauthenticated", err.Error())
	default:
		web.Error(w, r, http.StatusBadGateway, "upstream_error", err.Error())
	}
}
