package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/togobus-bff/internal/admin/application"
	"github.com/mateusmacedo/togobus-bff/internal/admin/domain"
	authDomain "github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	"github.com/mateusmacedo/togobus-bff/pkg/infrastructure/web"
)

type AdminHTTPHandler struct {
	commandBus        application.DeleteCommandBus
	companyQueries    application.CompanyQueryBus
	notificationQuery application.NotificationQueryBus
	requireAdmin      func(http.Handler) http.Handler
}

func NewAdminHTTPHandler(
	commandBus application.DeleteCommandBus,
	companyQueries application.CompanyQueryBus,
	notificationQuery application.NotificationQueryBus,
	requireAdmin func(http.Handler) http.Handler,
) *AdminHTTPHandler {
	return &AdminHTTPHandler{
		commandBus:        commandBus,
		companyQueries:    companyQueries,
		notificationQuery: notificationQuery,
		requireAdmin:      requireAdmin,
	}
}

func (h *AdminHTTPHandler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	session, _ := authDomain.SessionFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	companies, err := h.companyQueries.Dispatch(ctx, application.NewListCompaniesQuery(session.ID))
	if err != nil {
		handleError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, companies)
}

func (h *AdminHTTPHandler) HandleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	session, _ := authDomain.SessionFromContext(r.Context())
	command := application.NewDeleteCompanyCommand(application.DeleteCompanyData{
		SessionID: session.ID,
		CompanyID: chi.URLParam(r, "companyID"),
	})

	// The directory already hides the company, so the saga must finish even
	// if the caller goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Second)
	defer cancel()

	if err := h.commandBus.Dispatch(ctx, command); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHTTPHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	session, _ := authDomain.SessionFromContext(r.Context())

	notifications, err := h.notificationQuery.Dispatch(r.Context(), application.NewListNotificationsQuery(session.ID))
	if err != nil {
		handleError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, notifications)
}

func (h *AdminHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/companies", h.HandleListCompanies)
		r.Delete("/companies/{companyID}", h.HandleDeleteCompany)
		r.Get("/notifications", h.HandleListNotifications)
	})
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var failure *domain.DeleteFailure
	switch {
	case errors.As(err, &failure):
		web.Error(w, r, http.StatusBadGateway, "delete_failed", failure.Error())
	case errors.Is(err, domain.ErrCompanyNotFound):
		web.Error(w, r, http.StatusNotFound, "company_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		web.Error(w, r, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		web.Error(w, r, http.StatusBadGateway, "upstream_error", err.Error())
	}
}
