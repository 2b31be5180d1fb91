package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/togobus-bff/internal/admin/application"
	"github.com/mateusmacedo/togobus-bff/internal/admin/domain"
	"github.com/mateusmacedo/togobus-bff/internal/admin/infrastructure"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
)

type AdminSlice struct {
	workspaces  *domain.Workspaces
	httpHandler *infrastructure.AdminHTTPHandler
}

func NewAdminSlice(
	commandBus application.DeleteCommandBus,
	companyQueries application.CompanyQueryBus,
	notificationQueries application.NotificationQueryBus,
	companies domain.CompanyService,
	saga *application.DeletionSaga,
	notificationLimit int,
	requireAdmin func(http.Handler) http.Handler,
	logger pkgApp.AppLogger,
	opts ...domain.WorkspaceOption,
) *AdminSlice {
	workspaces := domain.NewWorkspaces(notificationLimit, opts...)

	commandBus.RegisterHandler(application.DeleteCompanyCommand, application.NewDeleteCompanyHandler(saga, workspaces, logger))
	companyQueries.RegisterHandler(application.ListCompaniesQuery, application.NewListCompaniesHandler(companies, workspaces, logger))
	notificationQueries.RegisterHandler(application.ListNotificationsQuery, application.NewListNotificationsHandler(workspaces))

	return &AdminSlice{
		workspaces:  workspaces,
		httpHandler: infrastructure.NewAdminHTTPHandler(commandBus, companyQueries, notificationQueries, requireAdmin),
	}
}

// DropWorkspace discards a session's directory and notifications.
func (s *AdminSlice) DropWorkspace(_ context.Context, sessionID string) {
	s.workspaces.Drop(sessionID)
}

func (s *AdminSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
