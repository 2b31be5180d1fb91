package application

import (
	"context"

	"github.com/mateusmacedo/togobus-bff/internal/admin/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

type (
	DeleteCommandBus      = pkgApp.CommandBus[pkgDomain.Command[DeleteCompanyData], DeleteCompanyData]
	CompanyQueryBus       = pkgApp.QueryBus[pkgDomain.Query[WorkspaceData], WorkspaceData, []domain.Company]
	NotificationQueryBus  = pkgApp.QueryBus[pkgDomain.Query[WorkspaceData], WorkspaceData, []domain.Notification]
	deleteCompanyFunc     = pkgApp.CommandHandlerFunc[DeleteCompanyData]
	listCompaniesFunc     = pkgApp.QueryHandlerFunc[WorkspaceData, []domain.Company]
	listNotificationsFunc = pkgApp.QueryHandlerFunc[WorkspaceData, []domain.Notification]
)

func NewDeleteCompanyHandler(saga *DeletionSaga, workspaces *domain.Workspaces, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[DeleteCompanyData], DeleteCompanyData] {
	return deleteCompanyFunc(func(ctx context.Context, data DeleteCompanyData) error {
		pkgApp.LogDebug(ctx, logger, "handling command", map[string]interface{}{
			"command_name": DeleteCompanyCommand,
			"company_id":   data.CompanyID,
		})
		return saga.Delete(ctx, workspaces.Get(data.SessionID), data.CompanyID)
	})
}

// NewListCompaniesHandler refreshes the session's directory from the backend
// and returns what is displayable. Companies mid-deletion stay hidden.
func NewListCompaniesHandler(companies domain.CompanyService, workspaces *domain.Workspaces, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[WorkspaceData], WorkspaceData, []domain.Company] {
	return listCompaniesFunc(func(ctx context.Context, data WorkspaceData) ([]domain.Company, error) {
		if ctx.Err() != nil {
			pkgApp.LogError(ctx, logger, "context cancelled", ctx.Err(), nil)
			return nil, ctx.Err()
		}
		fetched, err := companies.ListCompanies(ctx)
		if err != nil {
			pkgApp.LogError(ctx, logger, "failed to list companies", err, nil)
			return nil, err
		}
		directory := workspaces.Get(data.SessionID).Directory
		directory.Replace(fetched)
		return directory.List(), nil
	})
}

func NewListNotificationsHandler(workspaces *domain.Workspaces) pkgApp.QueryHandler[pkgDomain.Query[WorkspaceData], WorkspaceData, []domain.Notification] {
	return listNotificationsFunc(func(_ context.Context, data WorkspaceData) ([]domain.Notification, error) {
		return workspaces.Get(data.SessionID).Notifications.List(), nil
	})
}
