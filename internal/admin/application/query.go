package application

import pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"

const (
	ListCompaniesQuery     = "ListCompanies"
	ListNotificationsQuery = "ListNotifications"
)

type WorkspaceData struct {
	SessionID string
}

type workspaceQuery struct {
	name string
	data WorkspaceData
}

func (q *workspaceQuery) QueryName() string {
	return q.name
}

func (q *workspaceQuery) Payload() WorkspaceData {
	return q.data
}

func NewListCompaniesQuery(sessionID string) pkgDomain.Query[WorkspaceData] {
	return &workspaceQuery{name: ListCompaniesQuery, data: WorkspaceData{SessionID: sessionID}}
}

func NewListNotificationsQuery(sessionID string) pkgDomain.Query[WorkspaceData] {
	return &workspaceQuery{name: ListNotificationsQuery, data: WorkspaceData{SessionID: sessionID}}
}
