package application

import pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"

const DeleteCompanyCommand = "DeleteCompany"

type DeleteCompanyData struct {
	SessionID string
	CompanyID string
}

type deleteCompanyCommand struct {
	data DeleteCompanyData
}

func NewDeleteCompanyCommand(data DeleteCompanyData) pkgDomain.Command[DeleteCompanyData] {
	return &deleteCompanyCommand{data: data}
}

func (c *deleteCompanyCommand) CommandName() string {
	return DeleteCompanyCommand
}

func (c *deleteCompanyCommand) Payload() DeleteCompanyData {
	return c.data
}
