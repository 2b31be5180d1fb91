package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	adminDomain "github.com/mateusmacedo/togobus-bff/internal/admin/domain"
)

type companyDTO struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	IsActive   bool       `json:"is_active"`
	TripsCount int        `json:"trips_count"`
}

func (c *Client) ListCompanies(ctx context.Context) ([]adminDomain.Company, error) {
	var result page[companyDTO]
	if err := c.do(ctx, request{
		operation: "list_companies",
		method:    http.MethodGet,
		path:      "companies/",
	}, &result); err != nil {
		return nil, err
	}

	companies := make([]adminDomain.Company, 0, len(result.Results))
	for _, dto := range result.Results {
		companies = append(companies, adminDomain.Company{
			ID:         string(dto.ID),
			Name:       dto.Name,
			Email:      dto.Email,
			Phone:      dto.Phone,
			Address:    dto.Address,
			IsActive:   dto.IsActive,
			TripsCount: dto.TripsCount,
		})
	}
	return companies, nil
}

// DeleteEntity removes /{kind}/{id}/ on the backend.
func (c *Client) DeleteEntity(ctx context.Context, kind, id string) error {
	if kind == "" || id == "" {
		return fmt.Errorf("delete entity: kind and id are required")
	}
	return c.do(ctx, request{
		operation: "delete_" + kind,
		method:    http.MethodDelete,
		path:      url.PathEscape(kind) + "/" + url.PathEscape(id) + "/",
	}, nil)
}
