package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	authDomain "github.com/mateusmacedo/togobus-bff/internal/auth/domain"
)

type tokenDTO struct {
	Token string `json:"token"`
}

type profileDTO struct {
	ID             flexString `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	IsStaff        bool       `json:"is_staff"`
	IsSuperuser    bool       `json:"is_superuser"`
	IsCompanyAdmin bool       `json:"is_company_admin"`
	CompanyID      flexString `json:"company_id"`
}

func (c *Client) Login(ctx context.Context, credentials authDomain.Credentials) (string, error) {
	var result tokenDTO
	err := c.do(ctx, request{
		operation: "login",
		method:    http.MethodPost,
		path:      "login/",
		body:      credentials,
	}, &result)
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrUnauthorized) {
		return "", fmt.Errorf("%w: %v", authDomain.ErrInvalidCredentials, err)
	}
	if err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", fmt.Errorf("%w: backend returned no token", authDomain.ErrInvalidCredentials)
	}
	return result.Token, nil
}

func (c *Client) Register(ctx context.Context, registration authDomain.Registration) (string, error) {
	var result tokenDTO
	err := c.do(ctx, request{
		operation: "register",
		method:    http.MethodPost,
		path:      "register/",
		body:      registration,
	}, &result)
	if errors.Is(err, ErrBadRequest) {
		return "", fmt.Errorf("%w: %v", authDomain.ErrRegistrationFailed, err)
	}
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

func (c *Client) Me(ctx context.Context, token string) (authDomain.Profile, error) {
	if token == "" {
		return authDomain.Profile{}, authDomain.ErrUnauthenticated
	}
	var result profileDTO
	err := c.do(ctx, request{
		operation: "me",
		method:    http.MethodGet,
		path:      "me/",
		token:     token,
	}, &result)
	if errors.Is(err, ErrUnauthorized) {
		return authDomain.Profile{}, fmt.Errorf("%w: %v", authDomain.ErrInvalidToken, err)
	}
	if err != nil {
		return authDomain.Profile{}, err
	}
	return authDomain.Profile{
		ID:             string(result.ID),
		Username:       result.Username,
		Email:          result.Email,
		FirstName:      result.FirstName,
		LastName:       result.LastName,
		IsStaff:        result.IsStaff || result.IsSuperuser,
		IsCompanyAdmin: result.IsCompanyAdmin,
		CompanyID:      string(result.CompanyID),
	}, nil
}
