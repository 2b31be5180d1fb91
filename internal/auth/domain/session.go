package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRegistrationFailed = errors.New("registration rejected")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient role")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidToken       = errors.New("invalid session token")
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
	RoleUser    Role = "user"
)

// Profile is the cached view of the backend user.
type Profile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	IsStaff        bool   `json:"is_staff"`
	IsCompanyAdmin bool   `json:"is_company_admin"`
	CompanyID      string `json:"company_id,omitempty"`
}

func (p Profile) Role() Role {
	switch {
	case p.IsStaff:
		return RoleAdmin
	case p.IsCompanyAdmin:
		return RoleCompany
	default:
		return RoleUser
	}
}

// Session binds a BFF session to the backend token it was opened with.
type Session struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	Profile    Profile   `json:"profile"`
	CreatedAt  time.Time `json:"created_at"`
	VerifiedAt time.Time `json:"verified_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// IdentityProvider is the backend's account API.
type IdentityProvider interface {
	Login(ctx context.Context, credentials Credentials) (token string, err error)
	Register(ctx context.Context, registration Registration) (token string, err error)
	Me(ctx context.Context, token string) (Profile, error)
}

type sessionKey struct{}

func ContextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(Session)
	return session, ok
}
