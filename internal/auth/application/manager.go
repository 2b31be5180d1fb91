package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/togobus-bff/pkg/domain"
)

type Claims struct {
	SessionID string
	Role      domain.Role
	ExpiresAt time.Time
}

// TokenCodec issues and verifies the BFF's own session tokens.
type TokenCodec interface {
	Issue(claims Claims) (string, error)
	Parse(token string) (Claims, error)
}

// Issued is a session together with the token handed to the browser.
type Issued struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"-"`
}

// Manager owns the auth session lifecycle: open on login or registration,
// restore against the backend, tear down on logout.
type Manager struct {
	provider    domain.IdentityProvider
	sessions    pkgApp.StateStore[domain.Session]
	codec       TokenCodec
	idGenerator pkgDomain.IDGenerator[string]
	logger      pkgApp.AppLogger
	ttl         time.Duration
	now         func() time.Time
	onLogout    []func(ctx context.Context, sessionID string)
}

func NewManager(
	provider domain.IdentityProvider,
	sessions pkgApp.StateStore[domain.Session],
	codec TokenCodec,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
	ttl time.Duration,
) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		provider:    provider,
		sessions:    sessions,
		codec:       codec,
		idGenerator: idGenerator,
		logger:      logger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// OnLogout registers fn to run after a session is closed.
func (m *Manager) OnLogout(fn func(ctx context.Context, sessionID string)) {
	m.onLogout = append(m.onLogout, fn)
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Login(ctx context.Context, credentials domain.Credentials) (Issued, error) {
	credentials.Email = strings.TrimSpace(credentials.Email)
	if credentials.Email == "" || credentials.Password == "" {
		return Issued{}, fmt.Errorf("%w: email and password are required", domain.ErrInvalidCredentials)
	}

	token, err := m.provider.Login(ctx, credentials)
	if err != nil {
		pkgApp.LogWarn(ctx, m.logger, "login rejected", err, map[string]interface{}{"email": credentials.Email})
		return Issued{}, err
	}

	profile, err := m.provider.Me(ctx, token)
	if err != nil {
		pkgApp.LogWarn(ctx, m.logger, "profile unavailable after login", err, map[string]interface{}{"email": credentials.Email})
		profile = domain.Profile{Username: credentials.Email, Email: credentials.Email}
	}
	return m.open(ctx, token, profile)
}

// Register creates the backend account. When the backend hands back no token
// the new account is logged in with the same credentials.
func (m *Manager) Register(ctx context.Context, registration domain.Registration) (Issued, error) {
	if registration.Password != registration.Password2 {
		return Issued{}, fmt.Errorf("%w: passwords do not match", domain.ErrRegistrationFailed)
	}

	token, err := m.provider.Register(ctx, registration)
	if err != nil {
		pkgApp.LogWarn(ctx, m.logger, "registration rejected", err, map[string]interface{}{"username": registration.Username})
		return Issued{}, err
	}
	if token == "" {
		return m.Login(ctx, domain.Credentials{Email: registration.Email, Password: registration.Password})
	}

	profile, err := m.provider.Me(ctx, token)
	if err != nil {
		pkgApp.LogWarn(ctx, m.logger, "profile unavailable after registration", err, map[string]interface{}{"username": registration.Username})
		profile = domain.Profile{
			Username:  registration.Username,
			Email:     registration.Email,
			FirstName: registration.FirstName,
			LastName:  registration.LastName,
		}
	}
	return m.open(ctx, token, profile)
}

func (m *Manager) open(ctx context.Context, backendToken string, profile domain.Profile) (Issued, error) {
	now := m.now()
	session := domain.Session{
		ID:         m.idGenerator(),
		Token:      backendToken,
		Profile:    profile,
		CreatedAt:  now,
		VerifiedAt: now,
	}
	if err := m.sessions.Save(ctx, session.ID, session); err != nil {
		pkgApp.LogError(ctx, m.logger, "failed to save session", err, nil)
		return Issued{}, err
	}

	token, err := m.codec.Issue(Claims{
		SessionID: session.ID,
		Role:      profile.Role(),
		ExpiresAt: now.Add(m.ttl),
	})
	if err != nil {
		_ = m.sessions.Delete(ctx, session.ID)
		return Issued{}, fmt.Errorf("issue session token: %w", err)
	}

	pkgApp.LogInfo(ctx, m.logger, "session opened", map[string]interface{}{
		"session_id": session.ID,
		"role":       profile.Role(),
	})
	return Issued{Token: token, Session: session}, nil
}

// Resolve maps a BFF token to its stored session without calling the backend.
func (m *Manager) Resolve(ctx context.Context, token string) (domain.Session, error) {
	claims, err := m.codec.Parse(token)
	if err != nil {
		return domain.Session{}, err
	}
	session, err := m.sessions.Load(ctx, claims.SessionID)
	if errors.Is(err, pkgApp.ErrStateNotFound) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, err
}

// Restore revalidates the session against the backend. A rejected backend
// token ends the session; an unreachable backend keeps the cached profile.
func (m *Manager) Restore(ctx context.Context, token string) (domain.Session, error) {
	session, err := m.Resolve(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}

	profile, err := m.provider.Me(ctx, session.Token)
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		pkgApp.LogInfo(ctx, m.logger, "backend token revoked, closing session", map[string]interface{}{"session_id": session.ID})
		_ = m.sessions.Delete(ctx, session.ID)
		return domain.Session{}, domain.ErrUnauthenticated
	case err != nil:
		pkgApp.LogWarn(ctx, m.logger, "profile refresh failed, using cached profile", err, map[string]interface{}{"session_id": session.ID})
		return session, nil
	}

	session.Profile = profile
	session.VerifiedAt = m.now()
	if err := m.sessions.Save(ctx, session.ID, session); err != nil {
		pkgApp.LogWarn(ctx, m.logger, "failed to refresh session", err, map[string]interface{}{"session_id": session.ID})
	}
	return session, nil
}

func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		pkgApp.LogError(ctx, m.logger, "failed to delete session", err, map[string]interface{}{"session_id": sessionID})
		return err
	}
	for _, fn := range m.onLogout {
		fn(ctx, sessionID)
	}
	pkgApp.LogInfo(ctx, m.logger, "session closed", map[string]interface{}{"session_id": sessionID})
	return nil
}
