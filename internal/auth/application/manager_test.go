package application_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/togobus-bff/internal/auth/application"
	"github.com/mateusmacedo/togobus-bff/internal/auth/domain"
	pkgApp "github.com/mateusmacedo/togobus-bff/pkg/application"
	pkgInfra "github.com/mateusmacedo/togobus-bff/pkg/infrastructure"
)

type fakeProvider struct {
	loginToken    string
	loginErr      error
	registerToken string
	registerErr   error
	profile       domain.Profile
	meErr         error
	logins        int
}

func (p *fakeProvider) Login(_ context.Context, _ domain.Credentials) (string, error) {
	p.logins++
	return p.loginToken, p.loginErr
}

func (p *fakeProvider) Register(_ context.Context, _ domain.Registration) (string, error) {
	return p.registerToken, p.registerErr
}

func (p *fakeProvider) Me(_ context.Context, _ string) (domain.Profile, error) {
	return p.profile, p.meErr
}

// plainCodec encodes the session id as the token itself.
type plainCodec struct{}

func (plainCodec) Issue(claims application.Claims) (string, error) {
	return "tok:" + claims.SessionID, nil
}

func (plainCodec) Parse(token string) (application.Claims, error) {
	if len(token) < 4 || token[:4] != "tok:" {
		return application.Claims{}, domain.ErrInvalidToken
	}
	return application.Claims{SessionID: token[4:]}, nil
}

func newManager(provider *fakeProvider) (*application.Manager, *pkgInfra.InMemoryStateStore[domain.Session]) {
	store := pkgInfra.NewInMemoryStateStore[domain.Session](pkgApp.NopLogger())
	ids := 0
	idGen := func() string {
		ids++
		return "s" + strconv.Itoa(ids)
	}
	manager := application.NewManager(provider, store, plainCodec{}, idGen, pkgApp.NopLogger(), time.Hour)
	return manager, store
}

func TestManager_LoginOpensSession(t *testing.T) {
	provider := &fakeProvider{loginToken: "backend", profile: domain.Profile{Username: "root", IsStaff: true}}
	manager, store := newManager(provider)

	issued, err := manager.Login(context.Background(), domain.Credentials{Email: " root@togobus.tg ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok:s1", issued.Token)
	assert.Equal(t, domain.RoleAdmin, issued.Session.Profile.Role())
	assert.Equal(t, 1, store.Len())

	session, err := manager.Resolve(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "backend", session.Token)
}

func TestManager_LoginRequiresCredentials(t *testing.T) {
	manager, _ := newManager(&fakeProvider{})

	_, err := manager.Login(context.Background(), domain.Credentials{Email: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestManager_LoginFallsBackWhenProfileUnavailable(t *testing.T) {
	provider := &fakeProvider{loginToken: "backend", meErr: errors.New("timeout")}
	manager, _ := newManager(provider)

	issued, err := manager.Login(context.Background(), domain.Credentials{Email: "ama@togobus.tg", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ama@togobus.tg", issued.Session.Profile.Email)
	assert.Equal(t, domain.RoleUser, issued.Session.Profile.Role())
}

func TestManager_RegisterPasswordMismatch(t *testing.T) {
	manager, _ := newManager(&fakeProvider{})

	_, err := manager.Register(context.Background(), domain.Registration{Password: "a", Password2: "b"})
	assert.ErrorIs(t, err, domain.ErrRegistrationFailed)
}

func TestManager_RegisterWithoutTokenLogsIn(t *testing.T) {
	provider := &fakeProvider{loginToken: "backend", profile: domain.Profile{Username: "kofi"}}
	manager, _ := newManager(provider)

	issued, err := manager.Register(context.Background(), domain.Registration{
		Username: "kofi", Email: "kofi@togobus.tg", Password: "pw", Password2: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.logins)
	assert.Equal(t, "kofi", issued.Session.Profile.Username)
}

func TestManager_RestoreRefreshesProfile(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{loginToken: "backend", profile: domain.Profile{Username: "ama"}}
	manager, _ := newManager(provider)
	manager.WithClock(func() time.Time { return now })

	issued, err := manager.Login(context.Background(), domain.Credentials{Email: "ama@togobus.tg", Password: "pw"})
	require.NoError(t, err)

	now = now.Add(time.Minute)
	provider.profile = domain.Profile{Username: "ama", IsCompanyAdmin: true}
	session, err := manager.Restore(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCompany, session.Profile.Role())
	assert.Equal(t, now, session.VerifiedAt)
}

func TestManager_RestoreKeepsCachedProfileWhenBackendDown(t *testing.T) {
	provider := &fakeProvider{loginToken: "backend", profile: domain.Profile{Username: "ama"}}
	manager, _ := newManager(provider)
	issued, err := manager.Login(context.Background(), domain.Credentials{Email: "ama@togobus.tg", Password: "pw"})
	require.NoError(t, err)

	provider.meErr = errors.New("connection refused")
	session, err := manager.Restore(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "ama", session.Profile.Username)
}

func TestManager_RestoreClosesRevokedSession(t *testing.T) {
	provider := &fakeProvider{loginToken: "backend", profile: domain.Profile{Username: "ama"}}
	manager, store := newManager(provider)
	issued, err := manager.Login(context.Background(), domain.Credentials{Email: "ama@togobus.tg", Password: "pw"})
	require.NoError(t, err)

	provider.meErr = domain.ErrInvalidToken
	_, err = manager.Restore(context.Background(), issued.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, 0, store.Len())

	_, err = manager.Resolve(context.Background(), issued.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_LogoutRunsHooks(t *testing.T) {
	provider := &fakeProvider{loginToken: "backend"}
	manager, store := newManager(provider)
	var closed []string
	manager.OnLogout(func(_ context.Context, sessionID string) { closed = append(closed, sessionID) })

	issued, err := manager.Login(context.Background(), domain.Credentials{Email: "ama@togobus.tg", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, manager.Logout(context.Background(), issued.Session.ID))
	assert.Equal(t, []string{issued.Session.ID}, closed)
	assert.Equal(t, 0, store.Len())
}
