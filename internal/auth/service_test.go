package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	created map[string]uuid.UUID
	revoked []string
	err     error
}

func newStubSessions() *stubSessions {
	return &stubSessions{created: map[string]uuid.UUID{}}
}

func (s *stubSessions) Create(_ context.Context, accessID string, userID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.created[accessID] = userID
	return nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60}

func newTestService(t *testing.T) (Service, *users.Repository, *stubSessions) {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	sessions := newStubSessions()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
	})
	require.NoError(t, err)
	return svc, repo, sessions
}

func TestRegisterThenLogin(t *testing.T) {
	svc, repo, sessions := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: "Asha@Example.com", Password: "long-password"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", reg.User.Email)
	assert.Equal(t, enums.UserRoleCustomer, reg.User.Role)

	claims, err := pkgAuth.ParseAccessToken(testJWT, reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, reg.User.ID, sessions.created[claims.ID])

	login, err := svc.Login(ctx, LoginRequest{Email: "ASHA@example.com", Password: "long-password"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.Len(t, sessions.created, 2)

	stored, err := repo.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "dup@example.com", Password: "long-password"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Name: "B", Email: "dup@example.com", Password: "long-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "long-password"})
	require.NoError(t, err)

	for _, req := range []LoginRequest{
		{Email: "a@example.com", Password: "wrong-password"},
		{Email: "missing@example.com", Password: "long-password"},
		{Email: "", Password: "long-password"},
	} {
		_, err := svc.Login(ctx, req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), req.Email)
	}
}

func TestLoginSurfacesSessionStoreFailure(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "long-password"})
	require.NoError(t, err)

	sessions.err = errors.New("redis down")
	_, err = svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "long-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestLogoutRevokesAndMe(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "long-password"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "jti-1"))
	require.NoError(t, svc.Logout(ctx, ""))
	assert.Equal(t, []string{"jti-1"}, sessions.revoked)

	me, err := svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", me.Email)

	_, err = svc.Me(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRegisterSessionExpiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return fixed }

	reg, err := svc.Register(context.Background(), RegisterRequest{Name: "A", Email: "a@example.com", Password: "long-password"})
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour), reg.ExpiresAt)
}
