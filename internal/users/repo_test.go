package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: " Shopper@Example.com ", PasswordHash: "hash", Name: "Shopper"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "shopper@example.com", user.Email)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)

	found, err := repo.FindByEmail(ctx, "SHOPPER@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shopper", byID.Name)

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	assert.True(t, db.IsNotFound(err))
}

func TestRepositoryRejectsDuplicateEmail(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Email: "dup@example.com", PasswordHash: "hash", Name: "A"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Email: "dup@example.com", PasswordHash: "hash", Name: "B"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "a@example.com", PasswordHash: "hash", Name: "A", Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
	assert.Equal(t, enums.UserRoleAdmin, got.Role)
}

func TestRepositoryFindActiveByID(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "gone@example.com", PasswordHash: "hash", Name: "Gone"})
	require.NoError(t, err)

	active, err := repo.FindActiveByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, active.ID)

	require.NoError(t, repo.Deactivate(ctx, user.ID))
	_, err = repo.FindActiveByID(ctx, user.ID)
	assert.True(t, db.IsNotFound(err))

	_, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)

	assert.True(t, db.IsNotFound(repo.Deactivate(ctx, uuid.New())))
}
