package product

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) Service {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	seedCatalog(t, repo, defaultSeeds())
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func TestServiceListBuildsPageMeta(t *testing.T) {
	svc := newTestCatalog(t)

	res, err := svc.List(context.Background(), ListInput{Page: pagination.NormalizePage(1, 2)})
	require.NoError(t, err)
	assert.Len(t, res.Products, 2)
	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 1, res.Page)
	assert.NotNil(t, res.Products[0].Images)
}

func TestServiceListValidatesFilters(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()
	page := pagination.NormalizePage(1, 10)

	_, err := svc.List(ctx, ListInput{Filters: ListFilters{Sort: "random"}, Page: page})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	lo, hi := decimal.NewFromInt(100), decimal.NewFromInt(10)
	_, err = svc.List(ctx, ListInput{Filters: ListFilters{MinPrice: &lo, MaxPrice: &hi}, Page: page})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	neg := decimal.NewFromInt(-1)
	_, err = svc.List(ctx, ListInput{Filters: ListFilters{MinPrice: &neg}, Page: page})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceGet(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()

	p, err := svc.Get(ctx, "cotton-kurta")
	require.NoError(t, err)
	assert.Equal(t, "Cotton Kurta", p.Name)
	assert.True(t, p.InStock)

	_, err = svc.Get(ctx, "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceCategories(t *testing.T) {
	svc := newTestCatalog(t)
	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Kurtas", "Sarees"}, categories)
}
