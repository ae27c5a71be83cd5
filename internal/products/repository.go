package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes read access to the product catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a product repository to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository scoped to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a product. Used by seeding and tests; the HTTP surface is read-only.
func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID loads a product by id regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindActiveByIDOrSlug resolves an active product from a uuid or slug.
func (r *Repository) FindActiveByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Product, error) {
	qb := r.db.WithContext(ctx).Where("is_active = ?", true)
	if id, err := uuid.Parse(idOrSlug); err == nil {
		qb = qb.Where("id = ?", id)
	} else {
		qb = qb.Where("slug = ?", strings.ToLower(idOrSlug))
	}
	var p models.Product
	if err := qb.First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs returns the products for ids keyed by id. Missing ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// List applies the catalog filters and returns one page plus the total match count.
func (r *Repository) List(ctx context.Context, input ListInput) ([]models.Product, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)

	f := input.Filters
	if category := strings.TrimSpace(f.Category); category != "" {
		qb = qb.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	if size := strings.TrimSpace(f.Size); size != "" {
		qb = qb.Where("LOWER(CAST(sizes AS TEXT)) LIKE ?", jsonMemberPattern(size))
	}
	if color := strings.TrimSpace(f.Color); color != "" {
		qb = qb.Where("LOWER(CAST(colors AS TEXT)) LIKE ?", jsonMemberPattern(color))
	}
	if fabric := strings.TrimSpace(f.Fabric); fabric != "" {
		qb = qb.Where("LOWER(CAST(fabrics AS TEXT)) LIKE ?", jsonMemberPattern(fabric))
	}
	if f.MinPrice != nil {
		qb = qb.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		qb = qb.Where("price <= ?", *f.MaxPrice)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order, ok := sortClauses[f.Sort]
	if !ok {
		order = sortClauses[SortNewest]
	}
	for _, clause := range order {
		qb = qb.Order(clause)
	}

	var rows []models.Product
	if err := qb.Offset(input.Page.Offset()).Limit(input.Page.Limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return rows, total, nil
}

// Categories returns the distinct categories of active products, sorted.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// jsonMemberPattern matches a quoted element inside a serialized JSON string array.
func jsonMemberPattern(value string) string {
	return `%"` + strings.ToLower(value) + `"%`
}
