package product

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the public catalog representation of a product.
type ProductDTO struct {
	ID             uuid.UUID        `json:"id"`
	Slug           string           `json:"slug"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty"`
	ImageURL       string           `json:"imageUrl"`
	Images         []string         `json:"images"`
	Sizes          []string         `json:"sizes"`
	Colors         []string         `json:"colors"`
	Fabrics        []string         `json:"fabrics"`
	InStock        bool             `json:"inStock"`
	CreatedAt      time.Time        `json:"createdAt"`
}

func FromModel(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		Slug:           p.Slug,
		Name:           p.Name,
		Description:    p.Description,
		Category:       p.Category,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		ImageURL:       p.ImageURL,
		Images:         nonNil(p.Images),
		Sizes:          nonNil(p.Sizes),
		Colors:         nonNil(p.Colors),
		Fabrics:        nonNil(p.Fabrics),
		InStock:        p.Stock > 0,
		CreatedAt:      p.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string(nil), values...)
}
