package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Sizes, colors and fabrics list the options a cart line may pick.
type Product struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Slug           string           `gorm:"column:slug;not null;uniqueIndex"`
	Name           string           `gorm:"column:name;not null"`
	Description    string           `gorm:"column:description;not null;default:''"`
	Category       string           `gorm:"column:category;not null;index"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(12,2)"`
	ImageURL       string           `gorm:"column:image_url;not null;default:''"`
	Images         types.StringList `gorm:"column:images;type:jsonb;not null"`
	Sizes          types.StringList `gorm:"column:sizes;type:jsonb;not null"`
	Colors         types.StringList `gorm:"column:colors;type:jsonb;not null"`
	Fabrics        types.StringList `gorm:"column:fabrics;type:jsonb;not null"`
	Stock          int              `gorm:"column:stock;not null;default:0"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
