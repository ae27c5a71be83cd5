package product

import (
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// Sort keys accepted by the catalog listing.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

var sortClauses = map[string][]string{
	SortNewest:    {"created_at DESC", "id DESC"},
	SortPriceAsc:  {"price ASC", "id ASC"},
	SortPriceDesc: {"price DESC", "id ASC"},
	SortName:      {"LOWER(name) ASC", "id ASC"},
}

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	Category string           `json:"category,omitempty"`
	Size     string           `json:"size,omitempty"`
	Color    string           `json:"color,omitempty"`
	Fabric   string           `json:"fabric,omitempty"`
	MinPrice *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice *decimal.Decimal `json:"maxPrice,omitempty"`
	Search   string           `json:"q,omitempty"`
	Sort     string           `json:"sort,omitempty"`
}

// ListInput captures the filters plus the requested page.
type ListInput struct {
	Filters ListFilters
	Page    pagination.Page
}

// ListResult is a page of products plus paging metadata.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"totalPages"`
}

// IsValidSort reports whether sort is empty or a known key.
func IsValidSort(sort string) bool {
	if sort == "" {
		return true
	}
	_, ok := sortClauses[sort]
	return ok
}
