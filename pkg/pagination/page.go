package pagination

// Page is a 1-based page/limit request used by the catalog listing.
type Page struct {
	Number int
	Limit  int
}

// NormalizePage clamps page to >= 1 and limit to the configured bounds.
func NormalizePage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	return Page{Number: page, Limit: NormalizeLimit(limit)}
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// TotalPages returns how many pages total rows span.
func (p Page) TotalPages(total int64) int {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
