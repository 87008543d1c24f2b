package ledger

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is the pagination metadata returned with a history listing.
type Page struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	NextPage     *int  `json:"nextPage"`
	PreviousPage *int  `json:"previousPage"`
	Total        int64 `json:"total"`
	Limit        int   `json:"limit"`
}

// NormalizePage clamps page and limit to their defaults and bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// NewPage computes metadata for page of size limit over total rows. Next and
// previous are nil at the boundaries; with no rows both are nil.
func NewPage(total int64, page, limit int) Page {
	page, limit = NormalizePage(page, limit)
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	p := Page{CurrentPage: page, TotalPages: totalPages, Total: total, Limit: limit}
	if page < totalPages {
		next := page + 1
		p.NextPage = &next
	}
	if page > 1 && totalPages > 0 {
		prev := page - 1
		if prev > totalPages {
			prev = totalPages
		}
		p.PreviousPage = &prev
	}
	return p
}
