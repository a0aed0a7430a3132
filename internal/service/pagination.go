package service

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Page describes one page of a listing.
type Page struct {
	Number int
	Limit  int
	Total  int
}

func newPage(page, limit int) Page {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Number: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Number - 1) * p.Limit }

func (p Page) TotalPages() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

func (p Page) HasNext() bool { return p.Number < p.TotalPages() }
func (p Page) HasPrev() bool { return p.Number > 1 }
