package services

// Page selects a window of an ordered result set. Page numbers start at 1.
type Page struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

const maxPageSize = 100

func (p Page) normalize(defaultLimit int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}
