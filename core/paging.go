package core

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page selects a window of a listing. Number starts at 1.
type Page struct {
	Number int `query:"page"`
	Size   int `query:"per_page"`
}

func (p Page) Clean() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Clean()
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Clean().Size
}

// Bounds returns the [start, end) slice indexes of the page over total items.
func (p Page) Bounds(total int) (int, int) {
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit()
	if end > total {
		end = total
	}
	return start, end
}

type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPageInfo(p Page, total int) PageInfo {
	p = p.Clean()
	pages := total / p.Size
	if total%p.Size != 0 {
		pages++
	}
	return PageInfo{Page: p.Number, PerPage: p.Size, Total: total, TotalPages: pages}
}
