package models

// Page bounds a listing query. A Limit of zero or less yields an empty page.
type Page struct {
	Skip  int
	Limit int
}

// PageInfo carries pagination totals computed over the full matching set,
// not just the returned slice.
type PageInfo struct {
	TotalItem int64 `json:"total_item"`
	TotalPage int   `json:"total_page"`
}

// NewPageInfo computes TotalPage = ceil(total/limit), with zero pages for an
// empty set or a non-positive limit.
func NewPageInfo(total int64, limit int) PageInfo {
	info := PageInfo{TotalItem: total}
	if limit > 0 && total > 0 {
		info.TotalPage = int((total + int64(limit) - 1) / int64(limit))
	}
	return info
}
