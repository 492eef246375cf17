package domain

// Paginate returns the page at pageIndex of an ordered result. Total is
// always the length of the full list. Callers validate that pageIndex and
// pageSize are not negative.
func Paginate(views []PostView, pageIndex, pageSize int) *Page {
	page := &Page{
		Posts:     []PostView{},
		Total:     len(views),
		PageIndex: pageIndex,
		PageSize:  pageSize,
	}
	if pageSize <= 0 {
		return page
	}

	page.TotalPages = (len(views) + pageSize - 1) / pageSize

	offset := pageIndex * pageSize
	if offset >= len(views) {
		return page
	}
	end := min(offset+pageSize, len(views))
	page.Posts = append(page.Posts, views[offset:end]...)
	return page
}
