package grid

// DefaultPageSize is used when a grid is created without a page size.
const DefaultPageSize = 10

// PaginationState is the page window of a grid. Current is 1-based and Total
// counts the rows after search and filters, before paging.
type PaginationState struct {
	Current  int `json:"current"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// PageCount is ceil(Total / PageSize). An empty collection still has one
// (empty) page.
func (p PaginationState) PageCount() int {
	return PageCount(p.Total, p.PageSize)
}

// PageCount returns the number of pages of total rows.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	if total <= 0 {
		return 1
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// Paginate returns rows[(current-1)*pageSize : current*pageSize]. Pages
// outside the collection are empty, not an error.
func Paginate(rows []Row, current, pageSize int) []Row {
	start, end := pageBounds(len(rows), current, pageSize)
	return rows[start:end]
}

func pageBounds(n, current, pageSize int) (int, int) {
	if current < 1 || pageSize <= 0 {
		return 0, 0
	}
	// Compare page numbers first, (current-1)*pageSize overflows for huge pages.
	if n == 0 || current-1 >= PageCount(n, pageSize) {
		return n, n
	}
	start := (current - 1) * pageSize
	end := n
	if n-start > pageSize {
		end = start + pageSize
	}
	return start, end
}

// ClampPage moves current into [1, PageCount(total, pageSize)].
func ClampPage(current, total, pageSize int) int {
	if current < 1 {
		return 1
	}
	if last := PageCount(total, pageSize); current > last {
		return last
	}
	return current
}

// RepositionPage returns the page that keeps the first row of the old page
// visible after the page size changed, clamped to the new page count.
func RepositionPage(current, oldSize, newSize, total int) int {
	if current < 1 || oldSize <= 0 || newSize <= 0 {
		return 1
	}
	if current-1 >= PageCount(total, oldSize) {
		return PageCount(total, newSize)
	}
	firstRow := (current - 1) * oldSize
	return ClampPage(firstRow/newSize+1, total, newSize)
}
