package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numberedRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{"id": i + 1, "name": string(rune('a' + i%26))}
	}
	return rows
}

func TestPaginate(t *testing.T) {
	rows := numberedRows(15)

	t.Run("First page", func(t *testing.T) {
		page := Paginate(rows, 1, 10)
		assert.Len(t, page, 10)
		assert.Equal(t, 1, page[0]["id"])
	})

	t.Run("Last page holds the remainder", func(t *testing.T) {
		page := Paginate(rows, 2, 10)
		assert.Len(t, page, 5)
		assert.Equal(t, 11, page[0]["id"])
	})

	t.Run("Out of range pages are empty", func(t *testing.T) {
		assert.Empty(t, Paginate(rows, 3, 10))
		assert.Empty(t, Paginate(rows, 0, 10))
		assert.Empty(t, Paginate(rows, -1, 10))
		assert.Empty(t, Paginate(rows, 1, 0))
	})

	t.Run("Huge page numbers do not overflow", func(t *testing.T) {
		assert.NotPanics(t, func() {
			assert.Empty(t, Paginate(rows, math.MaxInt, 10))
			assert.Empty(t, Paginate(rows, math.MaxInt/5, 10))
			assert.Empty(t, Paginate(rows, 2, math.MaxInt))
		})
		assert.Len(t, Paginate(rows, 1, math.MaxInt), 15)
	})
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 2, PageCount(15, 10))
	assert.Equal(t, 3, PageCount(30, 10))
	assert.Equal(t, 1, PageCount(0, 10), "an empty collection has one empty page")
	assert.Equal(t, 1, PaginationState{Total: 0, PageSize: 10}.PageCount())
	assert.Equal(t, 1, PageCount(15, math.MaxInt))
}

func TestRepositionPage(t *testing.T) {
	t.Run("Keeps the first visible row in view", func(t *testing.T) {
		// rows 41-50 on page 5 of 10 are on page 3 of 20
		assert.Equal(t, 3, RepositionPage(5, 10, 20, 100))
		assert.Equal(t, 9, RepositionPage(5, 10, 5, 100))
	})

	t.Run("Clamps to the last page", func(t *testing.T) {
		assert.Equal(t, 1, RepositionPage(2, 10, 50, 15))
		assert.Equal(t, 3, RepositionPage(math.MaxInt, 10, 5, 15))
	})

	t.Run("Clamp moves pages into range", func(t *testing.T) {
		assert.Equal(t, 1, ClampPage(0, 15, 10))
		assert.Equal(t, 2, ClampPage(7, 15, 10))
		assert.Equal(t, 1, ClampPage(3, 0, 10))
	})
}
