package grid

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNextSort(t *testing.T) {
	t.Run("Same key cycles asc, desc, unset", func(t *testing.T) {
		state := SortState{}
		state = NextSort(state, "name")
		assert.Equal(t, SortState{Key: "name", Direction: DirectionAsc}, state)
		state = NextSort(state, "name")
		assert.Equal(t, SortState{Key: "name", Direction: DirectionDesc}, state)
		state = NextSort(state, "name")
		assert.False(t, state.Active())
		state = NextSort(state, "name")
		assert.Equal(t, DirectionAsc, state.Direction)
	})

	t.Run("Another key starts at asc", func(t *testing.T) {
		state := SortState{Key: "name", Direction: DirectionDesc}
		state = NextSort(state, "amount")
		assert.Equal(t, SortState{Key: "amount", Direction: DirectionAsc}, state)
	})
}

func TestSortRows(t *testing.T) {
	rows := []Row{
		{"name": "Carol", "amount": 30, "paid": decimal.RequireFromString("10.50")},
		{"name": "Alice", "amount": 10, "paid": decimal.RequireFromString("2.25")},
		{"name": "Bob", "amount": nil, "paid": nil},
		{"name": "Dave", "amount": 10.0, "paid": decimal.RequireFromString("10.5")},
	}

	t.Run("Inactive sort keeps the original order", func(t *testing.T) {
		assert.Equal(t, []string{"Carol", "Alice", "Bob", "Dave"}, names(SortRows(rows, SortState{Key: "name"})))
	})

	t.Run("Ascending strings", func(t *testing.T) {
		assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, names(SortRows(rows, SortState{Key: "name", Direction: DirectionAsc})))
	})

	t.Run("Descending strings", func(t *testing.T) {
		assert.Equal(t, []string{"Dave", "Carol", "Bob", "Alice"}, names(SortRows(rows, SortState{Key: "name", Direction: DirectionDesc})))
	})

	t.Run("Ties keep their order and nil stays last", func(t *testing.T) {
		assert.Equal(t, []string{"Alice", "Dave", "Carol", "Bob"}, names(SortRows(rows, SortState{Key: "amount", Direction: DirectionAsc})))
		assert.Equal(t, []string{"Carol", "Alice", "Dave", "Bob"}, names(SortRows(rows, SortState{Key: "amount", Direction: DirectionDesc})))
	})

	t.Run("Decimals compare by value", func(t *testing.T) {
		assert.Equal(t, []string{"Alice", "Carol", "Dave", "Bob"}, names(SortRows(rows, SortState{Key: "paid", Direction: DirectionAsc})))
	})

	t.Run("Input is not modified", func(t *testing.T) {
		SortRows(rows, SortState{Key: "name", Direction: DirectionAsc})
		assert.Equal(t, "Carol", rows[0]["name"])
	})

	t.Run("Mixed kinds follow a fixed kind order", func(t *testing.T) {
		mixed := []Row{
			{"name": "string", "v": "10"},
			{"name": "time", "v": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{"name": "number", "v": 2},
			{"name": "nil", "v": nil},
			{"name": "bool", "v": true},
		}
		assert.Equal(t, []string{"bool", "number", "time", "string", "nil"}, names(SortRows(mixed, SortState{Key: "v", Direction: DirectionAsc})))
		assert.Equal(t, []string{"string", "time", "number", "bool", "nil"}, names(SortRows(mixed, SortState{Key: "v", Direction: DirectionDesc})))
	})
}
