package grid

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func rowsFrom(names []string, amounts []int) []Row {
	rows := make([]Row, 0, len(names))
	for i, name := range names {
		amount := 0
		if i < len(amounts) {
			amount = amounts[i]
		}
		rows = append(rows, Row{"id": i, "name": name, "amount": amount})
	}
	return rows
}

func ids(rows []Row) []int {
	result := make([]int, 0, len(rows))
	for _, row := range rows {
		result = append(result, row["id"].(int))
	}
	return result
}

func TestFilterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Unset clauses never change the rows", prop.ForAll(
		func(names []string, amounts []int) bool {
			rows := rowsFrom(names, amounts)
			clauses := []FilterClause{
				NewFilterClause("name", FilterText, ""),
				NewFilterClause("amount", FilterNumberRange, nil),
				NewFilterClause("amount", FilterDateRange, ""),
				NewFilterClause("amount", FilterSelect, nil),
			}
			return reflect.DeepEqual(ids(rows), ids(ApplyFilters(rows, clauses, nil)))
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("Clauses combine as an intersection", prop.ForAll(
		func(names []string, amounts []int, low int, needle string) bool {
			rows := rowsFrom(names, amounts)
			byAmount := NewFilterClause("amount", FilterNumberRange, []any{low, low + 250})
			byName := NewFilterClause("name", FilterText, needle)

			both := ids(ApplyFilters(rows, []FilterClause{byAmount, byName}, nil))
			chained := ids(ApplyFilters(ApplyFilters(rows, []FilterClause{byAmount}, nil), []FilterClause{byName}, nil))
			return reflect.DeepEqual(both, chained)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(0, 1000),
		gen.AlphaString(),
	))

	properties.Property("Blank search returns every row", prop.ForAll(
		func(names []string) bool {
			rows := rowsFrom(names, nil)
			return len(Search(rows, "  ", []string{"name"})) == len(rows)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestPaginationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Pages concatenate to the whole collection", prop.ForAll(
		func(n int, pageSize int) bool {
			rows := numberedRows(n)
			var joined []Row
			for page := 1; page <= PageCount(n, pageSize); page++ {
				current := Paginate(rows, page, pageSize)
				if len(current) > pageSize {
					return false
				}
				joined = append(joined, current...)
			}
			return len(joined) == n && (n == 0 || joined[n-1]["id"] == n)
		},
		gen.IntRange(0, 1000),
		gen.IntRange(1, 100),
	))

	properties.Property("Repositioning keeps the first visible row", prop.ForAll(
		func(current int, oldSize int, newSize int) bool {
			total := 1000
			current = ClampPage(current, total, oldSize)
			first := (current - 1) * oldSize
			page := RepositionPage(current, oldSize, newSize, total)
			start, end := pageBounds(total, page, newSize)
			return start <= first && first < end
		},
		gen.IntRange(1, 200),
		gen.IntRange(1, 100),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}

func TestSortProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Three toggles of one column restore the order", prop.ForAll(
		func(names []string, amounts []int) bool {
			e := New(rowsFrom(names, amounts), Options{
				Columns:     []ColumnDescriptor{{Key: "name", Sortable: true}, {Key: "amount", Sortable: true}},
				RowKeyField: "id",
			})
			before := ids(e.Rows())
			for range 3 {
				if _, err := e.ToggleSort("amount"); err != nil {
					return false
				}
			}
			return reflect.DeepEqual(before, ids(e.Rows()))
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("Ascending sort is ordered and keeps every row", prop.ForAll(
		func(amounts []int) bool {
			names := make([]string, len(amounts))
			sorted := SortRows(rowsFrom(names, amounts), SortState{Key: "amount", Direction: DirectionAsc})
			if len(sorted) != len(amounts) {
				return false
			}
			for i := 1; i < len(sorted); i++ {
				if sorted[i-1]["amount"].(int) > sorted[i]["amount"].(int) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}

func TestSelectionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Toggling twice restores the selection", prop.ForAll(
		func(initial []string, key string) bool {
			s := NewSelectionTracker(SelectionCheckbox)
			s.SelectAll(initial)
			before := s.SelectedKeys()
			s.Toggle(key)
			s.Toggle(key)
			after := s.SelectedKeys()
			if s.IsSelected(key) != contains(before, key) {
				return false
			}
			return len(before) == len(after)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.Property("Radio mode never holds more than one key", prop.ForAll(
		func(keys []string) bool {
			s := NewSelectionTracker(SelectionRadio)
			for _, key := range keys {
				s.Toggle(key)
			}
			s.SelectAll(keys)
			return s.Len() <= 1
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
