package grid

import "github.com/siherrmann/schoolpayManager/model"

// Row is one record of the collection shown by a grid.
type Row = model.DataMap

// FilterType selects the predicate a column filter uses.
type FilterType string

const (
	FilterText        FilterType = "text"
	FilterSelect      FilterType = "select"
	FilterNumber      FilterType = "number"
	FilterNumberRange FilterType = "numberRange"
	FilterDate        FilterType = "date"
	FilterDateRange   FilterType = "dateRange"
	FilterBoolean     FilterType = "boolean"
)

// Align is the horizontal alignment of a column. Display only.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// FilterOption is one choice of a select filter.
type FilterOption struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ColumnDescriptor declares one field of the grid and how it may be
// searched, filtered and sorted.
type ColumnDescriptor struct {
	Key           string         `json:"key"`
	Title         string         `json:"title"`
	Sortable      bool           `json:"sortable,omitempty"`
	Filterable    bool           `json:"filterable,omitempty"`
	FilterType    FilterType     `json:"filter_type,omitempty"`
	FilterOptions []FilterOption `json:"filter_options,omitempty"`
	// SearchDisabled removes the column from the default search fields.
	SearchDisabled bool `json:"search_disabled,omitempty"`
	// Hidden removes the column from the default visible set.
	Hidden bool  `json:"hidden,omitempty"`
	Width  int   `json:"width,omitempty"`
	Align  Align `json:"align,omitempty"`
}

// defaultSearchFields returns the keys of all searchable columns.
func defaultSearchFields(columns []ColumnDescriptor) []string {
	fields := make([]string, 0, len(columns))
	for _, column := range columns {
		if !column.SearchDisabled {
			fields = append(fields, column.Key)
		}
	}
	return fields
}

func findColumn(columns []ColumnDescriptor, key string) (ColumnDescriptor, bool) {
	for _, column := range columns {
		if column.Key == key {
			return column, true
		}
	}
	return ColumnDescriptor{}, false
}
