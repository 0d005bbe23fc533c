package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/siherrmann/schoolpayManager/grid"
	"github.com/siherrmann/schoolpayManager/model"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	vm "github.com/siherrmann/validator/model"
)

// RowKeyField is the key field of every collection, see model.Record.ToRow.
const RowKeyField = "rid"

// Collection describes one list page of the dashboard.
type Collection struct {
	Name         string                  `json:"name"`
	Title        string                  `json:"title"`
	Columns      []grid.ColumnDescriptor `json:"columns"`
	DefaultSort  grid.SortState          `json:"default_sort"`
	Selection    grid.SelectionMode      `json:"selection"`
	ExportName   string                  `json:"export_name"`
	SearchFields []string                `json:"search_fields,omitempty"`
}

// Options returns the engine options of the collection.
func (c Collection) Options() grid.Options {
	return grid.Options{
		Columns:       c.Columns,
		RowKeyField:   RowKeyField,
		SearchFields:  c.SearchFields,
		Sort:          c.DefaultSort,
		SelectionMode: c.Selection,
	}
}

// Column finds the descriptor of key.
func (c Collection) Column(key string) (grid.ColumnDescriptor, bool) {
	for _, column := range c.Columns {
		if column.Key == key {
			return column, true
		}
	}
	return grid.ColumnDescriptor{}, false
}

// managedFields are set by the record store, never by a form.
var managedFields = map[string]bool{RowKeyField: true, "created_at": true, "updated_at": true}

// Validations returns the validations of the editable columns. Number and
// boolean columns are converted from form text, all other columns are text.
func (c Collection) Validations() []vm.Validation {
	validations := []vm.Validation{}
	for _, column := range c.Columns {
		if managedFields[column.Key] {
			continue
		}
		validation := vm.Validation{Key: column.Key, Type: vm.String, Requirement: "-"}
		switch kindOf(column) {
		case numberColumn:
			validation.Type = vm.Float
		case booleanColumn:
			validation.Type = vm.Bool
		}
		validations = append(validations, validation)
	}
	return validations
}

type columnKind int

const (
	textColumn columnKind = iota
	numberColumn
	booleanColumn
)

func kindOf(column grid.ColumnDescriptor) columnKind {
	switch column.FilterType {
	case grid.FilterNumber, grid.FilterNumberRange:
		return numberColumn
	case grid.FilterBoolean:
		return booleanColumn
	default:
		return textColumn
	}
}

// Typed converts the remaining text values of number and boolean columns and
// drops the fields managed by the record store. Numbers keep their exact
// digits as json.Number, checkboxes send "on".
func (c Collection) Typed(data model.DataMap) (model.DataMap, error) {
	typed := data.Clone()
	for key := range managedFields {
		delete(typed, key)
	}
	for _, column := range c.Columns {
		text, ok := typed[column.Key].(string)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)

		switch kindOf(column) {
		case numberColumn:
			if _, err := decimal.NewFromString(text); err != nil {
				return nil, fmt.Errorf("%s must be a number, got %q", column.Key, text)
			}
			typed[column.Key] = json.Number(text)
		case booleanColumn:
			if strings.EqualFold(text, "on") {
				typed[column.Key] = true
				continue
			}
			b, err := strconv.ParseBool(text)
			if err != nil {
				return nil, fmt.Errorf("%s must be true or false, got %q", column.Key, text)
			}
			typed[column.Key] = b
		}
	}
	return typed, nil
}

var statusOptions = []grid.FilterOption{
	{Label: "Pending", Value: "pending"},
	{Label: "Completed", Value: "completed"},
	{Label: "Failed", Value: "failed"},
	{Label: "Refunded", Value: "refunded"},
}

func ridColumn() grid.ColumnDescriptor {
	return grid.ColumnDescriptor{Key: "rid", Title: "ID", Hidden: true, Width: 280}
}

func createdAtColumn() grid.ColumnDescriptor {
	return grid.ColumnDescriptor{Key: "created_at", Title: "Created", Sortable: true, Filterable: true, FilterType: grid.FilterDateRange, SearchDisabled: true}
}

var collections = map[string]Collection{
	"students": {
		Name:  "students",
		Title: "Students",
		Columns: []grid.ColumnDescriptor{
			ridColumn(),
			{Key: "first_name", Title: "First name", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "last_name", Title: "Last name", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "email", Title: "Email", Sortable: true},
			{Key: "class", Title: "Class", Sortable: true, Filterable: true, FilterType: grid.FilterSelect},
			{Key: "organization", Title: "School", Sortable: true, Filterable: true, FilterType: grid.FilterSelect},
			{Key: "balance", Title: "Balance", Sortable: true, Filterable: true, FilterType: grid.FilterNumberRange, SearchDisabled: true, Align: grid.AlignRight},
			{Key: "active", Title: "Active", Filterable: true, FilterType: grid.FilterBoolean, SearchDisabled: true, Align: grid.AlignCenter},
			createdAtColumn(),
		},
		DefaultSort: grid.SortState{Key: "last_name", Direction: grid.DirectionAsc},
		Selection:   grid.SelectionCheckbox,
		ExportName:  "students",
	},
	"admins": {
		Name:  "admins",
		Title: "Admins",
		Columns: []grid.ColumnDescriptor{
			ridColumn(),
			{Key: "name", Title: "Name", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "email", Title: "Email", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "role", Title: "Role", Sortable: true, Filterable: true, FilterType: grid.FilterSelect, FilterOptions: []grid.FilterOption{
				{Label: "Owner", Value: "owner"},
				{Label: "Accountant", Value: "accountant"},
				{Label: "Viewer", Value: "viewer"},
			}},
			{Key: "last_login", Title: "Last login", Sortable: true, Filterable: true, FilterType: grid.FilterDate, SearchDisabled: true},
			{Key: "active", Title: "Active", Filterable: true, FilterType: grid.FilterBoolean, SearchDisabled: true, Align: grid.AlignCenter},
		},
		DefaultSort: grid.SortState{Key: "name", Direction: grid.DirectionAsc},
		Selection:   grid.SelectionCheckbox,
		ExportName:  "admins",
	},
	"organizations": {
		Name:  "organizations",
		Title: "Organizations",
		Columns: []grid.ColumnDescriptor{
			ridColumn(),
			{Key: "name", Title: "Name", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "city", Title: "City", Sortable: true, Filterable: true, FilterType: grid.FilterSelect},
			{Key: "contact_email", Title: "Contact"},
			{Key: "student_count", Title: "Students", Sortable: true, Filterable: true, FilterType: grid.FilterNumberRange, SearchDisabled: true, Align: grid.AlignRight},
			createdAtColumn(),
		},
		DefaultSort: grid.SortState{Key: "name", Direction: grid.DirectionAsc},
		Selection:   grid.SelectionRadio,
		ExportName:  "organizations",
	},
	"transactions": {
		Name:  "transactions",
		Title: "Transactions",
		Columns: []grid.ColumnDescriptor{
			ridColumn(),
			{Key: "reference", Title: "Reference", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "student", Title: "Student", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "amount", Title: "Amount", Sortable: true, Filterable: true, FilterType: grid.FilterNumberRange, SearchDisabled: true, Align: grid.AlignRight},
			{Key: "currency", Title: "Currency", Filterable: true, FilterType: grid.FilterSelect, SearchDisabled: true},
			{Key: "status", Title: "Status", Sortable: true, Filterable: true, FilterType: grid.FilterSelect, FilterOptions: statusOptions},
			{Key: "method", Title: "Method", Filterable: true, FilterType: grid.FilterSelect},
			{Key: "paid_at", Title: "Paid at", Sortable: true, Filterable: true, FilterType: grid.FilterDateRange, SearchDisabled: true},
		},
		DefaultSort: grid.SortState{Key: "paid_at", Direction: grid.DirectionDesc},
		Selection:   grid.SelectionCheckbox,
		ExportName:  "transactions",
	},
	"settlements": {
		Name:  "settlements",
		Title: "Settlements",
		Columns: []grid.ColumnDescriptor{
			ridColumn(),
			{Key: "organization", Title: "School", Sortable: true, Filterable: true, FilterType: grid.FilterSelect},
			{Key: "amount", Title: "Amount", Sortable: true, Filterable: true, FilterType: grid.FilterNumber, SearchDisabled: true, Align: grid.AlignRight},
			{Key: "fee", Title: "Fee", Sortable: true, FilterType: grid.FilterNumber, SearchDisabled: true, Align: grid.AlignRight},
			{Key: "status", Title: "Status", Sortable: true, Filterable: true, FilterType: grid.FilterSelect, FilterOptions: statusOptions},
			{Key: "settled", Title: "Settled", Filterable: true, FilterType: grid.FilterBoolean, SearchDisabled: true},
			{Key: "settled_at", Title: "Settled at", Sortable: true, Filterable: true, FilterType: grid.FilterDate, SearchDisabled: true},
		},
		DefaultSort: grid.SortState{Key: "settled_at", Direction: grid.DirectionDesc},
		Selection:   grid.SelectionCheckbox,
		ExportName:  "settlements",
	},
	"courses": {
		Name:  "courses",
		Title: "Courses",
		Columns: []grid.ColumnDescriptor{
			ridColumn(),
			{Key: "code", Title: "Code", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "title", Title: "Title", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "teacher", Title: "Teacher", Sortable: true, Filterable: true, FilterType: grid.FilterSelect},
			{Key: "fee", Title: "Fee", Sortable: true, Filterable: true, FilterType: grid.FilterNumberRange, SearchDisabled: true, Align: grid.AlignRight},
			{Key: "starts_on", Title: "Starts", Sortable: true, Filterable: true, FilterType: grid.FilterDateRange, SearchDisabled: true},
		},
		DefaultSort: grid.SortState{Key: "code", Direction: grid.DirectionAsc},
		Selection:   grid.SelectionCheckbox,
		ExportName:  "courses",
	},
	"exams": {
		Name:  "exams",
		Title: "Exams",
		Columns: []grid.ColumnDescriptor{
			ridColumn(),
			{Key: "course", Title: "Course", Sortable: true, Filterable: true, FilterType: grid.FilterSelect},
			{Key: "student", Title: "Student", Sortable: true, Filterable: true, FilterType: grid.FilterText},
			{Key: "score", Title: "Score", Sortable: true, Filterable: true, FilterType: grid.FilterNumberRange, SearchDisabled: true, Align: grid.AlignRight},
			{Key: "passed", Title: "Passed", Filterable: true, FilterType: grid.FilterBoolean, SearchDisabled: true, Align: grid.AlignCenter},
			{Key: "held_on", Title: "Held on", Sortable: true, Filterable: true, FilterType: grid.FilterDate, SearchDisabled: true},
		},
		DefaultSort: grid.SortState{Key: "held_on", Direction: grid.DirectionDesc},
		Selection:   grid.SelectionCheckbox,
		ExportName:  "exam-results",
	},
}

// Collections returns all collections ordered by name.
func Collections() []Collection {
	result := make([]Collection, 0, len(collections))
	for _, collection := range collections {
		result = append(result, collection)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Lookup returns the collection with the given name, ignoring case.
func Lookup(name string) (Collection, error) {
	collection, ok := collections[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Collection{}, fmt.Errorf("unknown collection %q", name)
	}
	return collection, nil
}
