package grid

import (
	"reflect"
	"strings"
	"time"
)

// ClauseSpec is the untyped {key, type, value} form of a filter clause, as it
// arrives from a request or is reported back to one.
type ClauseSpec struct {
	Key   string     `json:"key"`
	Type  FilterType `json:"type"`
	Value any        `json:"value"`
}

// Clause builds the typed clause for the spec.
func (s ClauseSpec) Clause() FilterClause {
	return NewFilterClause(s.Key, s.Type, s.Value)
}

// FilterClause is one active column filter. The set of variants is closed:
// TextFilter, SelectFilter, NumberFilter, NumberRangeFilter, DateFilter,
// DateRangeFilter, BooleanFilter and UnknownFilter.
type FilterClause interface {
	// Spec returns the clause in its untyped form.
	Spec() ClauseSpec
	// Unset reports whether the clause carries no value and is skipped.
	Unset() bool
	filterClause()
}

// TextFilter matches a case-insensitive substring of the field's text.
type TextFilter struct {
	Key   string
	Value string
	raw   any
}

// SelectFilter matches fields strictly equal to Value.
type SelectFilter struct {
	Key   string
	Value any
}

// NumberFilter matches fields numerically equal to Value.
type NumberFilter struct {
	Key   string
	Value any
}

// NumberRangeFilter matches Min <= field <= Max. A nil bound is open.
type NumberRangeFilter struct {
	Key       string
	Min       *float64
	Max       *float64
	Malformed bool
	raw       any
}

// DateFilter matches fields on the same calendar day as Value.
type DateFilter struct {
	Key   string
	Value any
}

// DateRangeFilter matches fields whose calendar day lies within
// [Start, End]. A nil bound is open.
type DateRangeFilter struct {
	Key       string
	Start     any
	End       any
	Malformed bool
	raw       any
}

// BooleanFilter matches fields whose truthiness equals Value's.
type BooleanFilter struct {
	Key   string
	Value any
}

// UnknownFilter carries a filter type this engine does not know. It lets
// every row through.
type UnknownFilter struct {
	Key   string
	Type  FilterType
	Value any
}

func (TextFilter) filterClause()        {}
func (SelectFilter) filterClause()      {}
func (NumberFilter) filterClause()      {}
func (NumberRangeFilter) filterClause() {}
func (DateFilter) filterClause()        {}
func (DateRangeFilter) filterClause()   {}
func (BooleanFilter) filterClause()     {}
func (UnknownFilter) filterClause()     {}

func (f TextFilter) Spec() ClauseSpec {
	if f.raw == nil {
		return ClauseSpec{Key: f.Key, Type: FilterText, Value: f.Value}
	}
	return ClauseSpec{Key: f.Key, Type: FilterText, Value: f.raw}
}
func (f SelectFilter) Spec() ClauseSpec {
	return ClauseSpec{Key: f.Key, Type: FilterSelect, Value: f.Value}
}
func (f NumberFilter) Spec() ClauseSpec {
	return ClauseSpec{Key: f.Key, Type: FilterNumber, Value: f.Value}
}
func (f NumberRangeFilter) Spec() ClauseSpec {
	if f.raw == nil && !f.Malformed {
		bounds := []any{nil, nil}
		if f.Min != nil {
			bounds[0] = *f.Min
		}
		if f.Max != nil {
			bounds[1] = *f.Max
		}
		return ClauseSpec{Key: f.Key, Type: FilterNumberRange, Value: bounds}
	}
	return ClauseSpec{Key: f.Key, Type: FilterNumberRange, Value: f.raw}
}
func (f DateFilter) Spec() ClauseSpec {
	return ClauseSpec{Key: f.Key, Type: FilterDate, Value: f.Value}
}
func (f DateRangeFilter) Spec() ClauseSpec {
	if f.raw == nil && !f.Malformed {
		return ClauseSpec{Key: f.Key, Type: FilterDateRange, Value: []any{f.Start, f.End}}
	}
	return ClauseSpec{Key: f.Key, Type: FilterDateRange, Value: f.raw}
}
func (f BooleanFilter) Spec() ClauseSpec {
	return ClauseSpec{Key: f.Key, Type: FilterBoolean, Value: f.Value}
}
func (f UnknownFilter) Spec() ClauseSpec {
	return ClauseSpec{Key: f.Key, Type: f.Type, Value: f.Value}
}

func (f TextFilter) Unset() bool   { return f.Value == "" }
func (f SelectFilter) Unset() bool { return isUnset(f.Value) }
func (f NumberFilter) Unset() bool { return isUnset(f.Value) }
func (f NumberRangeFilter) Unset() bool {
	return !f.Malformed && f.Min == nil && f.Max == nil
}
func (f DateFilter) Unset() bool { return isUnset(f.Value) }
func (f DateRangeFilter) Unset() bool {
	return !f.Malformed && isUnset(f.Start) && isUnset(f.End)
}
func (f BooleanFilter) Unset() bool { return isUnset(f.Value) }
func (f UnknownFilter) Unset() bool { return isUnset(f.Value) }

// NewFilterClause builds the typed clause for a {key, type, value} triple.
// Range values that cannot be read as a pair produce a malformed clause,
// which filtering ignores.
func NewFilterClause(key string, filterType FilterType, value any) FilterClause {
	switch filterType {
	case FilterText:
		text, _ := stringify(value)
		return TextFilter{Key: key, Value: text, raw: value}
	case FilterSelect:
		return SelectFilter{Key: key, Value: value}
	case FilterNumber:
		return NumberFilter{Key: key, Value: value}
	case FilterNumberRange:
		return newNumberRange(key, value)
	case FilterDate:
		return DateFilter{Key: key, Value: value}
	case FilterDateRange:
		return newDateRange(key, value)
	case FilterBoolean:
		return BooleanFilter{Key: key, Value: value}
	default:
		return UnknownFilter{Key: key, Type: filterType, Value: value}
	}
}

func newNumberRange(key string, value any) NumberRangeFilter {
	f := NumberRangeFilter{Key: key, raw: value}
	if isUnset(value) {
		return f
	}
	low, high, ok := pairOf(value)
	if !ok {
		f.Malformed = true
		return f
	}
	for i, bound := range []any{low, high} {
		if isUnset(bound) {
			continue
		}
		n, ok := toNumber(bound)
		if !ok {
			f.Malformed = true
			return f
		}
		if i == 0 {
			f.Min = &n
		} else {
			f.Max = &n
		}
	}
	return f
}

func newDateRange(key string, value any) DateRangeFilter {
	f := DateRangeFilter{Key: key, raw: value}
	if isUnset(value) {
		return f
	}
	if s, ok := value.(string); ok {
		start, end, found := strings.Cut(s, " to ")
		if !found {
			f.Malformed = true
			return f
		}
		f.Start, f.End = strings.TrimSpace(start), strings.TrimSpace(end)
		return f
	}
	start, end, ok := pairOf(value)
	if !ok {
		f.Malformed = true
		return f
	}
	f.Start, f.End = start, end
	return f
}

// pairOf destructures a two element slice or array.
func pairOf(value any) (any, any, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, nil, false
	}
	if rv.Len() != 2 {
		return nil, nil, false
	}
	return rv.Index(0).Interface(), rv.Index(1).Interface(), true
}

// malformed reports clauses whose value had the wrong shape for their type.
func malformed(clause FilterClause) bool {
	switch c := clause.(type) {
	case NumberRangeFilter:
		return c.Malformed
	case DateRangeFilter:
		return c.Malformed
	}
	return false
}

// ApplyFilters keeps the rows matching every clause. Unset and malformed
// clauses are skipped; unknown filter types match everything. Dates without
// a zone are read in loc, and calendar days are taken in loc.
func ApplyFilters(rows []Row, clauses []FilterClause, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}

	predicates := make([]func(Row) bool, 0, len(clauses))
	for _, clause := range clauses {
		if clause == nil || clause.Unset() || malformed(clause) {
			continue
		}
		if predicate := predicateFor(clause, loc); predicate != nil {
			predicates = append(predicates, predicate)
		}
	}
	if len(predicates) == 0 {
		return rows
	}

	result := make([]Row, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, predicates) {
			result = append(result, row)
		}
	}
	return result
}

func matchesAll(row Row, predicates []func(Row) bool) bool {
	for _, predicate := range predicates {
		if !predicate(row) {
			return false
		}
	}
	return true
}

// predicateFor returns the row predicate of a clause, or nil when the clause
// lets every row through.
func predicateFor(clause FilterClause, loc *time.Location) func(Row) bool {
	switch c := clause.(type) {
	case TextFilter:
		needle := strings.ToLower(c.Value)
		return func(row Row) bool {
			s, ok := stringify(row[c.Key])
			return ok && strings.Contains(strings.ToLower(s), needle)
		}

	case SelectFilter:
		return func(row Row) bool {
			return strictEqual(row[c.Key], c.Value)
		}

	case NumberFilter:
		want, ok := toNumber(c.Value)
		if !ok {
			return func(Row) bool { return false }
		}
		return func(row Row) bool {
			got, ok := toNumber(row[c.Key])
			return ok && got == want
		}

	case NumberRangeFilter:
		return func(row Row) bool {
			got, ok := toNumber(row[c.Key])
			if !ok {
				return false
			}
			if c.Min != nil && got < *c.Min {
				return false
			}
			if c.Max != nil && got > *c.Max {
				return false
			}
			return true
		}

	case DateFilter:
		want, ok := toDate(c.Value, loc)
		if !ok {
			return func(Row) bool { return false }
		}
		day := dayOf(want, loc)
		return func(row Row) bool {
			got, ok := toDate(row[c.Key], loc)
			return ok && dayOf(got, loc).Equal(day)
		}

	case DateRangeFilter:
		var start, end *time.Time
		if !isUnset(c.Start) {
			t, ok := toDate(c.Start, loc)
			if !ok {
				return nil
			}
			day := dayOf(t, loc)
			start = &day
		}
		if !isUnset(c.End) {
			t, ok := toDate(c.End, loc)
			if !ok {
				return nil
			}
			day := dayOf(t, loc)
			end = &day
		}
		return func(row Row) bool {
			got, ok := toDate(row[c.Key], loc)
			if !ok {
				return false
			}
			day := dayOf(got, loc)
			if start != nil && day.Before(*start) {
				return false
			}
			if end != nil && day.After(*end) {
				return false
			}
			return true
		}

	case BooleanFilter:
		want := truthy(c.Value)
		return func(row Row) bool {
			return truthy(row[c.Key]) == want
		}

	case UnknownFilter:
		return nil

	default:
		return nil
	}
}
