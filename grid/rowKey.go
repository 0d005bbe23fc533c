package grid

import (
	"strconv"
	"strings"
)

// RowKeyFunc derives the key of a row. Returning false means "no key".
type RowKeyFunc func(row Row) (string, bool)

// RowKeyResolver derives the identity of a row. The key field wins over the
// key function; if neither yields a non-empty key the row's position in the
// processed ordering is used.
//
// Positional keys change whenever search, filters or sort move the row, so
// selections made with them do not survive those changes. Collections that
// need stable selection must declare a key field or a key function.
type RowKeyResolver struct {
	Field string
	Func  RowKeyFunc
}

// Key returns the key of row sitting at index in the processed ordering and
// whether it came from the positional fallback.
func (r RowKeyResolver) Key(row Row, index int) (key string, positional bool) {
	if r.Field != "" {
		if value, ok := row[r.Field]; ok {
			if s, ok := stringify(value); ok && strings.TrimSpace(s) != "" {
				return s, false
			}
		}
	}
	if r.Func != nil {
		if s, ok := r.Func(row); ok && s != "" {
			return s, false
		}
	}
	return strconv.Itoa(index), true
}

// Keys resolves the keys of rows in order.
func (r RowKeyResolver) Keys(rows []Row) []string {
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i], _ = r.Key(row, i)
	}
	return keys
}
