package grid

import "strings"

// Search keeps the rows where any of fields contains query, ignoring case.
// An empty or whitespace-only query returns rows unchanged, any other query
// is matched as is. Nil field values never match.
func Search(rows []Row, query string, fields []string) []Row {
	if strings.TrimSpace(query) == "" {
		return rows
	}
	needle := strings.ToLower(query)

	result := make([]Row, 0, len(rows))
	for _, row := range rows {
		if rowContains(row, needle, fields) {
			result = append(result, row)
		}
	}
	return result
}

func rowContains(row Row, needle string, fields []string) bool {
	for _, field := range fields {
		s, ok := stringify(row[field])
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
