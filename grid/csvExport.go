package grid

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CSVMimeType  = "text/csv"
	CSVExtension = ".csv"
	FormatCSV    = "csv"
)

// Export is a serialized export artifact. Writing it anywhere is up to the
// caller.
type Export struct {
	Filename string
	MimeType string
	Payload  []byte
	Rows     int
}

// ExportCSV serializes rows in the order of columns. The first line holds the
// column titles, every further line one row, joined by "\n" without a
// trailing newline. String values are always quoted with inner quotes
// doubled, other values are written bare and missing values stay empty.
func ExportCSV(rows []Row, columns []ColumnDescriptor, baseName string) *Export {
	var sb strings.Builder

	titles := make([]string, len(columns))
	for i, column := range columns {
		titles[i] = csvTitle(column)
	}
	sb.WriteString(strings.Join(titles, ","))

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, column := range columns {
			cells[i] = csvCell(row[column.Key])
		}
		sb.WriteByte('\n')
		sb.WriteString(strings.Join(cells, ","))
	}

	return &Export{
		Filename: csvFilename(baseName),
		MimeType: CSVMimeType,
		Payload:  []byte(sb.String()),
		Rows:     len(rows),
	}
}

func csvFilename(baseName string) string {
	base := strings.TrimSpace(filepath.Base(baseName))
	base = strings.TrimSuffix(base, CSVExtension)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "export"
	}
	return base + CSVExtension
}

// csvTitle writes a title bare unless it would break the line apart.
func csvTitle(column ColumnDescriptor) string {
	title := column.Title
	if title == "" {
		title = column.Key
	}
	if strings.ContainsAny(title, ",\"\r\n") {
		return quoteCSV(title)
	}
	return title
}

func csvCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return quoteCSV(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case decimal.Decimal:
		return v.String()
	case json.Number:
		return v.String()
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	case uuid.UUID:
		return quoteCSV(v.String())
	case fmt.Stringer:
		return quoteCSV(v.String())
	}

	if kindOf(value) == kindNil {
		return ""
	}
	if kindOf(value) == kindNumber {
		s, _ := stringify(value)
		return s
	}

	// Nested objects and arrays are written as quoted JSON.
	b, err := json.Marshal(value)
	if err != nil {
		s, _ := stringify(value)
		return quoteCSV(s)
	}
	return quoteCSV(string(b))
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
