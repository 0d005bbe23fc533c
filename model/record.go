package model

import (
	"time"

	"github.com/google/uuid"
)

// Record is one entry of a dashboard collection (a student, a transaction, ...).
type Record struct {
	ID         int       `json:"id"`
	RID        uuid.UUID `json:"rid"`
	Collection string    `json:"collection"`
	Data       DataMap   `json:"data"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToRow flattens the record into the row the grid works on. Stored data
// never overrides the rid and timestamps.
func (r *Record) ToRow() DataMap {
	row := make(DataMap, len(r.Data)+3)
	for key, value := range r.Data {
		row[key] = value
	}
	row["rid"] = r.RID.String()
	row["created_at"] = r.CreatedAt
	row["updated_at"] = r.UpdatedAt
	return row
}

// RecordsToRows converts records in order.
func RecordsToRows(records []*Record) []DataMap {
	rows := make([]DataMap, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.ToRow())
	}
	return rows
}
