package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/schoolpayManager/model"

	"github.com/google/uuid"
	"github.com/siherrmann/queuer/helper"
)

// RecordDBHandlerFunctions defines the interface for Record database operations.
type RecordDBHandlerFunctions interface {
	CheckTableExistance() (bool, error)
	CreateTable() error
	DropTable() error
	InsertRecord(record *model.Record) (*model.Record, error)
	UpdateRecord(record *model.Record) (*model.Record, error)
	DeleteRecord(rid uuid.UUID) error
	SelectRecord(rid uuid.UUID) (*model.Record, error)
	SelectAllRecords(collection string) ([]*model.Record, error)
	CountRecords(collection string) (int, error)
}

// RecordDBHandler implements RecordDBHandlerFunctions and holds the database connection.
type RecordDBHandler struct {
	db *helper.Database
}

// NewRecordDBHandler creates a new instance of RecordDBHandler.
// If withTableDrop is true, it will drop the existing record table before creating a new one.
func NewRecordDBHandler(dbConnection *helper.Database, withTableDrop bool) (*RecordDBHandler, error) {
	if dbConnection == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	recordDbHandler := &RecordDBHandler{
		db: dbConnection,
	}

	if withTableDrop {
		err := recordDbHandler.DropTable()
		if err != nil {
			return nil, helper.NewError("drop table", err)
		}
	}

	err := recordDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	return recordDbHandler, nil
}

// CheckTableExistance checks if the 'record' table exists in the database.
func (r RecordDBHandler) CheckTableExistance() (bool, error) {
	recordExists, err := r.db.CheckTableExistance("record")
	if err != nil {
		return false, helper.NewError("record table", err)
	}
	return recordExists, nil
}

// CreateTable creates the 'record' table in the database.
// If the table already exists, it does not create it again.
func (r RecordDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
		CREATE TABLE IF NOT EXISTS record (
			id SERIAL PRIMARY KEY,
			rid UUID UNIQUE NOT NULL DEFAULT gen_random_uuid(),
			collection VARCHAR(100) NOT NULL,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_record_rid ON record(rid);
		CREATE INDEX IF NOT EXISTS idx_record_collection ON record(collection);
	`

	_, err := r.db.Instance.ExecContext(ctx, query)
	if err != nil {
		return helper.NewError("create record table", err)
	}

	r.db.Logger.Info("Checked/created table record")

	return nil
}

// DropTable drops the 'record' table from the database.
func (r RecordDBHandler) DropTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `DROP TABLE IF EXISTS record`
	_, err := r.db.Instance.ExecContext(ctx, query)
	if err != nil {
		return helper.NewError("drop record table", err)
	}

	r.db.Logger.Info("Dropped table record")

	return nil
}

// InsertRecord inserts a new record into the database.
func (r RecordDBHandler) InsertRecord(record *model.Record) (*model.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if record.Collection == "" {
		return nil, helper.NewError("insert record", fmt.Errorf("collection is required"))
	}

	newRecord := &model.Record{}
	query := `
		INSERT INTO record (
			collection,
			data
		) VALUES ($1, $2)
		RETURNING
			id,
			rid,
			collection,
			data,
			created_at,
			updated_at`

	err := r.db.Instance.QueryRowContext(ctx, query, record.Collection, record.Data).Scan(
		&newRecord.ID,
		&newRecord.RID,
		&newRecord.Collection,
		&newRecord.Data,
		&newRecord.CreatedAt,
		&newRecord.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("insert record", err)
	}

	return newRecord, nil
}

// UpdateRecord replaces the data of an existing record. The collection of a
// record never changes.
func (r RecordDBHandler) UpdateRecord(record *model.Record) (*model.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	updatedRecord := &model.Record{}
	query := `
		UPDATE record
		SET
			data = $1,
			updated_at = NOW()
		WHERE rid = $2
		RETURNING
			id,
			rid,
			collection,
			data,
			created_at,
			updated_at`

	err := r.db.Instance.QueryRowContext(ctx, query, record.Data, record.RID).Scan(
		&updatedRecord.ID,
		&updatedRecord.RID,
		&updatedRecord.Collection,
		&updatedRecord.Data,
		&updatedRecord.CreatedAt,
		&updatedRecord.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, helper.NewError("record not found", fmt.Errorf("no record with rid %s", record.RID))
		}
		return nil, helper.NewError("update record", err)
	}

	return updatedRecord, nil
}

// DeleteRecord deletes a record from the database by RID.
func (r RecordDBHandler) DeleteRecord(rid uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `DELETE FROM record WHERE rid = $1`
	result, err := r.db.Instance.ExecContext(ctx, query, rid)
	if err != nil {
		return helper.NewError("delete record", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return helper.NewError("get rows affected", err)
	}

	if rowsAffected == 0 {
		return helper.NewError("record not found", fmt.Errorf("no record with rid %s", rid))
	}

	return nil
}

// SelectRecord retrieves a record by RID from the database.
func (r RecordDBHandler) SelectRecord(rid uuid.UUID) (*model.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := &model.Record{}
	query := `
		SELECT
			id,
			rid,
			collection,
			data,
			created_at,
			updated_at
		FROM record
		WHERE rid = $1
	`

	err := r.db.Instance.QueryRowContext(ctx, query, rid).Scan(
		&record.ID,
		&record.RID,
		&record.Collection,
		&record.Data,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, helper.NewError("record not found", fmt.Errorf("no record with rid %s", rid))
		}
		return nil, helper.NewError("select record", err)
	}

	return record, nil
}

// SelectAllRecords retrieves every record of a collection in insertion order.
// The grid works on the whole collection in memory, so there is no paging here.
func (r RecordDBHandler) SelectAllRecords(collection string) ([]*model.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
		SELECT
			id,
			rid,
			collection,
			data,
			created_at,
			updated_at
		FROM record
		WHERE collection = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Instance.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, helper.NewError("select all records", err)
	}
	defer rows.Close()

	records := []*model.Record{}
	for rows.Next() {
		record := &model.Record{}
		var data []byte

		err := rows.Scan(
			&record.ID,
			&record.RID,
			&record.Collection,
			&data,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan record", err)
		}

		err = record.Data.Unmarshal(data)
		if err != nil {
			log.Printf("Warning: failed to unmarshal data for record %s: %v", record.RID, err)
			record.Data = model.DataMap{}
		}

		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows iteration", err)
	}

	return records, nil
}

// CountRecords returns the number of records in a collection.
func (r RecordDBHandler) CountRecords(collection string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var count int
	err := r.db.Instance.QueryRowContext(ctx, `SELECT COUNT(*) FROM record WHERE collection = $1`, collection).Scan(&count)
	if err != nil {
		return 0, helper.NewError("count records", err)
	}

	return count, nil
}
