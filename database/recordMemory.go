package database

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/queuer/helper"
	"github.com/siherrmann/schoolpayManager/model"
)

// RecordMemoryHandler is an in-memory RecordDBHandlerFunctions for local
// development and tests. It is safe for concurrent use.
type RecordMemoryHandler struct {
	mu      sync.RWMutex
	lastID  int
	records map[uuid.UUID]*model.Record
	exists  bool
}

func NewRecordMemoryHandler() *RecordMemoryHandler {
	return &RecordMemoryHandler{
		records: map[uuid.UUID]*model.Record{},
		exists:  true,
	}
}

func (r *RecordMemoryHandler) CheckTableExistance() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exists, nil
}

func (r *RecordMemoryHandler) CreateTable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exists = true
	return nil
}

func (r *RecordMemoryHandler) DropTable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = map[uuid.UUID]*model.Record{}
	r.exists = false
	return nil
}

func (r *RecordMemoryHandler) InsertRecord(record *model.Record) (*model.Record, error) {
	if record.Collection == "" {
		return nil, helper.NewError("insert record", fmt.Errorf("collection is required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	now := time.Now().UTC()
	stored := &model.Record{
		ID:         r.lastID,
		RID:        uuid.New(),
		Collection: record.Collection,
		Data:       record.Data.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.records[stored.RID] = stored
	return copyRecord(stored), nil
}

func (r *RecordMemoryHandler) UpdateRecord(record *model.Record) (*model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[record.RID]
	if !ok {
		return nil, helper.NewError("record not found", fmt.Errorf("no record with rid %s", record.RID))
	}
	stored.Data = record.Data.Clone()
	stored.UpdatedAt = time.Now().UTC()
	return copyRecord(stored), nil
}

func (r *RecordMemoryHandler) DeleteRecord(rid uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rid]; !ok {
		return helper.NewError("record not found", fmt.Errorf("no record with rid %s", rid))
	}
	delete(r.records, rid)
	return nil
}

func (r *RecordMemoryHandler) SelectRecord(rid uuid.UUID) (*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.records[rid]
	if !ok {
		return nil, helper.NewError("record not found", fmt.Errorf("no record with rid %s", rid))
	}
	return copyRecord(stored), nil
}

// SelectAllRecords returns the records of collection in insertion order.
func (r *RecordMemoryHandler) SelectAllRecords(collection string) ([]*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []*model.Record{}
	for _, stored := range r.records {
		if stored.Collection == collection {
			records = append(records, copyRecord(stored))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (r *RecordMemoryHandler) CountRecords(collection string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, stored := range r.records {
		if stored.Collection == collection {
			count++
		}
	}
	return count, nil
}

func copyRecord(record *model.Record) *model.Record {
	copied := *record
	copied.Data = record.Data.Clone()
	return &copied
}
