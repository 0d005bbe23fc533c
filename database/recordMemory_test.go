package database

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/schoolpayManager/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMemoryHandler(t *testing.T) {
	var _ RecordDBHandlerFunctions = &RecordMemoryHandler{}
	var _ RecordDBHandlerFunctions = &RecordDBHandler{}

	t.Run("Insert, select and count", func(t *testing.T) {
		store := NewRecordMemoryHandler()
		first, err := store.InsertRecord(&model.Record{Collection: "students", Data: model.DataMap{"first_name": "Ada"}})
		require.NoError(t, err)
		_, err = store.InsertRecord(&model.Record{Collection: "students", Data: model.DataMap{"first_name": "Grace"}})
		require.NoError(t, err)
		_, err = store.InsertRecord(&model.Record{Collection: "admins", Data: model.DataMap{"name": "Root"}})
		require.NoError(t, err)

		record, err := store.SelectRecord(first.RID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", record.Data["first_name"])

		records, err := store.SelectAllRecords("students")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Ada", records[0].Data["first_name"])
		assert.Equal(t, "Grace", records[1].Data["first_name"])

		count, err := store.CountRecords("admins")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Returned records do not alias the store", func(t *testing.T) {
		store := NewRecordMemoryHandler()
		inserted, err := store.InsertRecord(&model.Record{Collection: "students", Data: model.DataMap{"first_name": "Ada"}})
		require.NoError(t, err)

		inserted.Data["first_name"] = "changed"
		record, err := store.SelectRecord(inserted.RID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", record.Data["first_name"])
	})

	t.Run("Update and delete", func(t *testing.T) {
		store := NewRecordMemoryHandler()
		inserted, err := store.InsertRecord(&model.Record{Collection: "exams", Data: model.DataMap{"score": 50}})
		require.NoError(t, err)

		inserted.Data = model.DataMap{"score": 75}
		updated, err := store.UpdateRecord(inserted)
		require.NoError(t, err)
		assert.Equal(t, 75, updated.Data["score"])

		require.NoError(t, store.DeleteRecord(inserted.RID))
		assert.Error(t, store.DeleteRecord(inserted.RID))
		_, err = store.UpdateRecord(inserted)
		assert.Error(t, err)
		_, err = store.SelectRecord(uuid.New())
		assert.Error(t, err)
	})

	t.Run("Insert without collection fails", func(t *testing.T) {
		store := NewRecordMemoryHandler()
		_, err := store.InsertRecord(&model.Record{})
		assert.Error(t, err)
	})

	t.Run("Drop table removes every record", func(t *testing.T) {
		store := NewRecordMemoryHandler()
		_, err := store.InsertRecord(&model.Record{Collection: "courses"})
		require.NoError(t, err)

		require.NoError(t, store.DropTable())
		exists, err := store.CheckTableExistance()
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, store.CreateTable())
		count, err := store.CountRecords("courses")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("Concurrent inserts get unique ids", func(t *testing.T) {
		store := NewRecordMemoryHandler()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.InsertRecord(&model.Record{Collection: "transactions", Data: model.DataMap{"n": i}})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		records, err := store.SelectAllRecords("transactions")
		require.NoError(t, err)
		require.Len(t, records, 50)
		for i := 1; i < len(records); i++ {
			assert.Less(t, records[i-1].ID, records[i].ID)
		}
	})
}
