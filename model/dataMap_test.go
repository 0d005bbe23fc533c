package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataMapUnmarshal(t *testing.T) {
	t.Run("Numbers stay exact", func(t *testing.T) {
		var d DataMap
		require.NoError(t, d.Unmarshal([]byte(`{"amount": 1250.75, "count": 9007199254740993}`)))
		assert.Equal(t, json.Number("1250.75"), d["amount"])
		assert.Equal(t, json.Number("9007199254740993"), d["count"])
	})

	t.Run("String, DataMap and JSON sources", func(t *testing.T) {
		var d DataMap
		require.NoError(t, d.Unmarshal(`{"name": "Ada"}`))
		assert.Equal(t, "Ada", d["name"])

		require.NoError(t, d.Unmarshal(DataMap{"name": "Grace"}))
		assert.Equal(t, "Grace", d["name"])

		var wrapper struct {
			Data DataMap `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"data": {"active": true}}`), &wrapper))
		assert.Equal(t, true, wrapper.Data["active"])
	})

	t.Run("Invalid input", func(t *testing.T) {
		var d DataMap
		assert.Error(t, d.Unmarshal(42))
		assert.Error(t, d.Unmarshal([]byte(`[1, 2]`)))
	})

	t.Run("Scan reads database values", func(t *testing.T) {
		var d DataMap
		require.NoError(t, d.Scan([]byte(`{"score": 75}`)))
		assert.Equal(t, json.Number("75"), d["score"])
	})
}

func TestDataMapMarshal(t *testing.T) {
	var empty DataMap
	data, err := empty.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	value, err := DataMap{"amount": json.Number("12.50")}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"amount":12.50}`, string(value.([]byte)))
}

func TestDataMapHelpers(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	d := DataMap{
		"name":               "Ada",
		"empty":              "",
		"nothing":            nil,
		"created":            created,
		"tags":               []interface{}{"a", 2},
		"gorilla.csrf.Token": "token",
	}

	t.Run("StripEmpty", func(t *testing.T) {
		assert.Equal(t, DataMap{"name": "Ada", "created": created, "tags": []interface{}{"a", 2}}, d.StripEmpty())
	})

	t.Run("Clone is shallow and independent", func(t *testing.T) {
		clone := d.Clone()
		clone["name"] = "Grace"
		assert.Equal(t, "Ada", d["name"])
	})

	t.Run("Getters", func(t *testing.T) {
		assert.Equal(t, "Ada", d.GetStringByKey("name"))
		assert.Equal(t, "", d.GetStringByKey("nothing"))
		assert.Equal(t, "2024-03-01", d.GetTimeByKey("created"))
		assert.Equal(t, "invalid time", d.GetTimeByKey("name"))
		assert.True(t, d.Has("nothing"))
		assert.False(t, d.Has("missing"))
	})

	t.Run("Readable", func(t *testing.T) {
		readable := d.ToDataMapReadable()
		assert.Equal(t, "2024-03-01", readable.GetStringByKey("created"))
		assert.Equal(t, "a, 2", readable.GetStringByKey("tags"))
		assert.Equal(t, "", readable.GetStringByKey("nothing"))
		assert.Equal(t, "", readable.GetStringByKey("missing"))
	})
}

func TestRecordToRow(t *testing.T) {
	rid := uuid.New()
	created := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	record := &Record{
		ID:         1,
		RID:        rid,
		Collection: "students",
		Data:       DataMap{"first_name": "Ada", "rid": "spoofed"},
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	row := record.ToRow()
	assert.Equal(t, rid.String(), row["rid"], "stored data never overrides the rid")
	assert.Equal(t, "Ada", row["first_name"])
	assert.Equal(t, created, row["created_at"])
	assert.Equal(t, "spoofed", record.Data["rid"], "the record itself is not modified")

	rows := RecordsToRows([]*Record{record, record})
	assert.Len(t, rows, 2)
	assert.Empty(t, RecordsToRows(nil))
}
