package model

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DataMap is one record as the grid sees it: field name to value.
type DataMap map[string]interface{}

// Clone returns a shallow copy.
func (d DataMap) Clone() DataMap {
	clone := make(DataMap, len(d))
	for key, value := range d {
		clone[key] = value
	}
	return clone
}

// StripEmpty drops zero-ish values and the csrf token a form post carries.
func (d DataMap) StripEmpty() DataMap {
	strippedMap := DataMap{}
	for key, value := range d {
		if value == nil || key == "gorilla.csrf.Token" {
			continue
		}
		if s := fmt.Sprintf("%v", value); s != "" {
			strippedMap[key] = value
		}
	}
	return strippedMap
}

func (d *DataMap) GetStringByKey(key string) string {
	if value, ok := (*d)[key]; ok && value != nil {
		return fmt.Sprintf("%v", value)
	}
	return ""
}

func (d *DataMap) GetTimeByKey(key string) string {
	if value, ok := (*d)[key]; ok {
		if date, ok := value.(time.Time); ok {
			return date.Format("2006-01-02")
		}
		return "invalid time"
	}
	return "invalid time"
}

func (d *DataMap) Has(key string) bool {
	if _, ok := (*d)[key]; ok {
		return true
	}
	return false
}

func (c DataMap) Value() (driver.Value, error) {
	return c.Marshal()
}

func (c *DataMap) Scan(value interface{}) error {
	return c.Unmarshal(value)
}

func (r DataMap) Marshal() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

// Unmarshal keeps numbers as json.Number so amounts are not rounded
// through float64.
func (r *DataMap) Unmarshal(value interface{}) error {
	switch v := value.(type) {
	case DataMap:
		*r = v
		return nil
	case []byte:
		return r.decode(v)
	case string:
		return r.decode([]byte(v))
	}
	return errors.New("type assertion to []byte failed")
}

func (r *DataMap) UnmarshalJSON(data []byte) error {
	return r.decode(data)
}

func (r *DataMap) decode(data []byte) error {
	m := map[string]interface{}{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&m); err != nil {
		return err
	}
	*r = DataMap(m)
	return nil
}

// ToDataMapReadable renders every value as display text.
func (r *DataMap) ToDataMapReadable() *DataMapReadable {
	dataMapReadable := DataMapReadable{}
	for k, v := range *r {
		if v == nil {
			dataMapReadable[k] = ""
		} else if date, ok := v.(time.Time); ok {
			dataMapReadable[k] = date.Format("2006-01-02")
		} else if array, ok := v.([]interface{}); ok {
			as := []string{}
			for _, d := range array {
				as = append(as, fmt.Sprintf("%v", d))
			}
			dataMapReadable[k] = strings.Join(as, ", ")
		} else {
			dataMapReadable[k] = fmt.Sprintf("%v", v)
		}
	}
	return &dataMapReadable
}

type DataMapReadable map[string]string

func (d *DataMapReadable) GetStringByKey(key string) string {
	if value, ok := (*d)[key]; ok {
		return value
	}
	return ""
}
