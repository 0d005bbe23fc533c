package grid

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when a string has to be read as a date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// isUnset reports whether a clause value counts as "no filter".
func isUnset(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// stringify renders a field value the way the search and text filter see it.
// The second return is false for nil, which never matches.
func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case time.Time:
		return v.Format(time.RFC3339), true
	case decimal.Decimal:
		return v.String(), true
	case json.Number:
		return v.String(), true
	case fmt.Stringer:
		return v.String(), true
	case []byte:
		return string(v), true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return formatNumber(rv.Float()), true
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false
		}
		return stringify(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, _ := stringify(rv.Index(i).Interface())
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	case reflect.Map, reflect.Struct:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value), true
		}
		return string(b), true
	}
	return fmt.Sprintf("%v", value), true
}

// formatNumber prints integral floats without a fraction and everything else
// in the shortest round-trip form.
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// numberOf returns the numeric value of Go number types only, no coercion.
func numberOf(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// toNumber coerces a value to a float64. Strings are parsed after trimming,
// booleans map to 0/1 and dates to unix milliseconds. Anything else, nil and
// blank strings included, is not a number.
func toNumber(value any) (float64, bool) {
	if f, ok := numberOf(value); ok {
		return f, !math.IsNaN(f)
	}
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case time.Time:
		return float64(v.UnixMilli()), true
	}
	return 0, false
}

// toDate coerces a value to a point in time. Strings without a zone are read
// in loc, numbers are unix milliseconds.
func toDate(value any, loc *time.Location) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if f, ok := numberOf(value); ok && !math.IsNaN(f) {
		return time.UnixMilli(int64(f)).In(loc), true
	}
	return time.Time{}, false
}

// dayOf truncates t to the calendar day it falls on in loc.
func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// truthy follows the usual boolean conversion of loosely typed values:
// nil, false, zero, NaN and the empty string are false, everything else true.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case decimal.Decimal:
		return !v.IsZero()
	}
	if f, ok := numberOf(value); ok {
		return f != 0 && !math.IsNaN(f)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// strictEqual compares without cross-kind coercion: numbers compare by value
// regardless of their Go type, everything else must share kind and value.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, okA := numberOf(a)
	fb, okB := numberOf(b)
	if okA || okB {
		return okA && okB && fa == fb
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	case time.Time:
		vb, ok := b.(time.Time)
		return ok && va.Equal(vb)
	}
	return reflect.DeepEqual(a, b)
}

type valueKind int

const (
	kindBool valueKind = iota
	kindNumber
	kindTime
	kindString
	kindOther
	kindNil
)

func kindOf(value any) valueKind {
	switch value.(type) {
	case nil:
		return kindNil
	case bool:
		return kindBool
	case string:
		return kindString
	case time.Time:
		return kindTime
	}
	if _, ok := numberOf(value); ok {
		return kindNumber
	}
	rv := reflect.ValueOf(value)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return kindNil
	}
	return kindOther
}

// compareValues is the ascending total order used by the sort stage.
// Values of one kind compare naturally. Mixed kinds order as
// bool < number < time < string < other, and nil is always greatest.
func compareValues(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	switch ka {
	case kindNil:
		return 0
	case kindBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case kindNumber:
		if da, ok := a.(decimal.Decimal); ok {
			if db, ok := b.(decimal.Decimal); ok {
				return da.Cmp(db)
			}
		}
		fa, _ := numberOf(a)
		fb, _ := numberOf(b)
		return compareFloat(fa, fb)
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time))
	case kindString:
		return strings.Compare(a.(string), b.(string))
	}

	sa, _ := stringify(a)
	sb, _ := stringify(b)
	return strings.Compare(sa, sb)
}

// compareFloat puts NaN after every other number.
func compareFloat(a, b float64) int {
	nanA, nanB := math.IsNaN(a), math.IsNaN(b)
	switch {
	case nanA && nanB:
		return 0
	case nanA:
		return 1
	case nanB:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
