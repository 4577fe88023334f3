package rowstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the dynamic type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
)

// Value is a tagged scalar as returned by the row store. Rows are
// schema-less, so every cell is one of text, number, boolean or null.
// Dates travel as ISO-8601 text.
type Value struct {
	kind Kind
	text string
	num  float64
	b    bool
}

// Row is a single record keyed by column name.
type Row map[string]Value

// NullValue returns the null Value.
func NullValue() Value { return Value{kind: KindNull} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{kind: KindText, text: s} }

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// IntValue wraps an int.
func IntValue(n int) Value { return Value{kind: KindNumber, num: float64(n)} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the dynamic type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the value rendered as a string. Numbers are formatted
// without trailing zeros, null renders as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float returns the numeric value. For text it attempts a parse, so
// quantity columns stored as strings still sum correctly.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		n, err := strconv.ParseFloat(v.text, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Int returns the value truncated to an int, or 0 when non-numeric.
func (v Value) Int() int {
	n, ok := v.Float()
	if !ok {
		return 0
	}
	return int(n)
}

// Export renders the value for CSV/XLSX output: null becomes the empty
// string, everything else uses Text.
func (v Value) Export() string {
	if v.kind == KindNull {
		return ""
	}
	return v.Text()
}

// MarshalJSON renders the value with its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.text)
	}
}

// scanValue converts a database/sql scan result into a Value.
func scanValue(src any) Value {
	switch s := src.(type) {
	case nil:
		return NullValue()
	case int64:
		return NumberValue(float64(s))
	case float64:
		return NumberValue(s)
	case bool:
		return BoolValue(s)
	case []byte:
		return TextValue(string(s))
	case string:
		return TextValue(s)
	default:
		return TextValue(fmt.Sprint(s))
	}
}

// toDriver converts a Value into a driver-friendly argument. Integral
// numbers are passed as int64 so quantity columns stay INTEGER typed.
func toDriver(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
			return int64(v.num)
		}
		return v.num
	case KindBool:
		return v.b
	default:
		return v.text
	}
}
