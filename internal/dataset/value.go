package dataset

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when decoding malformed JSON into a Value or Table.
var ErrInvalidJSON = errors.New("invalid JSON")

// Kind identifies which scalar a Value holds.
type Kind uint8

const (
	KindMissing Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "missing"
	}
}

// Value is a single cell: missing, a string, a number or a bool.
// The zero Value is missing.
type Value struct {
	kind Kind
	s    string
	f    float64
	b    bool
}

// Missing returns the missing marker.
func Missing() Value { return Value{} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps f. NaN and infinities are stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, f: f}
}

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Str returns the string payload and whether v holds a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Num returns the numeric payload and whether v holds a number.
func (v Value) Num() (float64, bool) { return v.f, v.kind == KindNumber }

// Boolean returns the bool payload and whether v holds a bool.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Text is the canonical string form used for display, hashing and CSV output.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return []byte(strconv.FormatFloat(v.f, 'f', -1, 64)), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return ErrInvalidJSON
	}
	*v = FromJSON(gjson.ParseBytes(b))
	return nil
}

// FromJSON converts a decoded JSON scalar. Objects and arrays keep their raw text.
func FromJSON(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Missing()
	case gjson.String:
		return String(r.Str)
	case gjson.Number:
		return Number(r.Num)
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	default:
		return String(r.Raw)
	}
}
