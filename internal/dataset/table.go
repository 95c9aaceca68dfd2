package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Row is a positional record aligned with its table's Columns.
type Row []Value

// Get returns the value at i, or missing when the row is short.
func (r Row) Get(i int) Value {
	if i < 0 || i >= len(r) {
		return Missing()
	}
	return r[i]
}

// Table is an ordered set of columns plus row-major data.
// ParseErrors counts source rows that were skipped while decoding.
type Table struct {
	Columns     []string
	Rows        []Row
	ParseErrors int
}

// New returns an empty table with a copy of columns.
func New(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds r, padding or truncating it to the column count.
func (t *Table) Append(r Row) {
	n := len(t.Columns)
	if len(r) != n {
		fixed := make(Row, n)
		copy(fixed, r)
		r = fixed
	}
	t.Rows = append(t.Rows, r)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of one column in row order, or nil if absent.
func (t *Table) Column(name string) []Value {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Get(idx)
	}
	return out
}

// Record returns row i as a name->value map.
func (t *Table) Record(i int) map[string]Value {
	m := make(map[string]Value, len(t.Columns))
	r := t.Rows[i]
	for j, c := range t.Columns {
		m[c] = r.Get(j)
	}
	return m
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns:     append([]string(nil), t.Columns...),
		Rows:        make([]Row, len(t.Rows)),
		ParseErrors: t.ParseErrors,
	}
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns)
	out.ParseErrors = t.ParseErrors
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, append(Row(nil), r...))
		}
	}
	return out
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(columns []string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}
	out := New(columns)
	out.ParseErrors = t.ParseErrors
	for _, r := range t.Rows {
		nr := make(Row, len(idx))
		for i, j := range idx {
			nr[i] = r.Get(j)
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}

// MarshalJSON encodes the table as an array of objects whose keys follow Columns.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	keys := make([][]byte, len(t.Columns))
	for i, c := range t.Columns {
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	for i, r := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			b, err := r.Get(j).MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an array of objects (or a single object), keeping
// first-seen key order.
func (t *Table) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return ErrInvalidJSON
	}
	*t = *DecodeRecords(gjson.ParseBytes(b))
	return nil
}

// DecodeRecords builds a table from JSON records. Nested objects are flattened
// with dotted keys; arrays are kept as raw JSON text. Elements that are not
// objects are counted in ParseErrors.
func DecodeRecords(r gjson.Result) *Table {
	t := &Table{}
	pos := map[string]int{}
	var recs []map[int]Value

	add := func(obj gjson.Result) {
		rec := map[int]Value{}
		flatten("", obj, func(key string, v Value) {
			i, ok := pos[key]
			if !ok {
				i = len(t.Columns)
				pos[key] = i
				t.Columns = append(t.Columns, key)
			}
			rec[i] = v
		})
		recs = append(recs, rec)
	}

	switch {
	case r.IsObject():
		add(r)
	case r.IsArray():
		r.ForEach(func(_, el gjson.Result) bool {
			if el.IsObject() {
				add(el)
			} else {
				t.ParseErrors++
			}
			return true
		})
	case r.Exists() && r.Type != gjson.Null:
		t.ParseErrors++
	}

	t.Rows = make([]Row, len(recs))
	for i, rec := range recs {
		row := make(Row, len(t.Columns))
		for j, v := range rec {
			row[j] = v
		}
		t.Rows[i] = row
	}
	return t
}

func flatten(prefix string, obj gjson.Result, emit func(string, Value)) {
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if prefix != "" {
			key = prefix + "." + key
		}
		if v.IsObject() && len(v.Map()) > 0 {
			flatten(key, v, emit)
		} else {
			emit(key, FromJSON(v))
		}
		return true
	})
}
