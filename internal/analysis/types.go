package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ColumnType is the semantic type decided once per column by InferTypes.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeDatetime    ColumnType = "datetime"
	TypeText        ColumnType = "text"
	TypeID          ColumnType = "id"
)

// Cardinality classifies uniqueCount relative to the cleaned row count.
type Cardinality string

const (
	CardinalityConstant Cardinality = "constant"
	CardinalityLow      Cardinality = "low"
	CardinalityMedium   Cardinality = "medium"
	CardinalityHigh     Cardinality = "high"
	CardinalityUnique   Cardinality = "unique"
)

// NullPattern describes where missing values sit within a column.
type NullPattern string

const (
	NullNone     NullPattern = "none"
	NullRandom   NullPattern = "random"
	NullLeading  NullPattern = "leading"
	NullTrailing NullPattern = "trailing"
	NullPeriodic NullPattern = "periodic"
)

// ColumnStats holds descriptive statistics of a numeric column's observed values.
// Outliers lie outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR]; at most
// Options.MaxOutlierSamples of them are listed, ascending.
type ColumnStats struct {
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	Mean         float64   `json:"mean"`
	Median       float64   `json:"median"`
	Q1           float64   `json:"q1"`
	Q3           float64   `json:"q3"`
	IQR          float64   `json:"iqr"`
	OutlierCount int       `json:"outlierCount"`
	StdDev       float64   `json:"stdDev"`
	MAD          float64   `json:"mad"`
	Outliers     []float64 `json:"outliers,omitempty"`
}

// TopValue is one frequency entry of a categorical column.
type TopValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DateRange is the extent of datetime values, in canonical ISO form.
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// ColumnBase carries the fields every column profile has.
type ColumnBase struct {
	Name                string      `json:"name"`
	Type                ColumnType  `json:"type"`
	Unit                string      `json:"unit,omitempty"`
	UniqueCount         int         `json:"uniqueCount"`
	MissingCount        int         `json:"missingCount"`
	MissingPercent      float64     `json:"missingPercent"`
	Cardinality         Cardinality `json:"cardinality"`
	NullPattern         NullPattern `json:"nullPattern"`
	InconsistentFormats int         `json:"inconsistentFormats"`
}

// Base returns the shared fields.
func (b *ColumnBase) Base() *ColumnBase { return b }

// ColumnInfo is the per-type column profile. The concrete type is one of
// *NumericColumnInfo, *CategoricalColumnInfo, *DatetimeColumnInfo,
// *TextColumnInfo or *IDColumnInfo.
type ColumnInfo interface {
	Base() *ColumnBase
	columnInfo()
}

type NumericColumnInfo struct {
	ColumnBase
	Stats ColumnStats `json:"stats"`
}

type CategoricalColumnInfo struct {
	ColumnBase
	TopValues []TopValue `json:"topValues"`
}

type DatetimeColumnInfo struct {
	ColumnBase
	DateRange *DateRange `json:"dateRange,omitempty"`
}

type TextColumnInfo struct {
	ColumnBase
	AvgLength float64 `json:"avgLength"`
	MaxLength int     `json:"maxLength"`
}

type IDColumnInfo struct {
	ColumnBase
}

func (*NumericColumnInfo) columnInfo()     {}
func (*CategoricalColumnInfo) columnInfo() {}
func (*DatetimeColumnInfo) columnInfo()    {}
func (*TextColumnInfo) columnInfo()        {}
func (*IDColumnInfo) columnInfo()          {}

// Columns is an ordered list of column profiles that decodes back into the
// right variant by its "type" field.
type Columns []ColumnInfo

// Get returns the profile for name, or nil.
func (cs Columns) Get(name string) ColumnInfo {
	for _, c := range cs {
		if c.Base().Name == name {
			return c
		}
	}
	return nil
}

// Names returns the column names in order.
func (cs Columns) Names() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Base().Name
	}
	return out
}

// OfType returns the names of columns with type ct, in order.
func (cs Columns) OfType(ct ColumnType) []string {
	var out []string
	for _, c := range cs {
		if c.Base().Type == ct {
			out = append(out, c.Base().Name)
		}
	}
	return out
}

func (cs *Columns) UnmarshalJSON(b []byte) error {
	res := gjson.ParseBytes(b)
	if !res.IsArray() {
		return fmt.Errorf("columnInfo: expected array")
	}
	out := Columns{}
	var err error
	res.ForEach(func(_, el gjson.Result) bool {
		var ci ColumnInfo
		switch ColumnType(el.Get("type").String()) {
		case TypeNumeric:
			ci = &NumericColumnInfo{}
		case TypeCategorical:
			ci = &CategoricalColumnInfo{}
		case TypeDatetime:
			ci = &DatetimeColumnInfo{}
		case TypeText:
			ci = &TextColumnInfo{}
		case TypeID:
			ci = &IDColumnInfo{}
		default:
			err = fmt.Errorf("columnInfo: unknown type %q", el.Get("type").String())
			return false
		}
		if err = json.Unmarshal([]byte(el.Raw), ci); err != nil {
			return false
		}
		out = append(out, ci)
		return true
	})
	if err != nil {
		return err
	}
	*cs = out
	return nil
}
