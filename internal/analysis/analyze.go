package analysis

import (
	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/sirupsen/logrus"
)

// Analysis is the single output artifact of the pipeline. Rows and Columns
// describe the cleaned shape; RawRowCount is the row count before cleaning.
// It is a plain JSON value and is not modified after Analyze returns.
type Analysis struct {
	Rows              int             `json:"rows"`
	Columns           []string        `json:"columns"`
	RawRowCount       int             `json:"rawRowCount"`
	DuplicatesRemoved int             `json:"duplicatesRemoved"`
	MissingFilled     int             `json:"missingFilled"`
	MissingPercent    float64         `json:"missingPercent"`
	QualityScore      int             `json:"qualityScore"`
	QualityFactors    []QualityFactor `json:"qualityFactors"`
	ParsingErrors     int             `json:"parsingErrors"`
	CoercionFailures  int             `json:"coercionFailures"`
	DateRange         *DateRange      `json:"dateRange,omitempty"`
	CleanedData       *dataset.Table  `json:"cleanedData"`
	ColumnInfo        Columns         `json:"columnInfo"`

	highMissing float64
}

// Analyze runs inference, cleaning, profiling and scoring over raw rows.
// It never fails: data problems become counters, flags and missing cells.
// The input table is not modified.
func Analyze(t *dataset.Table, opt Options) *Analysis {
	opt = opt.normalized()
	if t == nil {
		t = &dataset.Table{}
	}
	log := opt.Logger.WithFields(logrus.Fields{"raw_rows": t.Len(), "columns": len(t.Columns)})
	log.Debug("analysis started")

	types := InferTypes(t, opt)
	cr := Clean(t, types, opt)
	cols := Profile(cr, opt)

	a := &Analysis{
		Rows:              cr.Table.Len(),
		Columns:           append([]string(nil), cr.Table.Columns...),
		RawRowCount:       cr.RawRowCount,
		DuplicatesRemoved: cr.DuplicatesRemoved,
		MissingFilled:     cr.MissingFilled,
		ParsingErrors:     t.ParseErrors,
		CoercionFailures:  cr.CoercionFailures,
		CleanedData:       cr.Table,
		ColumnInfo:        cols,
		highMissing:       opt.HighMissingPercent,
	}

	sig := QualitySignals{
		RawRows:           cr.RawRowCount,
		DuplicatesRemoved: cr.DuplicatesRemoved,
		ParsingErrors:     t.ParseErrors,
	}
	missingCells := 0
	for _, c := range cols {
		b := c.Base()
		missingCells += b.MissingCount
		if b.MissingPercent >= opt.HighMissingPercent {
			sig.HighMissingColumns++
		}
		if b.InconsistentFormats > 0 {
			sig.InconsistentColumns++
		}
		if b.UniqueCount == 1 {
			sig.ConstantColumns++
		}
		if dt, ok := c.(*DatetimeColumnInfo); ok && dt.DateRange != nil {
			a.DateRange = widen(a.DateRange, dt.DateRange)
		}
	}
	if cells := a.Rows * len(a.Columns); cells > 0 {
		a.MissingPercent = round2(float64(missingCells) * 100 / float64(cells))
	}
	sig.MissingPercent = a.MissingPercent
	a.QualityScore, a.QualityFactors = Score(sig, opt.Weights)

	log.WithFields(logrus.Fields{
		"rows":               a.Rows,
		"duplicates_removed": a.DuplicatesRemoved,
		"missing_percent":    a.MissingPercent,
		"quality_score":      a.QualityScore,
	}).Debug("analysis finished")
	return a
}

// NumericColumns returns the names of numeric columns in order.
func (a *Analysis) NumericColumns() []string { return a.ColumnInfo.OfType(TypeNumeric) }

// widen returns the union of two date ranges in canonical form.
func widen(cur, next *DateRange) *DateRange {
	if cur == nil {
		return &DateRange{Min: next.Min, Max: next.Max}
	}
	out := *cur
	if lt(next.Min, out.Min) {
		out.Min = next.Min
	}
	if lt(out.Max, next.Max) {
		out.Max = next.Max
	}
	return &out
}

func lt(a, b string) bool {
	ta, okA := parseCanonical(a)
	tb, okB := parseCanonical(b)
	if !okA || !okB {
		return a < b
	}
	return ta.Before(tb)
}
