package analysis

import (
	"strings"
	"time"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
)

// CleanResult is the Cleaner's output: new rows plus the counters and
// per-cell bookkeeping the Profiler needs.
type CleanResult struct {
	Table             *dataset.Table
	Types             []ColumnType
	RawRowCount       int
	DuplicatesRemoved int
	MissingFilled     int
	CoercionFailures  int

	// Column-major, aligned with Table.Rows: missing[j][i] is true when cell
	// (i, j) was missing before imputation; format[j][i] is its notation tag.
	missing [][]bool
	format  [][]string
}

// Missing reports whether cell (row, col) was missing before imputation.
func (c *CleanResult) Missing(row, col int) bool { return c.missing[col][row] }

// Clean trims and coerces every cell to its column type, drops exact duplicate
// rows (first occurrence wins) and imputes numeric medians and categorical
// modes. Rows with no observed cell are kept and left to the missingness
// signal rather than counted as duplicates. The input table is not modified.
func Clean(t *dataset.Table, types []ColumnType, opt Options) *CleanResult {
	opt = opt.normalized()
	ncol := len(t.Columns)
	types = alignTypes(types, ncol)

	layouts := make([]string, ncol)
	for j, ct := range types {
		if ct != TypeDatetime {
			continue
		}
		var vals []string
		for _, r := range t.Rows {
			if s, ok := cellText(r.Get(j)); ok {
				vals = append(vals, s)
			}
		}
		layouts[j] = dominantLayout(vals)
	}

	type cell struct {
		v   dataset.Value
		tm  time.Time
		fmt string
	}
	failures := 0
	coerced := make([][]cell, len(t.Rows))
	midnight := make([]bool, ncol)
	for j := range midnight {
		midnight[j] = true
	}
	for i, r := range t.Rows {
		row := make([]cell, ncol)
		for j := 0; j < ncol; j++ {
			s, ok := cellText(r.Get(j))
			if !ok {
				continue
			}
			switch types[j] {
			case TypeNumeric:
				if f, isNum := r.Get(j).Num(); isNum {
					row[j] = cell{v: dataset.Number(f), fmt: fmtPlain}
				} else if f, tag, ok := parseNumber(s, opt); ok {
					row[j] = cell{v: dataset.Number(f), fmt: tag}
				} else {
					failures++
				}
			case TypeDatetime:
				if tm, layout, ok := parseDate(s, layouts[j]); ok {
					row[j] = cell{tm: tm, fmt: layout}
					if !isMidnight(tm) {
						midnight[j] = false
					}
				} else {
					failures++
				}
			default:
				row[j] = cell{v: dataset.String(s), fmt: fmtPlain}
			}
		}
		coerced[i] = row
	}
	for _, row := range coerced {
		for j := range row {
			if types[j] == TypeDatetime && row[j].fmt != "" {
				if midnight[j] {
					row[j].v = dataset.String(row[j].tm.Format(isoDate))
				} else {
					row[j].v = dataset.String(row[j].tm.Format(isoDateTime))
				}
			}
		}
	}

	res := &CleanResult{
		Table:            dataset.New(t.Columns),
		Types:            append([]ColumnType(nil), types...),
		RawRowCount:      len(t.Rows),
		CoercionFailures: failures,
		missing:          make([][]bool, ncol),
		format:           make([][]string, ncol),
	}
	res.Table.ParseErrors = t.ParseErrors
	seen := make(map[string]struct{}, len(coerced))
	var key strings.Builder
	for _, row := range coerced {
		key.Reset()
		out := make(dataset.Row, ncol)
		empty := true
		for j, c := range row {
			out[j] = c.v
			if !c.v.IsMissing() {
				empty = false
			}
			key.WriteByte(byte('0' + c.v.Kind()))
			key.WriteString(c.v.Text())
			key.WriteByte(0x1f)
		}
		if !empty {
			k := key.String()
			if _, dup := seen[k]; dup {
				res.DuplicatesRemoved++
				continue
			}
			seen[k] = struct{}{}
		}
		res.Table.Rows = append(res.Table.Rows, out)
		for j, c := range row {
			res.missing[j] = append(res.missing[j], c.v.IsMissing())
			res.format[j] = append(res.format[j], c.fmt)
		}
	}
	for j := range res.missing {
		if res.missing[j] == nil {
			res.missing[j] = []bool{}
			res.format[j] = []string{}
		}
	}

	for j, ct := range types {
		var fill dataset.Value
		switch ct {
		case TypeNumeric:
			fill = medianFill(res.Table.Rows, j)
		case TypeCategorical:
			fill = modeFill(res.Table.Rows, j)
		default:
			continue
		}
		if fill.IsMissing() {
			continue
		}
		for _, r := range res.Table.Rows {
			if r[j].IsMissing() {
				r[j] = fill
				res.MissingFilled++
			}
		}
	}

	opt.Logger.WithFields(logrus.Fields{
		"raw_rows":           res.RawRowCount,
		"rows":               len(res.Table.Rows),
		"duplicates_removed": res.DuplicatesRemoved,
		"missing_filled":     res.MissingFilled,
		"coercion_failures":  res.CoercionFailures,
	}).Debug("cleaned dataset")
	return res
}

// alignTypes pads missing entries with TypeText.
func alignTypes(types []ColumnType, n int) []ColumnType {
	out := make([]ColumnType, n)
	for j := range out {
		out[j] = TypeText
		if j < len(types) && types[j] != "" {
			out[j] = types[j]
		}
	}
	return out
}

// cellText returns the trimmed text of v, or false when v counts as missing.
func cellText(v dataset.Value) (string, bool) {
	if v.IsMissing() {
		return "", false
	}
	s := strings.TrimSpace(v.Text())
	if isMissingText(s) {
		return "", false
	}
	return s, true
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

func medianFill(rows []dataset.Row, j int) dataset.Value {
	var xs []float64
	for _, r := range rows {
		if f, ok := r[j].Num(); ok {
			xs = append(xs, f)
		}
	}
	if len(xs) == 0 {
		return dataset.Missing()
	}
	m, err := stats.Median(xs)
	if err != nil {
		return dataset.Missing()
	}
	return dataset.Number(m)
}

// modeFill returns the most frequent value; ties go to the first seen.
func modeFill(rows []dataset.Row, j int) dataset.Value {
	counts := map[string]int{}
	var order []string
	for _, r := range rows {
		if r[j].IsMissing() {
			continue
		}
		s := r[j].Text()
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}
	best := ""
	for _, s := range order {
		if best == "" || counts[s] > counts[best] {
			best = s
		}
	}
	if best == "" {
		return dataset.Missing()
	}
	return dataset.String(best)
}
