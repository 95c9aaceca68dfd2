package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
)

// Markdown renders a compact report suitable for terminals or standalone docs.
// sampleRows limits the [HEAD AND SAMPLE ROWS] table; 0 omits it.
func (a *Analysis) Markdown(name string, sampleRows int) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	if a.Rows < a.RawRowCount {
		b.WriteString(fmt.Sprintf("Rows: %d (raw %d, %d duplicates removed)\n", a.Rows, a.RawRowCount, a.DuplicatesRemoved))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", a.Rows))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(a.Columns)))
	b.WriteString(fmt.Sprintf("Quality score: %d/100\n", a.QualityScore))
	b.WriteString(fmt.Sprintf("Missing: %.1f%% of cells (%d filled)\n", a.MissingPercent, a.MissingFilled))
	if a.ParsingErrors > 0 {
		b.WriteString(fmt.Sprintf("Parsing errors: %d rows skipped\n", a.ParsingErrors))
	}
	if a.DateRange != nil {
		b.WriteString(fmt.Sprintf("Date range: %s to %s\n", a.DateRange.Min, a.DateRange.Max))
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range a.ColumnInfo {
		base := c.Base()
		name := safeName(base.Name)
		b.WriteString(fmt.Sprintf("- %s: %s (%s, missing %.1f%%", name, base.Type, base.Cardinality, base.MissingPercent))
		if base.NullPattern != NullNone {
			b.WriteString(fmt.Sprintf(", %s gaps", base.NullPattern))
		}
		b.WriteString(")")
		switch ci := c.(type) {
		case *NumericColumnInfo:
			s := ci.Stats
			b.WriteString(fmt.Sprintf(" — min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g, mean %.4g", s.Min, s.Q1, s.Median, s.Q3, s.Max, s.Mean))
			if s.OutlierCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d outside 1.5×IQR", s.OutlierCount))
			}
		case *CategoricalColumnInfo:
			if len(ci.TopValues) > 0 {
				b.WriteString(" — top: ")
				lim := min(len(ci.TopValues), 5)
				for i, kv := range ci.TopValues[:lim] {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if base.UniqueCount > lim {
					b.WriteString(fmt.Sprintf("; unique=%d", base.UniqueCount))
				}
			}
		case *DatetimeColumnInfo:
			if ci.DateRange != nil {
				b.WriteString(fmt.Sprintf(" — %s to %s", ci.DateRange.Min, ci.DateRange.Max))
			}
		case *TextColumnInfo:
			b.WriteString(fmt.Sprintf(" — avg length %.1f, max %d", ci.AvgLength, ci.MaxLength))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[QUALITY]\n")
	for _, f := range a.QualityFactors {
		b.WriteString(fmt.Sprintf("- %s: signal %.4g, penalty %.1f\n", f.Name, f.Signal, f.Penalty))
	}

	if nums := a.NumericColumns(); len(nums) >= 2 {
		corr := CorrelationMatrix(a.CleanedData, nums)
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		for i := range nums {
			for j := i + 1; j < len(nums); j++ {
				pairs = append(pairs, pr{A: nums[i], B: nums[j], R: corr.Matrix[i][j]})
			}
		}
		sort.SliceStable(pairs, func(i, j int) bool { return math.Abs(pairs[i].R) > math.Abs(pairs[j].R) })
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range pairs[:min(len(pairs), 10)] {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if sampleRows > 0 && a.CleanedData != nil && a.CleanedData.Len() > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString(MarkdownTable(a.Columns, a.CleanedData.Rows, sampleRows))
	}

	if notes := a.notes(); len(notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range notes {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// highMissingPercent is the threshold Analyze ran with; decoded analyses fall
// back to the default.
func (a *Analysis) highMissingPercent() float64 {
	if a.highMissing > 0 {
		return a.highMissing
	}
	return DefaultHighMissingPercent
}

func (a *Analysis) notes() []string {
	var out []string
	for _, c := range a.ColumnInfo {
		base := c.Base()
		if base.MissingCount > 0 && base.MissingPercent >= a.highMissingPercent() {
			out = append(out, fmt.Sprintf("%s is mostly empty (%.1f%% missing)", base.Name, base.MissingPercent))
		}
		if base.UniqueCount == 1 {
			out = append(out, fmt.Sprintf("%s holds a single value", base.Name))
		}
		if base.InconsistentFormats > 0 {
			out = append(out, fmt.Sprintf("%s has %d values in a non-dominant format", base.Name, base.InconsistentFormats))
		}
	}
	if a.CoercionFailures > 0 {
		out = append(out, fmt.Sprintf("%d cells did not match their column type and were treated as missing", a.CoercionFailures))
	}
	return out
}

// MarkdownTable renders up to limit rows as a pipe table.
func MarkdownTable(columns []string, rows []dataset.Row, limit int) string {
	var b strings.Builder
	b.WriteString("| ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(c))
	}
	b.WriteString(" |\n| ")
	for i := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range rows[:min(len(rows), limit)] {
		b.WriteString("| ")
		for i := range columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := row.Get(i).Text()
			if r := []rune(val); len(r) > 80 {
				val = string(r[:77]) + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
