package analysis

import (
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
)

// sampleIndexes returns up to size row indexes spread evenly over n rows.
func sampleIndexes(n, size int) []int {
	if n <= size {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = int(int64(i) * int64(n) / int64(size))
	}
	return idx
}

// InferTypes assigns one ColumnType per column of t, in column order, from a
// bounded, evenly strided sample of rows.
func InferTypes(t *dataset.Table, opt Options) []ColumnType {
	opt = opt.normalized()
	idx := sampleIndexes(t.Len(), opt.SampleSize)
	types := make([]ColumnType, len(t.Columns))
	vals := make([]string, 0, len(idx))
	for j := range t.Columns {
		vals = vals[:0]
		for _, i := range idx {
			v := t.Rows[i].Get(j)
			if v.IsMissing() {
				continue
			}
			s := strings.TrimSpace(v.Text())
			if isMissingText(s) {
				continue
			}
			vals = append(vals, s)
		}
		types[j] = inferColumn(vals, opt)
	}
	return types
}

// inferColumn classifies trimmed, non-missing sample values. Priority:
// datetime, numeric, id, categorical, text.
func inferColumn(vals []string, opt Options) ColumnType {
	n := len(vals)
	if n == 0 {
		return TypeText
	}
	need := opt.TypeThreshold * float64(n)

	layout := dominantLayout(vals)
	if layout != "" {
		dates := 0
		for _, v := range vals {
			if _, _, ok := parseDate(v, layout); ok {
				dates++
			}
		}
		if float64(dates) >= need {
			return TypeDatetime
		}
	}

	nums := 0
	for _, v := range vals {
		if _, _, ok := parseNumber(v, opt); ok {
			nums++
		}
	}
	if float64(nums) >= need {
		return TypeNumeric
	}

	distinct := map[string]struct{}{}
	bools, ids := 0, 0
	for _, v := range vals {
		distinct[v] = struct{}{}
		if isBoolText(v) {
			bools++
		}
		if looksLikeID(v) {
			ids++
		}
	}
	ratio := float64(len(distinct)) / float64(n)
	if ratio > opt.IDUniqueRatio && float64(ids) >= need {
		return TypeID
	}
	if bools == n {
		return TypeCategorical
	}
	if ratio <= opt.CategoricalMaxRatio && len(distinct) <= opt.CategoricalMaxDistinct {
		return TypeCategorical
	}
	return TypeText
}
