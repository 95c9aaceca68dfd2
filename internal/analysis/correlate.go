package analysis

import (
	"math"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// CorrelationResult is a symmetric Pearson matrix over Columns.
type CorrelationResult struct {
	Columns []string    `json:"columns"`
	Matrix  [][]float64 `json:"matrix"`
}

// CorrelationMatrix computes pairwise Pearson r over the named columns using
// only rows where both values are numeric (numbers, or strings that parse as
// numbers). Pairs with fewer than two observations or a constant side are 0,
// so a constant column also has 0 on the diagonal. Unknown columns yield
// all-zero rows. The table is only read.
func CorrelationMatrix(t *dataset.Table, columns []string) CorrelationResult {
	k := len(columns)
	res := CorrelationResult{
		Columns: append([]string(nil), columns...),
		Matrix:  make([][]float64, k),
	}
	for i := range res.Matrix {
		res.Matrix[i] = make([]float64, k)
	}
	if t == nil {
		return res
	}

	n := len(t.Rows)
	vals := make([][]float64, k)
	ok := make([][]bool, k)
	opt := DefaultOptions()
	for c, name := range columns {
		vals[c] = make([]float64, n)
		ok[c] = make([]bool, n)
		j := t.Index(name)
		if j < 0 {
			continue
		}
		for i, r := range t.Rows {
			vals[c][i], ok[c][i] = numericValue(r.Get(j), opt)
		}
	}

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			xs, ys = xs[:0], ys[:0]
			for i := 0; i < n; i++ {
				if ok[a][i] && ok[b][i] {
					xs = append(xs, vals[a][i])
					ys = append(ys, vals[b][i])
				}
			}
			r := pearson(xs, ys)
			if a == b && r != 0 {
				r = 1
			}
			res.Matrix[a][b] = r
			res.Matrix[b][a] = r
		}
	}
	return res
}

func numericValue(v dataset.Value, opt Options) (float64, bool) {
	if f, ok := v.Num(); ok {
		return f, true
	}
	if s, ok := cellText(v); ok {
		if _, isStr := v.Str(); isStr {
			f, _, ok := parseNumber(s, opt)
			return f, ok
		}
	}
	return 0, false
}

// pearson returns r in [-1, 1], or 0 for degenerate input.
func pearson(xs, ys []float64) float64 {
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
