package analysis

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// Profile computes one ColumnInfo per column of a cleaned table. Columns are
// profiled concurrently and stored by index, so the output order is the
// column order regardless of completion order.
func Profile(cr *CleanResult, opt Options) Columns {
	opt = opt.normalized()
	cols := cr.Table.Columns
	out := make(Columns, len(cols))

	var g errgroup.Group
	g.SetLimit(opt.Workers)
	for j := range cols {
		g.Go(func() error {
			out[j] = profileColumn(cr, j, opt)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func profileColumn(cr *CleanResult, j int, opt Options) ColumnInfo {
	rows := cr.Table.Rows
	n := len(rows)
	missing := cr.missing[j]
	ct := TypeText
	if j < len(cr.Types) {
		ct = cr.Types[j]
	}
	_, unit := splitUnits(cr.Table.Columns[j])

	base := ColumnBase{
		Name: cr.Table.Columns[j],
		Type: ct,
		Unit: unit,
	}
	var observed []int
	distinct := map[string]struct{}{}
	for i := 0; i < n; i++ {
		if missing[i] {
			base.MissingCount++
			continue
		}
		observed = append(observed, i)
		distinct[rows[i][j].Text()] = struct{}{}
	}
	base.UniqueCount = len(distinct)
	if n > 0 {
		base.MissingPercent = round2(float64(base.MissingCount) * 100 / float64(n))
	}
	base.Cardinality = cardinality(base.UniqueCount, n)
	base.NullPattern = nullPattern(missing, opt.NullPatternAlpha)

	switch ct {
	case TypeNumeric:
		base.InconsistentFormats = minorityCount(cr.format[j], observed)
		xs := make([]float64, 0, len(observed))
		for _, i := range observed {
			if f, ok := rows[i][j].Num(); ok {
				xs = append(xs, f)
			}
		}
		return &NumericColumnInfo{ColumnBase: base, Stats: numericStats(xs, opt.MaxOutlierSamples)}

	case TypeCategorical:
		texts := make([]string, len(observed))
		for k, i := range observed {
			texts[k] = rows[i][j].Text()
		}
		base.InconsistentFormats = variantCount(texts)
		return &CategoricalColumnInfo{ColumnBase: base, TopValues: topValues(texts, opt.TopK)}

	case TypeDatetime:
		base.InconsistentFormats = minorityCount(cr.format[j], observed)
		info := &DatetimeColumnInfo{ColumnBase: base}
		var lo, hi string
		var tlo, thi time.Time
		for _, i := range observed {
			s := rows[i][j].Text()
			tm, ok := parseCanonical(s)
			if !ok {
				continue
			}
			if lo == "" || tm.Before(tlo) {
				lo, tlo = s, tm
			}
			if hi == "" || tm.After(thi) {
				hi, thi = s, tm
			}
		}
		if lo != "" {
			info.DateRange = &DateRange{Min: lo, Max: hi}
		}
		return info

	case TypeID:
		return &IDColumnInfo{ColumnBase: base}

	default:
		info := &TextColumnInfo{ColumnBase: base}
		texts := make([]string, len(observed))
		total := 0
		for k, i := range observed {
			texts[k] = rows[i][j].Text()
			l := utf8.RuneCountInString(texts[k])
			total += l
			if l > info.MaxLength {
				info.MaxLength = l
			}
		}
		info.InconsistentFormats = variantCount(texts)
		if len(observed) > 0 {
			info.AvgLength = round2(float64(total) / float64(len(observed)))
		}
		return info
	}
}

// numericStats derives ColumnStats from observed values. Quartiles use linear
// interpolation on rank (n-1)p, so min <= q1 <= median <= q3 <= max.
func numericStats(vals []float64, maxSamples int) ColumnStats {
	if len(vals) == 0 {
		return ColumnStats{}
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var st ColumnStats
	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]
	st.Q1 = quantile(sorted, 0.25)
	st.Median = quantile(sorted, 0.5)
	st.Q3 = quantile(sorted, 0.75)
	st.IQR = st.Q3 - st.Q1
	if m, err := stats.Mean(sorted); err == nil {
		st.Mean = m
	}
	if len(sorted) > 1 {
		if sd, err := stats.StandardDeviationSample(sorted); err == nil && !math.IsNaN(sd) {
			st.StdDev = sd
		}
	}
	_, st.MAD = medianMAD(sorted)

	lo := st.Q1 - OutlierFence*st.IQR
	hi := st.Q3 + OutlierFence*st.IQR
	for _, v := range sorted {
		if v < lo || v > hi {
			st.OutlierCount++
			if len(st.Outliers) < maxSamples {
				st.Outliers = append(st.Outliers, v)
			}
		}
	}
	return st
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// medianMAD computes median and MAD (median absolute deviation) of sorted values.
func medianMAD(sorted []float64) (median, mad float64) {
	if len(sorted) == 0 {
		return 0, 0
	}
	median = quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func cardinality(unique, rows int) Cardinality {
	if unique <= 1 || rows == 0 {
		return CardinalityConstant
	}
	if unique == rows {
		return CardinalityUnique
	}
	ratio := float64(unique) / float64(rows)
	switch {
	case ratio > CardinalityHighRatio:
		return CardinalityHigh
	case ratio > CardinalityMediumRatio:
		return CardinalityMedium
	default:
		return CardinalityLow
	}
}

// nullPattern classifies missing positions. A single contiguous block at
// either end is leading or trailing; three or more equally spaced gaps are
// periodic. Otherwise a Wald-Wolfowitz runs test decides whether missing
// cells cluster (too few runs) or look random.
func nullPattern(missing []bool, alpha float64) NullPattern {
	n := len(missing)
	var pos []int
	for i, m := range missing {
		if m {
			pos = append(pos, i)
		}
	}
	k := len(pos)
	if k == 0 {
		return NullNone
	}
	first, last := pos[0], pos[k-1]
	if last-first+1 == k {
		if first == 0 {
			return NullLeading
		}
		if last == n-1 {
			return NullTrailing
		}
	}
	if k >= 3 {
		gap := pos[1] - pos[0]
		periodic := gap > 1
		for i := 2; i < k && periodic; i++ {
			periodic = pos[i]-pos[i-1] == gap
		}
		if periodic {
			return NullPeriodic
		}
	}

	n1, n2 := float64(k), float64(n-k)
	if n2 == 0 {
		return NullRandom
	}
	runs := 1.0
	for i := 1; i < n; i++ {
		if missing[i] != missing[i-1] {
			runs++
		}
	}
	nn := n1 + n2
	mu := 2*n1*n2/nn + 1
	variance := 2 * n1 * n2 * (2*n1*n2 - nn) / (nn * nn * (nn - 1))
	if variance <= 0 {
		return NullRandom
	}
	z := (runs - mu) / math.Sqrt(variance)
	if distuv.UnitNormal.CDF(z) < alpha {
		mean := 0.0
		for _, p := range pos {
			mean += float64(p)
		}
		mean /= n1
		if mean < float64(n-1)/2 {
			return NullLeading
		}
		return NullTrailing
	}
	return NullRandom
}

// minorityCount counts observed cells whose format tag differs from the most
// common tag (ties go to the first seen).
func minorityCount(tags []string, observed []int) int {
	counts := map[string]int{}
	var order []string
	for _, i := range observed {
		t := tags[i]
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	if len(order) < 2 {
		return 0
	}
	best := order[0]
	for _, t := range order[1:] {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return len(observed) - counts[best]
}

// variantCount counts values spelled differently from the dominant spelling
// of their case- and whitespace-folded group ("Paris" vs "paris ").
func variantCount(vals []string) int {
	groups := map[string]map[string]int{}
	for _, v := range vals {
		k := variantKey(v)
		if groups[k] == nil {
			groups[k] = map[string]int{}
		}
		groups[k][v]++
	}
	total := 0
	for _, spellings := range groups {
		if len(spellings) < 2 {
			continue
		}
		sum, best := 0, 0
		for _, c := range spellings {
			sum += c
			if c > best {
				best = c
			}
		}
		total += sum - best
	}
	return total
}

// topValues counts values, ordered by count desc with ties by first-seen order.
func topValues(vals []string, k int) []TopValue {
	counts := map[string]int{}
	var order []string
	for _, v := range vals {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make([]TopValue, len(order))
	for i, v := range order {
		out[i] = TopValue{Value: v, Count: counts[v]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
