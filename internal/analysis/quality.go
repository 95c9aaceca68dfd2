package analysis

import "math"

// ScoreWeights is the quality scoring policy. Each factor's penalty is
// weight * signal, capped at its Cap.
type ScoreWeights struct {
	// Missingness: per percentage point of missing cells, plus per column
	// at or above Options.HighMissingPercent. Both share MissingCap.
	MissingPerPercent    float64
	HighMissingPerColumn float64
	MissingCap           float64
	// Duplicates: per percentage point of duplicate rows.
	DuplicatePerPercent float64
	DuplicateCap        float64
	// Columns with at least one inconsistently formatted value.
	InconsistentPerColumn float64
	InconsistentCap       float64
	// Columns holding exactly one distinct observed value.
	ConstantPerColumn float64
	ConstantCap       float64
	// Per percentage point of source rows that failed to parse.
	ParsingPerPercent float64
	ParsingCap        float64
}

// DefaultScoreWeights keeps missingness alone from pushing the score below 40.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		MissingPerPercent:     0.6,
		HighMissingPerColumn:  5,
		MissingCap:            60,
		DuplicatePerPercent:   0.5,
		DuplicateCap:          20,
		InconsistentPerColumn: 5,
		InconsistentCap:       15,
		ConstantPerColumn:     3,
		ConstantCap:           10,
		ParsingPerPercent:     1,
		ParsingCap:            20,
	}
}

// Quality factor names.
const (
	FactorMissing      = "missingness"
	FactorDuplicates   = "duplicates"
	FactorInconsistent = "inconsistentFormats"
	FactorConstant     = "constantColumns"
	FactorParsing      = "parsingErrors"
)

// QualityFactor reports one scoring signal and the points it cost.
type QualityFactor struct {
	Name    string  `json:"name"`
	Signal  float64 `json:"signal"`
	Penalty float64 `json:"penalty"`
}

// QualitySignals are the dataset-level inputs to Score.
type QualitySignals struct {
	MissingPercent      float64
	HighMissingColumns  int
	RawRows             int
	DuplicatesRemoved   int
	InconsistentColumns int
	ConstantColumns     int
	ParsingErrors       int
}

// Score starts at 100, subtracts each capped penalty, clamps to [0, 100] and
// rounds. Factors are returned in a fixed order.
func Score(s QualitySignals, w ScoreWeights) (int, []QualityFactor) {
	dupPct := 0.0
	if s.RawRows > 0 {
		dupPct = float64(s.DuplicatesRemoved) * 100 / float64(s.RawRows)
	}
	parsePct := 0.0
	if total := s.RawRows + s.ParsingErrors; total > 0 {
		parsePct = float64(s.ParsingErrors) * 100 / float64(total)
	}

	factors := []QualityFactor{
		{FactorMissing, s.MissingPercent, penalty(s.MissingPercent*w.MissingPerPercent+float64(s.HighMissingColumns)*w.HighMissingPerColumn, w.MissingCap)},
		{FactorDuplicates, dupPct, penalty(dupPct*w.DuplicatePerPercent, w.DuplicateCap)},
		{FactorInconsistent, float64(s.InconsistentColumns), penalty(float64(s.InconsistentColumns)*w.InconsistentPerColumn, w.InconsistentCap)},
		{FactorConstant, float64(s.ConstantColumns), penalty(float64(s.ConstantColumns)*w.ConstantPerColumn, w.ConstantCap)},
		{FactorParsing, parsePct, penalty(parsePct*w.ParsingPerPercent, w.ParsingCap)},
	}
	score := 100.0
	for i := range factors {
		factors[i].Signal = round2(factors[i].Signal)
		factors[i].Penalty = round2(factors[i].Penalty)
		score -= factors[i].Penalty
	}
	score = math.Max(0, math.Min(100, score))
	return int(math.Round(score)), factors
}

func penalty(p, limit float64) float64 {
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	if limit >= 0 && p > limit {
		return limit
	}
	return p
}
