package analysis

import (
	"runtime"

	"github.com/KaramelBytes/tablelens-cli/internal/logging"
	"github.com/sirupsen/logrus"
)

// Tunable policy constants. Options carries them so callers and config can
// override each one.
const (
	// DefaultSampleSize bounds how many rows InferTypes looks at.
	DefaultSampleSize = 1000
	// DefaultTypeThreshold is the fraction of non-missing sampled values that
	// must parse as dates (or numbers) for a column to get that type.
	DefaultTypeThreshold = 0.9
	// DefaultIDUniqueRatio is the distinct/non-missing ratio above which
	// identifier-looking columns become TypeID.
	DefaultIDUniqueRatio = 0.9
	// Categorical columns have at most this distinct/non-missing ratio and
	// at most DefaultCategoricalMaxDistinct distinct values.
	DefaultCategoricalMaxRatio    = 0.5
	DefaultCategoricalMaxDistinct = 100

	DefaultTopK              = 20
	MaxTopK                  = 100
	DefaultMaxOutlierSamples = 10

	// DefaultHighMissingPercent marks a column as high-missing for scoring.
	DefaultHighMissingPercent = 50.0
	// DefaultNullPatternAlpha is the one-sided significance level of the runs
	// test that separates clustered from random missingness.
	DefaultNullPatternAlpha = 0.05

	// OutlierFence is the IQR multiplier for outlier detection.
	OutlierFence = 1.5

	// Cardinality ratio boundaries (uniqueCount / rowCount).
	CardinalityHighRatio   = 0.5
	CardinalityMediumRatio = 0.1
)

// Options controls the analysis pipeline.
type Options struct {
	SampleSize             int
	TypeThreshold          float64
	IDUniqueRatio          float64
	CategoricalMaxRatio    float64
	CategoricalMaxDistinct int
	TopK                   int
	// MaxOutlierSamples caps ColumnStats.Outliers; 0 uses the default and a
	// negative value lists none.
	MaxOutlierSamples  int
	HighMissingPercent float64
	NullPatternAlpha   float64
	// Workers bounds per-column profiling goroutines; 0 uses GOMAXPROCS.
	Workers int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	Weights            ScoreWeights
	// Logger receives stage summaries at debug level. Nil discards.
	Logger logrus.FieldLogger
}

// DefaultOptions returns the default policy.
func DefaultOptions() Options {
	return Options{
		SampleSize:             DefaultSampleSize,
		TypeThreshold:          DefaultTypeThreshold,
		IDUniqueRatio:          DefaultIDUniqueRatio,
		CategoricalMaxRatio:    DefaultCategoricalMaxRatio,
		CategoricalMaxDistinct: DefaultCategoricalMaxDistinct,
		TopK:                   DefaultTopK,
		MaxOutlierSamples:      DefaultMaxOutlierSamples,
		HighMissingPercent:     DefaultHighMissingPercent,
		NullPatternAlpha:       DefaultNullPatternAlpha,
		Weights:                DefaultScoreWeights(),
	}
}

// normalized fills unset fields with defaults and applies hard caps.
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.SampleSize <= 0 {
		o.SampleSize = d.SampleSize
	}
	if o.TypeThreshold <= 0 || o.TypeThreshold > 1 {
		o.TypeThreshold = d.TypeThreshold
	}
	if o.IDUniqueRatio <= 0 || o.IDUniqueRatio > 1 {
		o.IDUniqueRatio = d.IDUniqueRatio
	}
	if o.CategoricalMaxRatio <= 0 || o.CategoricalMaxRatio > 1 {
		o.CategoricalMaxRatio = d.CategoricalMaxRatio
	}
	if o.CategoricalMaxDistinct <= 0 {
		o.CategoricalMaxDistinct = d.CategoricalMaxDistinct
	}
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.TopK > MaxTopK {
		o.TopK = MaxTopK
	}
	if o.MaxOutlierSamples == 0 {
		o.MaxOutlierSamples = d.MaxOutlierSamples
	}
	if o.MaxOutlierSamples < 0 {
		o.MaxOutlierSamples = 0
	}
	if o.HighMissingPercent <= 0 || o.HighMissingPercent > 100 {
		o.HighMissingPercent = d.HighMissingPercent
	}
	if o.NullPatternAlpha <= 0 || o.NullPatternAlpha >= 1 {
		o.NullPatternAlpha = d.NullPatternAlpha
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Weights == (ScoreWeights{}) {
		o.Weights = d.Weights
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}
