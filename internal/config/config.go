package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. TABLELENS_TOP_K.
const EnvPrefix = "TABLELENS"

// Score holds the quality scoring weights.
type Score struct {
	MissingPerPercent     float64 `mapstructure:"missing_per_percent" yaml:"missing_per_percent"`
	HighMissingPerColumn  float64 `mapstructure:"high_missing_per_column" yaml:"high_missing_per_column"`
	MissingCap            float64 `mapstructure:"missing_cap" yaml:"missing_cap"`
	DuplicatePerPercent   float64 `mapstructure:"duplicate_per_percent" yaml:"duplicate_per_percent"`
	DuplicateCap          float64 `mapstructure:"duplicate_cap" yaml:"duplicate_cap"`
	InconsistentPerColumn float64 `mapstructure:"inconsistent_per_column" yaml:"inconsistent_per_column"`
	InconsistentCap       float64 `mapstructure:"inconsistent_cap" yaml:"inconsistent_cap"`
	ConstantPerColumn     float64 `mapstructure:"constant_per_column" yaml:"constant_per_column"`
	ConstantCap           float64 `mapstructure:"constant_cap" yaml:"constant_cap"`
	ParsingPerPercent     float64 `mapstructure:"parsing_per_percent" yaml:"parsing_per_percent"`
	ParsingCap            float64 `mapstructure:"parsing_cap" yaml:"parsing_cap"`
}

// Global configuration structure.
type Global struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Analysis policy
	SampleSize             int     `mapstructure:"sample_size" yaml:"sample_size"`
	TypeThreshold          float64 `mapstructure:"type_threshold" yaml:"type_threshold"`
	IDUniqueRatio          float64 `mapstructure:"id_unique_ratio" yaml:"id_unique_ratio"`
	CategoricalMaxRatio    float64 `mapstructure:"categorical_max_ratio" yaml:"categorical_max_ratio"`
	CategoricalMaxDistinct int     `mapstructure:"categorical_max_distinct" yaml:"categorical_max_distinct"`
	TopK                   int     `mapstructure:"top_k" yaml:"top_k"`
	MaxOutlierSamples      int     `mapstructure:"max_outlier_samples" yaml:"max_outlier_samples"`
	HighMissingPercent     float64 `mapstructure:"high_missing_percent" yaml:"high_missing_percent"`
	Workers                int     `mapstructure:"workers" yaml:"workers"`
	DecimalSeparator       string  `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	Score                  Score   `mapstructure:"score" yaml:"score"`

	// Remote sources
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	FetchToken     string `mapstructure:"fetch_token" yaml:"fetch_token"`

	// HTTP API
	ServerAddr  string `mapstructure:"server_addr" yaml:"server_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	// Comma-separated hosts the API may fetch URL sources from; empty disables them.
	FetchAllowHosts string `mapstructure:"fetch_allow_hosts" yaml:"fetch_allow_hosts"`
}

// Dir returns ~/.tablelens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tablelens"), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored and variables
// already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tablelens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := analysis.DefaultOptions()
	w := d.Weights
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("sample_size", d.SampleSize)
	v.SetDefault("type_threshold", d.TypeThreshold)
	v.SetDefault("id_unique_ratio", d.IDUniqueRatio)
	v.SetDefault("categorical_max_ratio", d.CategoricalMaxRatio)
	v.SetDefault("categorical_max_distinct", d.CategoricalMaxDistinct)
	v.SetDefault("top_k", d.TopK)
	v.SetDefault("max_outlier_samples", d.MaxOutlierSamples)
	v.SetDefault("high_missing_percent", d.HighMissingPercent)
	v.SetDefault("workers", 0)
	v.SetDefault("decimal_separator", "")
	v.SetDefault("score.missing_per_percent", w.MissingPerPercent)
	v.SetDefault("score.high_missing_per_column", w.HighMissingPerColumn)
	v.SetDefault("score.missing_cap", w.MissingCap)
	v.SetDefault("score.duplicate_per_percent", w.DuplicatePerPercent)
	v.SetDefault("score.duplicate_cap", w.DuplicateCap)
	v.SetDefault("score.inconsistent_per_column", w.InconsistentPerColumn)
	v.SetDefault("score.inconsistent_cap", w.InconsistentCap)
	v.SetDefault("score.constant_per_column", w.ConstantPerColumn)
	v.SetDefault("score.constant_cap", w.ConstantCap)
	v.SetDefault("score.parsing_per_percent", w.ParsingPerPercent)
	v.SetDefault("score.parsing_cap", w.ParsingCap)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("fetch_token", "")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("fetch_allow_hosts", "")
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A missing config file is not an
// error; a malformed one is.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// FetchHosts splits FetchAllowHosts into trimmed, non-empty entries.
func (c *Global) FetchHosts() []string {
	var out []string
	for _, h := range strings.Split(c.FetchAllowHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// AnalysisOptions maps the configuration onto pipeline options.
func (c *Global) AnalysisOptions(log logrus.FieldLogger) analysis.Options {
	opt := analysis.DefaultOptions()
	opt.SampleSize = c.SampleSize
	opt.TypeThreshold = c.TypeThreshold
	opt.IDUniqueRatio = c.IDUniqueRatio
	opt.CategoricalMaxRatio = c.CategoricalMaxRatio
	opt.CategoricalMaxDistinct = c.CategoricalMaxDistinct
	opt.TopK = c.TopK
	opt.MaxOutlierSamples = c.MaxOutlierSamples
	opt.HighMissingPercent = c.HighMissingPercent
	opt.Workers = c.Workers
	switch c.DecimalSeparator {
	case ",":
		opt.DecimalSeparator, opt.ThousandsSeparator = ',', '.'
	case ".":
		opt.DecimalSeparator, opt.ThousandsSeparator = '.', ','
	}
	opt.Weights = analysis.ScoreWeights{
		MissingPerPercent:     c.Score.MissingPerPercent,
		HighMissingPerColumn:  c.Score.HighMissingPerColumn,
		MissingCap:            c.Score.MissingCap,
		DuplicatePerPercent:   c.Score.DuplicatePerPercent,
		DuplicateCap:          c.Score.DuplicateCap,
		InconsistentPerColumn: c.Score.InconsistentPerColumn,
		InconsistentCap:       c.Score.InconsistentCap,
		ConstantPerColumn:     c.Score.ConstantPerColumn,
		ConstantCap:           c.Score.ConstantCap,
		ParsingPerPercent:     c.Score.ParsingPerPercent,
		ParsingCap:            c.Score.ParsingCap,
	}
	opt.Logger = log
	return opt
}

type field struct {
	get func(*Global) string
	set func(*Global, string) error
}

func intField(p func(*Global) *int, min int) field {
	return field{
		get: func(c *Global) string { return strconv.Itoa(*p(c)) },
		set: func(c *Global, s string) error {
			i, err := strconv.Atoi(s)
			if err != nil || i < min {
				return fmt.Errorf("invalid int %q (min %d)", s, min)
			}
			*p(c) = i
			return nil
		},
	}
}

func floatField(p func(*Global) *float64, min, max float64) field {
	return field{
		get: func(c *Global) string { return strconv.FormatFloat(*p(c), 'f', -1, 64) },
		set: func(c *Global, s string) error {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || f < min || f > max {
				return fmt.Errorf("invalid float %q (range %g..%g)", s, min, max)
			}
			*p(c) = f
			return nil
		},
	}
}

func stringField(p func(*Global) *string, allowed ...string) field {
	return field{
		get: func(c *Global) string { return *p(c) },
		set: func(c *Global, s string) error {
			if len(allowed) > 0 {
				ok := false
				for _, a := range allowed {
					ok = ok || a == s
				}
				if !ok {
					return fmt.Errorf("invalid value %q (use one of %s)", s, strings.Join(allowed, ", "))
				}
			}
			*p(c) = s
			return nil
		},
	}
}

var fields = map[string]field{
	"log_level":                     stringField(func(c *Global) *string { return &c.LogLevel }, "trace", "debug", "info", "warn", "error"),
	"log_format":                    stringField(func(c *Global) *string { return &c.LogFormat }, "text", "json"),
	"sample_size":                   intField(func(c *Global) *int { return &c.SampleSize }, 1),
	"type_threshold":                floatField(func(c *Global) *float64 { return &c.TypeThreshold }, 0.01, 1),
	"id_unique_ratio":               floatField(func(c *Global) *float64 { return &c.IDUniqueRatio }, 0.01, 1),
	"categorical_max_ratio":         floatField(func(c *Global) *float64 { return &c.CategoricalMaxRatio }, 0.01, 1),
	"categorical_max_distinct":      intField(func(c *Global) *int { return &c.CategoricalMaxDistinct }, 1),
	"top_k":                         intField(func(c *Global) *int { return &c.TopK }, 1),
	"max_outlier_samples":           intField(func(c *Global) *int { return &c.MaxOutlierSamples }, -1),
	"high_missing_percent":          floatField(func(c *Global) *float64 { return &c.HighMissingPercent }, 0.01, 100),
	"workers":                       intField(func(c *Global) *int { return &c.Workers }, 0),
	"decimal_separator":             stringField(func(c *Global) *string { return &c.DecimalSeparator }, "", ".", ","),
	"score.missing_per_percent":     floatField(func(c *Global) *float64 { return &c.Score.MissingPerPercent }, 0, 100),
	"score.high_missing_per_column": floatField(func(c *Global) *float64 { return &c.Score.HighMissingPerColumn }, 0, 100),
	"score.missing_cap":             floatField(func(c *Global) *float64 { return &c.Score.MissingCap }, 0, 100),
	"score.duplicate_per_percent":   floatField(func(c *Global) *float64 { return &c.Score.DuplicatePerPercent }, 0, 100),
	"score.duplicate_cap":           floatField(func(c *Global) *float64 { return &c.Score.DuplicateCap }, 0, 100),
	"score.inconsistent_per_column": floatField(func(c *Global) *float64 { return &c.Score.InconsistentPerColumn }, 0, 100),
	"score.inconsistent_cap":        floatField(func(c *Global) *float64 { return &c.Score.InconsistentCap }, 0, 100),
	"score.constant_per_column":     floatField(func(c *Global) *float64 { return &c.Score.ConstantPerColumn }, 0, 100),
	"score.constant_cap":            floatField(func(c *Global) *float64 { return &c.Score.ConstantCap }, 0, 100),
	"score.parsing_per_percent":     floatField(func(c *Global) *float64 { return &c.Score.ParsingPerPercent }, 0, 100),
	"score.parsing_cap":             floatField(func(c *Global) *float64 { return &c.Score.ParsingCap }, 0, 100),
	"http_timeout_sec":              intField(func(c *Global) *int { return &c.HTTPTimeoutSec }, 1),
	"fetch_token":                   stringField(func(c *Global) *string { return &c.FetchToken }),
	"server_addr":                   stringField(func(c *Global) *string { return &c.ServerAddr }),
	"max_upload_mb":                 intField(func(c *Global) *int { return &c.MaxUploadMB }, 1),
	"fetch_allow_hosts":             stringField(func(c *Global) *string { return &c.FetchAllowHosts }),
}

// Keys returns every settable key, sorted.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the string form of key.
func (c *Global) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown key: %s", key)
	}
	return f.get(c), nil
}

// Set validates and assigns key from its string form.
func (c *Global) Set(key, val string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := f.set(c, val); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
