package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	d := analysis.DefaultOptions()
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, d.SampleSize, c.SampleSize)
	assert.Equal(t, d.TopK, c.TopK)
	assert.Equal(t, d.Weights.MissingCap, c.Score.MissingCap)
	assert.Equal(t, ":8080", c.ServerAddr)
	assert.Equal(t, 32, c.MaxUploadMB)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "top_k: 5\nsample_size: 200\nscore:\n  missing_cap: 30\nlog_format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("TABLELENS_SAMPLE_SIZE", "50")
	t.Setenv("TABLELENS_SCORE_DUPLICATE_CAP", "7")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.TopK)
	assert.Equal(t, 50, c.SampleSize, "env wins over file")
	assert.Equal(t, 30.0, c.Score.MissingCap)
	assert.Equal(t, 7.0, c.Score.DuplicateCap)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: [\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("top_k", "12"))
	require.NoError(t, c.Set("decimal_separator", ","))
	require.NoError(t, c.Set("score.parsing_cap", "5"))
	require.NoError(t, Save(c, path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, back.TopK)
	assert.Equal(t, ",", back.DecimalSeparator)
	assert.Equal(t, 5.0, back.Score.ParsingCap)
}

func TestSetValidates(t *testing.T) {
	c := &Global{}
	cases := []struct{ key, val string }{
		{"top_k", "zero"},
		{"top_k", "0"},
		{"type_threshold", "1.5"},
		{"log_format", "xml"},
		{"decimal_separator", ";"},
		{"nope", "1"},
	}
	for _, tc := range cases {
		assert.Errorf(t, c.Set(tc.key, tc.val), "%s=%s", tc.key, tc.val)
	}
	require.NoError(t, c.Set("log_level", "debug"))
	got, err := c.Get("log_level")
	require.NoError(t, err)
	assert.Equal(t, "debug", got)
	assert.Contains(t, Keys(), "score.missing_cap")
}

func TestAnalysisOptions(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	c.TopK = 3
	c.DecimalSeparator = ","
	log := logrus.New()
	opt := c.AnalysisOptions(log)
	assert.Equal(t, 3, opt.TopK)
	assert.Equal(t, ',', opt.DecimalSeparator)
	assert.Equal(t, '.', opt.ThousandsSeparator)
	assert.Equal(t, analysis.DefaultScoreWeights(), opt.Weights)
	assert.Equal(t, log, opt.Logger)
}

func TestFetchHosts(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, c.FetchHosts())

	require.NoError(t, c.Set("fetch_allow_hosts", " data.example.com, ,.cdn.example.org "))
	assert.Equal(t, []string{"data.example.com", ".cdn.example.org"}, c.FetchHosts())
}

func TestMaxOutlierSamplesAcceptsDisable(t *testing.T) {
	c := &Global{}
	require.NoError(t, c.Set("max_outlier_samples", "-1"))
	assert.Error(t, c.Set("max_outlier_samples", "-2"))
	assert.Equal(t, -1, c.AnalysisOptions(nil).MaxOutlierSamples)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TABLELENS_TOP_K=9\n"), 0o644))
	t.Setenv("TABLELENS_TOP_K", "")
	require.NoError(t, os.Unsetenv("TABLELENS_TOP_K"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9, c.TopK)
}
