package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/tablelens-cli/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, utils.EnsureParentDir(p))
	require.NoError(t, utils.SafeWriteFile(p, []byte("one")))
	require.NoError(t, utils.SafeWriteFile(p, []byte("two")))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
	_, err = os.Stat(p + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONToYAMLKeepsFieldNamesAndOrder(t *testing.T) {
	v := struct {
		RawRowCount int      `json:"rawRowCount"`
		Name        string   `json:"name"`
		Flag        string   `json:"flag"`
		Tags        []string `json:"tags"`
	}{3, "sales", "true", []string{"a", "b"}}

	out, err := utils.JSONToYAML(v)
	require.NoError(t, err)
	assert.Equal(t, "rawRowCount: 3\nname: sales\nflag: \"true\"\ntags:\n    - a\n    - b\n", string(out))
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.csv", "a.csv", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
	got := utils.ExpandInputs([]string{
		filepath.Join(dir, "*.csv"),
		filepath.Join(dir, "a.csv"),
		"https://example.com/data.csv",
		filepath.Join(dir, "missing.csv"),
	})
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.csv"),
		"https://example.com/data.csv",
	}, got)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	reserved := map[string]struct{}{}

	first := utils.UniquePath(dir, "metrics", ".analysis.json", reserved)
	assert.Equal(t, filepath.Join(dir, "metrics.analysis.json"), first)
	reserved[first] = struct{}{}

	second := utils.UniquePath(dir, "metrics", ".analysis.json", reserved)
	assert.Equal(t, filepath.Join(dir, "metrics__2.analysis.json"), second)

	require.NoError(t, os.WriteFile(second, nil, 0o644))
	third := utils.UniquePath(dir, "metrics", ".analysis.json", reserved)
	assert.Equal(t, filepath.Join(dir, "metrics__3.analysis.json"), third)
}
