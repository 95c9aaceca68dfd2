package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	opt := DefaultOptions()
	cases := []struct {
		in   string
		want float64
		tag  string
	}{
		{"42", 42, fmtPlain},
		{"-3", -3, fmtPlain},
		{"1,234.5", 1234.5, fmtPlain},
		{"1,000", 1000, fmtPlain},
		{"12 345", 12345, fmtPlain},
		{"1.234,5", 1234.5, fmtDecimalComma},
		{"1,5", 1.5, fmtDecimalComma},
		{"0,500", 0.5, fmtDecimalComma},
		{"1.234.567", 1234567, fmtDecimalComma},
		{"$1,200", 1200, fmtCurrency},
		{"€ 3,50", 3.5, fmtCurrency},
		{"-$5", -5, fmtCurrency},
		{"(42)", -42, fmtAccounting},
		{"12%", 12, fmtPercent},
		{"1e3", 1000, fmtScientific},
		{"0", 0, fmtPlain},
		{"0.25", 0.25, fmtPlain},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, tag, ok := parseNumber(tc.in, opt)
			require.True(t, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.Equal(t, tc.tag, tag)
		})
	}

	for _, bad := range []string{"", "007", "abc", "Inf", "NaN", "1-2", "12abc", "2024-01-05", "e"} {
		_, _, ok := parseNumber(bad, opt)
		assert.Falsef(t, ok, "%q should not parse", bad)
	}
}

func TestParseNumberForcedLocale(t *testing.T) {
	opt := DefaultOptions()
	opt.DecimalSeparator = ','
	got, _, ok := parseNumber("1.000", opt)
	require.True(t, ok)
	assert.Equal(t, 1000.0, got)
}

func TestDominantLayoutPrefersEvidence(t *testing.T) {
	assert.Equal(t, "02/01/2006", dominantLayout([]string{"03/04/2024", "13/04/2024"}))
	assert.Equal(t, "01/02/2006", dominantLayout([]string{"04/13/2024", "04/14/2024", "05/01/2024"}))
	assert.Equal(t, "2006-01-02", dominantLayout([]string{"2024-01-05", "2024-02-01"}))
	assert.Equal(t, "", dominantLayout([]string{"2024", "hello"}))

	tm, layout, ok := parseDate("03/04/2024", "02/01/2006")
	require.True(t, ok)
	assert.Equal(t, "02/01/2006", layout)
	assert.Equal(t, time.April, tm.Month())
}

func TestLooksLikeID(t *testing.T) {
	for _, s := range []string{"3f2b8c4e-1d2a-4b7e-9c1f-0a1b2c3d4e5f", "INV-0042", "user_17", "0001", "A123"} {
		assert.Truef(t, looksLikeID(s), "%q", s)
	}
	for _, s := range []string{"hello world", "Paris", "a-b-c"} {
		assert.Falsef(t, looksLikeID(s), "%q", s)
	}
}

func TestSplitUnits(t *testing.T) {
	cases := map[string]string{
		"Concentration (g/L)": "g/L",
		"Mass [mg/L]":         "mg/L",
		"temp_°C":             "°C",
		"price":               "",
	}
	for in, want := range cases {
		_, unit := splitUnits(in)
		assert.Equalf(t, want, unit, "header %q", in)
	}
}
