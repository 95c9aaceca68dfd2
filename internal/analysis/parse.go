package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "null": {}, "nan": {}, "nil": {}, "#n/a": {},
}

// isMissingText reports whether a trimmed cell counts as a missing value.
func isMissingText(s string) bool {
	_, ok := missingTokens[strings.ToLower(s)]
	return ok
}

// Numeric notation tags used for inconsistent-format detection.
const (
	fmtPlain        = "plain"
	fmtDecimalComma = "decimal-comma"
	fmtCurrency     = "currency"
	fmtPercent      = "percent"
	fmtAccounting   = "accounting"
	fmtScientific   = "scientific"
)

var currencySymbols = []string{"US$", "$", "€", "£", "¥", "₹", "USD", "EUR", "GBP", "JPY", "CHF"}

// parseNumber parses human-formatted numbers: thousands separators, decimal
// commas, currency symbols/codes, trailing percent and accounting negatives.
// Integers with leading zeros ("007") are codes, not numbers.
// The second result tags the notation.
func parseNumber(s string, opt Options) (float64, string, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if raw == "" {
		return 0, "", false
	}
	tag := fmtPlain
	neg := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		neg = true
		tag = fmtAccounting
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	raw, sign := stripSign(raw)
	for _, sym := range currencySymbols {
		if strings.HasPrefix(raw, sym) {
			raw = strings.TrimSpace(strings.TrimPrefix(raw, sym))
			tag = fmtCurrency
			break
		}
		if strings.HasSuffix(raw, sym) {
			raw = strings.TrimSpace(strings.TrimSuffix(raw, sym))
			tag = fmtCurrency
			break
		}
	}
	if sign == 0 {
		raw, sign = stripSign(raw)
	}
	if strings.HasSuffix(raw, "%") {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
		tag = fmtPercent
	}
	if raw == "" {
		return 0, "", false
	}
	for _, r := range raw {
		if !strings.ContainsRune("0123456789.,eE+- '", r) {
			return 0, "", false
		}
	}
	if len(raw) > 1 && raw[0] == '0' && isDigits(raw) {
		return 0, "", false
	}
	if strings.ContainsAny(raw, "eE") && tag == fmtPlain {
		tag = fmtScientific
	}

	dec, thou := decimalSeparators(raw, opt)
	if thou != 0 {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, "'", "")
	if dec == ',' {
		raw = strings.ReplaceAll(raw, ",", ".")
		if tag == fmtPlain {
			tag = fmtDecimalComma
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "", false
	}
	if neg || sign == '-' {
		f = -f
	}
	return f, tag, true
}

func stripSign(s string) (string, rune) {
	if s == "" {
		return s, 0
	}
	switch s[0] {
	case '-':
		return strings.TrimSpace(s[1:]), '-'
	case '+':
		return strings.TrimSpace(s[1:]), '+'
	}
	return s, 0
}

// decimalSeparators decides which of ',' and '.' is the decimal mark in raw.
// A lone comma followed by exactly three digits is read as grouping.
func decimalSeparators(raw string, opt Options) (dec, thou rune) {
	if opt.DecimalSeparator != 0 {
		dec = opt.DecimalSeparator
		thou = opt.ThousandsSeparator
		if thou == 0 {
			thou = ','
			if dec == ',' {
				thou = '.'
			}
		}
		return dec, thou
	}
	c := strings.Count(raw, ",")
	d := strings.Count(raw, ".")
	switch {
	case c > 0 && d > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			return ',', '.'
		}
		return '.', ','
	case c > 1:
		return '.', ','
	case c == 1:
		i := strings.Index(raw, ",")
		if len(raw)-i-1 == 3 && i > 0 && i <= 3 && isDigits(raw[:i]) && raw[0] != '0' {
			return '.', ','
		}
		return ',', 0
	case d > 1:
		return ',', '.'
	}
	return '.', 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// dateLayouts are tried in order; earlier entries win ties when choosing a
// column's dominant layout.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"2/1/2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"02.01.2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// looksDateish rejects values that can never be dates under dateLayouts,
// including bare years and unix timestamps.
func looksDateish(s string) bool {
	if len(s) < 6 || len(s) > 40 || isDigits(s) {
		return false
	}
	return strings.ContainsAny(s, "0123456789")
}

// parseDate tries preferred first, then every known layout.
func parseDate(s, preferred string) (time.Time, string, bool) {
	if !looksDateish(s) {
		return time.Time{}, "", false
	}
	if preferred != "" {
		if t, err := time.Parse(preferred, s); err == nil {
			return t, preferred, true
		}
	}
	for _, l := range dateLayouts {
		if l == preferred {
			continue
		}
		if t, err := time.Parse(l, s); err == nil {
			return t, l, true
		}
	}
	return time.Time{}, "", false
}

// dominantLayout picks the layout that parses the most values. Ambiguous
// values such as 03/04/2024 count for every layout that accepts them, so a
// single 13/04/2024 settles day-first for the whole column.
func dominantLayout(vals []string) string {
	counts := make([]int, len(dateLayouts))
	for _, v := range vals {
		if !looksDateish(v) {
			continue
		}
		for i, l := range dateLayouts {
			if _, err := time.Parse(l, v); err == nil {
				counts[i]++
			}
		}
	}
	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return dateLayouts[best]
}

const (
	isoDate     = "2006-01-02"
	isoDateTime = time.RFC3339
)

// parseCanonical reads a value produced by the cleaner.
func parseCanonical(s string) (time.Time, bool) {
	if t, err := time.Parse(isoDate, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(isoDateTime, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

var boolTokens = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "y": {}, "n": {}, "t": {}, "f": {},
}

func isBoolText(s string) bool {
	_, ok := boolTokens[strings.ToLower(s)]
	return ok
}

var codePattern = regexp.MustCompile(`^[A-Za-z]{0,8}[-_#/.]?[0-9]{1,}[A-Za-z]?$`)

// looksLikeID accepts UUIDs, zero-padded integer codes and prefixed codes
// such as INV-0042 or user_17.
func looksLikeID(s string) bool {
	if len(s) == 36 || len(s) == 32 || len(s) == 38 {
		if _, err := uuid.Parse(s); err == nil {
			return true
		}
	}
	if strings.ContainsAny(s, " \t") || len(s) > 64 {
		return false
	}
	if isDigits(s) {
		return true
	}
	return codePattern.MatchString(s)
}

// variantKey folds letter case and inner whitespace; spellings sharing a key
// are variants of one category.
func variantKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
