package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// delimiters tried, in order of preference on ties, when sniffing.
var delimiters = []rune{',', ';', '\t', '|'}

type delimitedReader struct {
	format Format
	comma  rune
	exts   []string
}

func (d delimitedReader) Format() Format { return d.format }

func (d delimitedReader) CanRead(filename string) bool { return hasExt(filename, d.exts...) }

func (d delimitedReader) Sheets(src Source) ([]string, error) { return singleSheet(src), nil }

func (d delimitedReader) Read(src Source, _ int) (*dataset.Table, error) {
	// BOMOverride strips a UTF-8 BOM and transcodes UTF-16 input that carries one.
	text, err := io.ReadAll(transform.NewReader(bytes.NewReader(src.Data), unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, unreadable(src.Name, "decode text", err)
	}
	comma := src.Delimiter
	if comma == 0 {
		comma = d.comma
	}
	if comma == 0 {
		comma = SniffDelimiter(text)
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	var header []string
	parseErrors := 0
	for header == nil {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return &dataset.Table{}, nil
		}
		if err != nil {
			return nil, unreadable(src.Name, "read header", err)
		}
		if !blank(rec) {
			header = HeaderNames(rec)
		}
	}

	t := dataset.New(header)
	n := len(header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				parseErrors++
				continue
			}
			return nil, unreadable(src.Name, "read rows", err)
		}
		if len(rec) > n {
			if !blank(rec[n:]) {
				parseErrors++
				continue
			}
			rec = rec[:n]
		}
		row := make(dataset.Row, n)
		for i, cell := range rec {
			if cell == "" {
				continue
			}
			row[i] = dataset.String(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	t.ParseErrors = parseErrors
	return t, nil
}

// SniffDelimiter guesses the field separator from the first non-empty line,
// ignoring separators inside double quotes. It falls back to a comma.
func SniffDelimiter(text []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)
	var line string
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			line = sc.Text()
			break
		}
	}
	counts := map[rune]int{}
	inQuote := false
	for _, r := range line {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			counts[r]++
		}
	}
	best, bestN := ',', 0
	for _, d := range delimiters {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}

// HeaderNames trims raw header cells, names empty ones Column_N (1-based) and
// disambiguates duplicates with _2, _3 suffixes.
func HeaderNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := map[string]int{}
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column_%d", i+1)
		}
		base := name
		for seen[name] > 0 {
			seen[base]++
			name = fmt.Sprintf("%s_%d", base, seen[base])
		}
		seen[name]++
		out[i] = name
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
