package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseRowsCSV(t *testing.T) {
	data := "\ufeffid; name ;;name\n1;Ann;x;a\n2;Bob\n3;\"Cy;d\";z;b;EXTRA\n4;Dee;;c;\n"
	tb, err := ParseRows(Source{Name: "people.csv", Data: []byte(data)}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "Column_3", "name_2"}, tb.Columns)
	require.Len(t, tb.Rows, 3)
	assert.Equal(t, 1, tb.ParseErrors, "row with non-empty extra field is skipped")
	assert.Equal(t, "Bob", tb.Rows[1][1].Text())
	assert.True(t, tb.Rows[1][3].IsMissing(), "short rows are padded")
	assert.Equal(t, "c", tb.Rows[2][3].Text(), "blank trailing field is tolerated")
}

func TestParseRowsCountsMalformedQuotes(t *testing.T) {
	data := "a,b\n1,2\n3,\"bad\"quote\n5,6\n"
	tb, err := ParseRows(Source{Name: "q.csv", Data: []byte(data)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, tb.ParseErrors)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "6", tb.Rows[1][1].Text())
}

func TestParseRowsEmptyInput(t *testing.T) {
	tb, err := ParseRows(Source{Name: "empty.csv", Data: nil}, 0)
	require.NoError(t, err)
	assert.Empty(t, tb.Columns)
	assert.Zero(t, tb.Len())
}

func TestSniffDelimiter(t *testing.T) {
	cases := map[string]rune{
		"a,b,c\n":          ',',
		"a;b;c\n1,5;2;3\n": ';',
		"a\tb\n":           '\t',
		"a|b|c\n":          '|',
		"\"x;y\",b\n":      ',',
		"single\n":         ',',
	}
	for in, want := range cases {
		assert.Equalf(t, want, SniffDelimiter([]byte(in)), "input %q", in)
	}
}

func TestTSVByExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.tsv")
	require.NoError(t, os.WriteFile(p, []byte("x\ty\n1,5\t2\n"), 0o644))
	src, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, FormatTSV, src.Format)
	tb, err := ParseRows(src, 0)
	require.NoError(t, err)
	assert.Equal(t, "1,5", tb.Rows[0][0].Text())
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := ParseRows(Source{Name: "notes.docx", Data: []byte("x")}, 0)
	require.Error(t, err)
	var se *SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeUnsupportedFormat, se.Code)
	assert.True(t, errors.Is(err, ErrSourceUnreadable))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func writeWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Sales"))
	require.NoError(t, f.SetSheetRow("Sales", "A1", &[]any{"region", "amount"}))
	require.NoError(t, f.SetSheetRow("Sales", "A2", &[]any{"north", 10}))
	require.NoError(t, f.SetSheetRow("Sales", "A3", &[]any{"south", 12.5}))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestXLSXSheetsAndRows(t *testing.T) {
	src := Source{Name: "book.xlsx", Data: writeWorkbook(t)}

	sheets, err := ListSheets(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales", "Empty"}, sheets)

	tb, err := ParseRows(src, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "amount"}, tb.Columns)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "12.5", tb.Rows[1][1].Text())

	empty, err := ParseRows(src, 1)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())

	_, err = ParseRows(src, 5)
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeSheetNotFound, se.Code)

	src.Sheet = "Missing"
	_, err = ParseRows(src, 0)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeSheetNotFound, se.Code)
}

func TestXLSXCorruptContainer(t *testing.T) {
	_, err := ListSheets(Source{Name: "broken.xlsx", Data: []byte("not a zip")})
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeSourceUnreadable, se.Code)
}

func TestJSONRecords(t *testing.T) {
	doc := `{"meta":{"n":2},"data":{"items":[{"id":1,"geo":{"lat":1.5}},{"id":2,"note":"x"}]}}`
	tb, err := ParseRows(Source{Name: "api.json", Data: []byte(doc), DataPath: "data.items"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "geo.lat", "note"}, tb.Columns)
	assert.Equal(t, 2, tb.Len())

	_, err = ParseRows(Source{Name: "api.json", Data: []byte(doc), DataPath: "data.nothing"}, 0)
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	_, err = ParseRows(Source{Name: "bad.json", Data: []byte(`{"a":`)}, 0)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestJSONLines(t *testing.T) {
	doc := "{\"a\":1}\n{\"a\":2,\"b\":\"y\"}\n{broken\n"
	tb, err := ParseRows(Source{Name: "events.ndjson", Data: []byte(doc)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Len())
	assert.Equal(t, 1, tb.ParseErrors)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rows":
			if r.Header.Get("Authorization") != "Bearer s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`{"results":[{"k":"a"},{"k":"b"}]}`))
		case "/export.csv":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("k\na\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	src, err := Fetch(ctx, srv.URL+"/rows", FetchOptions{Token: "s3cret", DataPath: "results"})
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, src.Format)
	tb, err := ParseRows(src, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Len())

	src, err = Fetch(ctx, srv.URL+"/export.csv", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, src.Format)

	_, err = Fetch(ctx, srv.URL+"/rows", FetchOptions{})
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	_, err = Fetch(ctx, "ftp://example.com/x.csv", FetchOptions{})
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}
