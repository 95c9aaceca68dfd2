package export

import (
	"testing"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/KaramelBytes/tablelens-cli/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *dataset.Table {
	t := dataset.New([]string{"city", "sales", "note"})
	t.Append(dataset.Row{dataset.String("Paris"), dataset.Number(1200), dataset.String(`said "hi", left`)})
	t.Append(dataset.Row{dataset.String("Rome"), dataset.Number(12.5), dataset.Missing()})
	t.Append(dataset.Row{dataset.String("Oslo"), dataset.Missing(), dataset.Bool(true)})
	return t
}

func TestCSV(t *testing.T) {
	b, err := CSV(sample())
	require.NoError(t, err)
	want := "city,sales,note\n" +
		"Paris,1200,\"said \"\"hi\"\", left\"\n" +
		"Rome,12.5,\n" +
		"Oslo,,true\n"
	assert.Equal(t, want, string(b))
}

func TestCSVRoundTrip(t *testing.T) {
	b, err := CSV(sample())
	require.NoError(t, err)
	back, err := ingest.ParseRows(ingest.Source{Name: "out.csv", Format: ingest.FormatCSV, Data: b}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"city", "sales", "note"}, back.Columns)
	require.Equal(t, 3, back.Len())
	assert.Equal(t, 0, back.ParseErrors)
	assert.Equal(t, "said \"hi\", left", back.Rows[0][2].Text())
	assert.True(t, back.Rows[1][2].IsMissing())
	assert.True(t, back.Rows[2][1].IsMissing())
	assert.Equal(t, "12.5", back.Rows[1][1].Text())
}

func TestWorkbookRoundTrip(t *testing.T) {
	b, err := Workbook(sample())
	require.NoError(t, err)
	src := ingest.Source{Name: "out.xlsx", Format: ingest.FormatXLSX, Data: b}

	sheets, err := ingest.ListSheets(src)
	require.NoError(t, err)
	assert.Equal(t, []string{SheetName}, sheets)

	back, err := ingest.ParseRows(src, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "sales", "note"}, back.Columns)
	require.Equal(t, 3, back.Len())
	assert.Equal(t, "Paris", back.Rows[0][0].Text())
	assert.Equal(t, "1200", back.Rows[0][1].Text())
	assert.True(t, back.Rows[1][2].IsMissing())
}

func TestEmptyTable(t *testing.T) {
	b, err := CSV(dataset.New([]string{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(b))

	b, err = Workbook(dataset.New([]string{"a"}))
	require.NoError(t, err)
	back, err := ingest.ParseRows(ingest.Source{Name: "x.xlsx", Format: ingest.FormatXLSX, Data: b}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, back.Columns)
	assert.Equal(t, 0, back.Len())
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"csv": FormatCSV, "XLSX": FormatXLSX, "out/clean.xlsx": FormatXLSX, "a.CSV": FormatCSV}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("parquet")
	assert.Error(t, err)
}
