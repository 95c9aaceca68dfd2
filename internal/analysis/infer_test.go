package analysis

import (
	"fmt"
	"testing"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableOf builds a table from string cells; "" becomes a missing value.
func tableOf(columns []string, rows ...[]string) *dataset.Table {
	t := dataset.New(columns)
	for _, r := range rows {
		row := make(dataset.Row, len(r))
		for i, s := range r {
			if s == "" {
				row[i] = dataset.Missing()
			} else {
				row[i] = dataset.String(s)
			}
		}
		t.Append(row)
	}
	return t
}

// column builds a one-column table.
func column(name string, vals ...string) *dataset.Table {
	rows := make([][]string, len(vals))
	for i, v := range vals {
		rows[i] = []string{v}
	}
	return tableOf([]string{name}, rows...)
}

func TestInferTypes(t *testing.T) {
	nineAndOne := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "oops"}
	var codes, uuids, sentences []string
	for i := 1; i <= 10; i++ {
		codes = append(codes, fmt.Sprintf("%03d", i))
		uuids = append(uuids, fmt.Sprintf("3f2b8c4e-1d2a-4b7e-9c1f-0a1b2c3d4e%02d", i))
		sentences = append(sentences, fmt.Sprintf("note number %d about the order", i))
	}

	cases := []struct {
		name string
		vals []string
		want ColumnType
	}{
		{"iso dates", []string{"2024-01-01", "2024-02-15", "2024-03-31"}, TypeDatetime},
		{"day first dates", []string{"03/04/2024", "13/04/2024", "28/02/2024"}, TypeDatetime},
		{"timestamps", []string{"2024-01-01T10:00:00Z", "2024-01-02T11:30:00Z"}, TypeDatetime},
		{"plain numbers", []string{"1", "2.5", "3,000"}, TypeNumeric},
		{"currency", []string{"$10", "$12.50", "$7"}, TypeNumeric},
		{"eu decimals", []string{"1,5", "2,25", "3,75"}, TypeNumeric},
		{"mostly numbers", nineAndOne, TypeNumeric},
		{"bare years", []string{"2020", "2021", "2022"}, TypeNumeric},
		{"zero padded codes", codes, TypeID},
		{"uuids", uuids, TypeID},
		{"booleans", []string{"yes", "no"}, TypeCategorical},
		{"categories", []string{"red", "blue", "red", "red", "blue", "green"}, TypeCategorical},
		{"free text", sentences, TypeText},
		{"all missing", []string{"", "NA", "null"}, TypeText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			types := InferTypes(column("c", tc.vals...), DefaultOptions())
			require.Len(t, types, 1)
			assert.Equal(t, tc.want, types[0])
		})
	}
}

func TestInferTypesKeepsColumnOrder(t *testing.T) {
	tbl := tableOf([]string{"when", "qty", "label"},
		[]string{"2024-01-01", "1", "a b"},
		[]string{"2024-01-02", "2", "c d"},
		[]string{"2024-01-03", "3", "e f"},
	)
	assert.Equal(t, []ColumnType{TypeDatetime, TypeNumeric, TypeText}, InferTypes(tbl, DefaultOptions()))
}

func TestInferTypesJSONValues(t *testing.T) {
	tbl := dataset.New([]string{"n", "flag"})
	for i := 0; i < 4; i++ {
		tbl.Append(dataset.Row{dataset.Number(float64(i) / 2), dataset.Bool(i%2 == 0)})
	}
	assert.Equal(t, []ColumnType{TypeNumeric, TypeCategorical}, InferTypes(tbl, DefaultOptions()))
}

func TestSampleIndexes(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, sampleIndexes(3, 10))
	assert.Equal(t, []int{0, 2, 5, 7}, sampleIndexes(10, 4))
	assert.Empty(t, sampleIndexes(0, 10))
}
