package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
)

// Format names a supported source encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Reader decodes one source format.
type Reader interface {
	Format() Format
	CanRead(filename string) bool
	Sheets(src Source) ([]string, error)
	Read(src Source, sheetIndex int) (*dataset.Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(delimitedReader{format: FormatCSV, comma: 0, exts: []string{".csv", ".txt"}})
	Register(delimitedReader{format: FormatTSV, comma: '\t', exts: []string{".tsv", ".tab"}})
	Register(xlsxReader{})
	Register(jsonReader{})
}

// DetectFormat picks a format from the file extension.
func DetectFormat(filename string) (Format, bool) {
	for _, r := range registry {
		if r.CanRead(filename) {
			return r.Format(), true
		}
	}
	return "", false
}

func readerFor(src Source) (Reader, error) {
	f := src.Format
	if f == "" {
		var ok bool
		if f, ok = DetectFormat(src.Name); !ok {
			return nil, &SourceError{
				Code:   CodeUnsupportedFormat,
				Source: src.Name,
				Op:     "detect format",
				Err:    fmt.Errorf("unrecognized extension %q", filepath.Ext(src.Name)),
			}
		}
	}
	for _, r := range registry {
		if r.Format() == f {
			return r, nil
		}
	}
	return nil, &SourceError{Code: CodeUnsupportedFormat, Source: src.Name, Op: "detect format", Err: fmt.Errorf("unsupported format %q", f)}
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
