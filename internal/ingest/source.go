package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
)

// Source is raw input plus the hints needed to decode it.
// Sheet (by name) wins over the sheetIndex passed to ParseRows.
type Source struct {
	Name      string
	Format    Format
	Data      []byte
	Delimiter rune
	Sheet     string
	DataPath  string
}

// FetchOptions configures Fetch.
type FetchOptions struct {
	Timeout  time.Duration
	Token    string
	Headers  map[string]string
	DataPath string
	Client   *http.Client
	MaxBytes int64
}

const defaultMaxFetchBytes = 256 << 20

// Open reads a local file into a Source, detecting its format by extension.
func Open(p string) (Source, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Source{}, unreadable(p, "read file", err)
	}
	src := Source{Name: filepath.Base(p), Data: data}
	if f, ok := DetectFormat(p); ok {
		src.Format = f
	}
	return src, nil
}

// Fetch downloads a dataset over HTTP. The format comes from the response
// Content-Type, falling back to the URL path extension.
func Fetch(ctx context.Context, rawURL string, opt FetchOptions) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Source{}, unreadable(rawURL, "parse url", fmt.Errorf("not an http(s) URL"))
	}
	client := opt.Client
	if client == nil {
		to := opt.Timeout
		if to <= 0 {
			to = 60 * time.Second
		}
		client = &http.Client{Timeout: to}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Source{}, unreadable(rawURL, "build request", err)
	}
	req.Header.Set("Accept", "application/json, text/csv, */*")
	if opt.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opt.Token)
	}
	for k, v := range opt.Headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Source{}, unreadable(rawURL, "fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Source{}, unreadable(rawURL, "fetch", fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(b))))
	}
	limit := opt.MaxBytes
	if limit <= 0 {
		limit = defaultMaxFetchBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Source{}, unreadable(rawURL, "read body", err)
	}
	if int64(len(data)) > limit {
		return Source{}, unreadable(rawURL, "read body", fmt.Errorf("response exceeds %d bytes", limit))
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = u.Host
	}
	src := Source{Name: name, Data: data, DataPath: opt.DataPath}
	src.Format = formatFromContentType(resp.Header.Get("Content-Type"))
	if src.Format == "" {
		if f, ok := DetectFormat(u.Path); ok {
			src.Format = f
		} else {
			src.Format = FormatJSON
		}
	}
	return src, nil
}

func formatFromContentType(ct string) Format {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return FormatJSON
	case mt == "text/csv":
		return FormatCSV
	case mt == "text/tab-separated-values":
		return FormatTSV
	case mt == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX
	}
	return ""
}

// ListSheets returns the sheet names of a workbook source without reading
// its rows. Delimited and JSON sources expose one sheet named after the source.
func ListSheets(src Source) ([]string, error) {
	r, err := readerFor(src)
	if err != nil {
		return nil, err
	}
	return r.Sheets(src)
}

// ParseRows decodes src into raw, untyped rows. sheetIndex is 0-based and
// only used by workbook sources when src.Sheet is empty.
func ParseRows(src Source, sheetIndex int) (*dataset.Table, error) {
	r, err := readerFor(src)
	if err != nil {
		return nil, err
	}
	return r.Read(src, sheetIndex)
}

func singleSheet(src Source) []string {
	base := strings.TrimSuffix(src.Name, filepath.Ext(src.Name))
	if base == "" {
		base = "Sheet1"
	}
	return []string{base}
}
