package ingest

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/tidwall/gjson"
)

type jsonReader struct{}

func (jsonReader) Format() Format { return FormatJSON }

func (jsonReader) CanRead(filename string) bool {
	return hasExt(filename, ".json", ".jsonl", ".ndjson")
}

func (jsonReader) Sheets(src Source) ([]string, error) { return singleSheet(src), nil }

// Read accepts a JSON array of objects, a single object, or JSON Lines.
// DataPath is a gjson path (e.g. "data.items") to the records.
func (jsonReader) Read(src Source, _ int) (*dataset.Table, error) {
	data := bytes.TrimSpace(src.Data)
	if len(data) == 0 {
		return &dataset.Table{}, nil
	}
	var root gjson.Result
	lineErrors := 0
	if gjson.ValidBytes(data) {
		root = gjson.ParseBytes(data)
	} else {
		var ok bool
		root, lineErrors, ok = jsonLines(data)
		if !ok {
			return nil, unreadable(src.Name, "decode json", fmt.Errorf("malformed JSON document"))
		}
	}
	if src.DataPath != "" {
		root = root.Get(src.DataPath)
		if !root.Exists() {
			return nil, unreadable(src.Name, "decode json", fmt.Errorf("data path %q not found", src.DataPath))
		}
	}
	if !root.IsArray() && !root.IsObject() {
		return nil, unreadable(src.Name, "decode json", fmt.Errorf("expected array or object of records, got %s", root.Type))
	}
	t := dataset.DecodeRecords(root)
	t.ParseErrors += lineErrors
	return t, nil
}

// jsonLines wraps valid newline-delimited documents into one array, counting
// invalid lines. ok is false when no line is valid JSON.
func jsonLines(data []byte) (gjson.Result, int, bool) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	valid, invalid := 0, 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			invalid++
			continue
		}
		if valid > 0 {
			buf.WriteByte(',')
		}
		buf.Write(line)
		valid++
	}
	buf.WriteByte(']')
	if valid == 0 {
		return gjson.Result{}, invalid, false
	}
	return gjson.ParseBytes(buf.Bytes()), invalid, true
}
