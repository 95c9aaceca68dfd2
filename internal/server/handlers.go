package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/KaramelBytes/tablelens-cli/internal/export"
	"github.com/KaramelBytes/tablelens-cli/internal/ingest"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Error codes returned in the "code" field of error bodies, alongside the
// ingest codes.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternal        = "INTERNAL"
	CodeFetchForbidden  = "FETCH_FORBIDDEN"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

type fetchForbidden struct{ host string }

func (e fetchForbidden) Error() string {
	if e.host == "" {
		return "URL sources are disabled on this server"
	}
	return fmt.Sprintf("fetching from host %q is not allowed", e.host)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps ingest failures to 422, malformed requests to 400,
// disallowed fetch hosts to 403 and oversized bodies to 413.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		srcErr   *ingest.SourceError
		tooLarge *http.MaxBytesError
		bad      badRequest
		denied   fetchForbidden
	)
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error(), Code: CodeFetchForbidden})
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error(), Code: CodePayloadTooLarge})
	case errors.As(err, &srcErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: srcErr.Code})
	case errors.As(err, &bad):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: CodeBadRequest})
	default:
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: CodeInternal})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sourceRequest struct {
	URL        string `json:"url"`
	DataPath   string `json:"dataPath"`
	Format     string `json:"format"`
	Sheet      string `json:"sheet"`
	SheetIndex int    `json:"sheetIndex"`
	Delimiter  string `json:"delimiter"`
}

// readSource accepts a multipart upload in field "file", a JSON object with a
// "url" to fetch, or a raw CSV/TSV/JSON/XLSX body typed by its Content-Type.
// Hints (sheet, sheetIndex, delimiter, format, dataPath) come from form
// fields, the JSON body or the query string.
func (s *Server) readSource(w http.ResponseWriter, r *http.Request) (ingest.Source, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		src  ingest.Source
		req  sourceRequest
		data []byte
		err  error
	)
	switch {
	case mt == "multipart/form-data":
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return src, 0, err
			}
			return src, 0, badRequestf("parse multipart form: %v", err)
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			return src, 0, badRequestf("multipart field \"file\" is required")
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			return src, 0, err
		}
		src = ingest.Source{Name: hdr.Filename, Data: data}
		req = sourceRequest{
			DataPath:  r.FormValue("dataPath"),
			Format:    r.FormValue("format"),
			Sheet:     r.FormValue("sheet"),
			Delimiter: r.FormValue("delimiter"),
		}
		if v := r.FormValue("sheetIndex"); v != "" {
			if req.SheetIndex, err = strconv.Atoi(v); err != nil {
				return src, 0, badRequestf("sheetIndex must be an integer")
			}
		}

	case mt == "application/json":
		if data, err = io.ReadAll(r.Body); err != nil {
			return src, 0, err
		}
		if !gjson.GetBytes(data, "url").Exists() {
			src = ingest.Source{Name: "upload.json", Format: ingest.FormatJSON, Data: data}
			req.DataPath = r.URL.Query().Get("dataPath")
			break
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return src, 0, badRequestf("invalid JSON body: %v", err)
		}
		if err := s.allowFetch(req.URL); err != nil {
			return src, 0, err
		}
		src, err = ingest.Fetch(r.Context(), req.URL, ingest.FetchOptions{
			Timeout:  s.cfg.RequestTimeout,
			Token:    s.cfg.FetchToken,
			DataPath: req.DataPath,
			Client:   s.cfg.Client,
			MaxBytes: s.cfg.MaxUploadBytes,
		})
		if err != nil {
			return src, 0, err
		}

	default:
		if data, err = io.ReadAll(r.Body); err != nil {
			return src, 0, err
		}
		q := r.URL.Query()
		src = ingest.Source{Name: q.Get("filename"), Data: data}
		req = sourceRequest{
			DataPath:  q.Get("dataPath"),
			Format:    q.Get("format"),
			Sheet:     q.Get("sheet"),
			Delimiter: q.Get("delimiter"),
		}
		if src.Name == "" {
			src.Name = "upload"
		}
		if req.Format == "" {
			req.Format = string(formatFromMediaType(mt))
		}
	}

	if err := applyHints(&src, req); err != nil {
		return src, 0, err
	}
	if v := r.URL.Query().Get("sheetIndex"); v != "" {
		if req.SheetIndex, err = strconv.Atoi(v); err != nil {
			return src, 0, badRequestf("sheetIndex must be an integer")
		}
	}
	if req.SheetIndex < 0 {
		return src, 0, badRequestf("sheetIndex must be >= 0")
	}
	return src, req.SheetIndex, nil
}

// allowFetch checks rawURL against Config.FetchHosts.
func (s *Server) allowFetch(rawURL string) error {
	if len(s.cfg.FetchHosts) == 0 {
		return fetchForbidden{}
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return badRequestf("url must be an absolute http(s) URL")
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range s.cfg.FetchHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "*", h == host:
			return nil
		case strings.HasPrefix(h, ".") && strings.HasSuffix(host, h):
			return nil
		}
	}
	return fetchForbidden{host: host}
}

func applyHints(src *ingest.Source, req sourceRequest) error {
	if req.Format != "" {
		f := ingest.Format(strings.ToLower(req.Format))
		switch f {
		case ingest.FormatCSV, ingest.FormatTSV, ingest.FormatXLSX, ingest.FormatJSON:
			src.Format = f
		default:
			return badRequestf("unknown format %q", req.Format)
		}
	} else if src.Format == "" {
		if f, ok := ingest.DetectFormat(src.Name); ok {
			src.Format = f
		}
	}
	if req.Sheet != "" {
		src.Sheet = req.Sheet
	}
	if req.DataPath != "" {
		src.DataPath = req.DataPath
	}
	if req.Delimiter != "" {
		d, err := parseDelimiter(req.Delimiter)
		if err != nil {
			return err
		}
		src.Delimiter = d
	}
	return nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", "\\t", "\t":
		return '\t', nil
	case ",", ";", "|":
		return rune(s[0]), nil
	}
	return 0, badRequestf("delimiter must be one of , ; | tab")
}

func formatFromMediaType(mt string) ingest.Format {
	switch mt {
	case "text/csv":
		return ingest.FormatCSV
	case "text/tab-separated-values":
		return ingest.FormatTSV
	case "application/json", "application/x-ndjson":
		return ingest.FormatJSON
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ingest.FormatXLSX
	}
	return ""
}

func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	src, _, err := s.readSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sheets, err := ingest.ListSheets(src)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheets": sheets})
}

type previewResponse struct {
	Columns     []string       `json:"columns"`
	Rows        *dataset.Table `json:"rows"`
	TotalRows   int            `json:"totalRows"`
	ParseErrors int            `json:"parseErrors"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, badRequestf("limit must be a positive integer"))
			return
		}
		limit = n
	}
	src, idx, err := s.readSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := ingest.ParseRows(src, idx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	head := &dataset.Table{Columns: t.Columns, Rows: t.Rows[:min(limit, len(t.Rows))]}
	writeJSON(w, http.StatusOK, previewResponse{
		Columns:     t.Columns,
		Rows:        head,
		TotalRows:   t.Len(),
		ParseErrors: t.ParseErrors,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	output := r.URL.Query().Get("output")
	if output != "" && output != "json" && output != "markdown" {
		s.writeError(w, r, badRequestf("output must be json or markdown"))
		return
	}
	src, idx, err := s.readSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := ingest.ParseRows(src, idx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a := analysis.Analyze(t, s.cfg.Options)
	if output == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, a.Markdown(src.Name, 5))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// readRows decodes {"rows": [...]} into a table.
func readRows(body []byte) (*dataset.Table, gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, gjson.Result{}, badRequestf("invalid JSON body")
	}
	doc := gjson.ParseBytes(body)
	rows := doc.Get("rows")
	if !rows.IsArray() {
		return nil, doc, badRequestf("\"rows\" must be an array of objects")
	}
	return dataset.DecodeRecords(rows), doc, nil
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, doc, err := readRows(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var cols []string
	doc.Get("columns").ForEach(func(_, v gjson.Result) bool {
		cols = append(cols, v.String())
		return true
	})
	if len(cols) == 0 {
		types := analysis.InferTypes(t, s.cfg.Options)
		for j, ct := range types {
			if ct == analysis.TypeNumeric {
				cols = append(cols, t.Columns[j])
			}
		}
	}
	writeJSON(w, http.StatusOK, analysis.CorrelationMatrix(t, cols))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, _, err := readRows(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := export.Encode(t, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(f))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"export-%s.%s\"", uuid.NewString(), f))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
