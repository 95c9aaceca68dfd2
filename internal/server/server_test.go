package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const salesCSV = "region,amount,day\nnorth,10,2024-01-01\nsouth,12.5,2024-01-02\nnorth,10,2024-01-01\nwest,,2024-01-04\n"

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Options.TopK == 0 {
		cfg.Options = analysis.DefaultOptions()
	}
	return New(cfg, nil)
}

func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t, Config{}), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyzeMultipart(t *testing.T) {
	body, ct := multipartBody(t, "sales.csv", []byte(salesCSV), nil)
	rec := do(t, newServer(t, Config{}), http.MethodPost, "/v1/analyze", ct, body.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := gjson.Parse(rec.Body.String())
	assert.Equal(t, int64(4), res.Get("rawRowCount").Int())
	assert.Equal(t, int64(3), res.Get("rows").Int())
	assert.Equal(t, int64(1), res.Get("duplicatesRemoved").Int())
	assert.Equal(t, "numeric", res.Get(`columnInfo.#(name=="amount").type`).String())
	assert.Equal(t, "datetime", res.Get(`columnInfo.#(name=="day").type`).String())
	assert.Equal(t, "2024-01-01", res.Get("dateRange.min").String())
	assert.Equal(t, int64(3), res.Get("cleanedData.#").Int())
}

func TestAnalyzeRawBodyMarkdown(t *testing.T) {
	rec := do(t, newServer(t, Config{}), http.MethodPost, "/v1/analyze?output=markdown&filename=sales.csv", "text/csv", []byte(salesCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "[DATASET SUMMARY]")
	assert.Contains(t, rec.Body.String(), "File: sales.csv")
}

func TestAnalyzeFetchesURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"items":[{"a":1,"b":"x"},{"a":2,"b":"y"}]}}`))
	}))
	defer upstream.Close()

	srv := newServer(t, Config{FetchToken: "s3cret", Client: upstream.Client(), FetchHosts: []string{"127.0.0.1"}})
	payload := `{"url":"` + upstream.URL + `/feed","dataPath":"data.items"}`
	rec := do(t, srv, http.MethodPost, "/v1/analyze", "application/json", []byte(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "rows").Int())
}

func TestAnalyzeURLRequiresAllowedHost(t *testing.T) {
	fetched := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched = true
		_, _ = w.Write([]byte(`[{"a":1}]`))
	}))
	defer upstream.Close()
	payload := []byte(`{"url":"` + upstream.URL + `/feed"}`)

	cases := []struct {
		name  string
		hosts []string
	}{
		{"disabled", nil},
		{"other host", []string{"data.example.com"}},
		{"other suffix", []string{".example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, Config{Client: upstream.Client(), FetchHosts: tc.hosts})
			rec := do(t, srv, http.MethodPost, "/v1/analyze", "application/json", payload)
			assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
			assert.Equal(t, CodeFetchForbidden, gjson.Get(rec.Body.String(), "code").String())
		})
	}
	assert.False(t, fetched)

	srv := newServer(t, Config{Client: upstream.Client(), FetchHosts: []string{"*"}})
	rec := do(t, srv, http.MethodPost, "/v1/analyze", "application/json", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, fetched)
}

func TestAllowFetch(t *testing.T) {
	srv := newServer(t, Config{FetchHosts: []string{"Data.Example.com", ".files.example.org"}})
	assert.NoError(t, srv.allowFetch("https://data.example.com/x.csv"))
	assert.NoError(t, srv.allowFetch("http://cdn.files.example.org/x.json"))
	assert.ErrorAs(t, srv.allowFetch("http://169.254.169.254/latest"), &fetchForbidden{})
	assert.ErrorAs(t, srv.allowFetch("https://evil-files.example.org/x"), &fetchForbidden{})
	assert.ErrorAs(t, srv.allowFetch("file:///etc/passwd"), &badRequest{})
}

func TestAnalyzeRawJSONRecords(t *testing.T) {
	rec := do(t, newServer(t, Config{}), http.MethodPost, "/v1/analyze", "application/json", []byte(`[{"a":1},{"a":2},{"a":3}]`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "numeric", gjson.Get(rec.Body.String(), "columnInfo.0.type").String())
}

func TestSourceErrorsAre422(t *testing.T) {
	srv := newServer(t, Config{})

	body, ct := multipartBody(t, "report.docx", []byte("PK"), nil)
	rec := do(t, srv, http.MethodPost, "/v1/analyze", ct, body.Bytes())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ingest.CodeUnsupportedFormat, gjson.Get(rec.Body.String(), "code").String())

	body, ct = multipartBody(t, "book.xlsx", []byte("not a zip"), nil)
	rec = do(t, srv, http.MethodPost, "/v1/sheets", ct, body.Bytes())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ingest.CodeSourceUnreadable, gjson.Get(rec.Body.String(), "code").String())
}

func TestBadRequests(t *testing.T) {
	srv := newServer(t, Config{})
	cases := []struct {
		name, target, ct, body string
	}{
		{"missing file field", "/v1/analyze", "multipart/form-data; boundary=x", "--x--\r\n"},
		{"bad output", "/v1/analyze?output=html", "text/csv", salesCSV},
		{"bad delimiter", "/v1/preview?delimiter=x", "text/csv", salesCSV},
		{"negative sheet", "/v1/preview?sheetIndex=-1", "text/csv", salesCSV},
		{"rows not array", "/v1/correlation", "application/json", `{"rows":5}`},
		{"invalid json", "/v1/export?format=csv", "application/json", `{"rows":[`},
		{"bad export format", "/v1/export?format=pdf", "application/json", `{"rows":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tc.target, tc.ct, []byte(tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, CodeBadRequest, gjson.Get(rec.Body.String(), "code").String())
		})
	}
}

func TestUploadLimit(t *testing.T) {
	srv := newServer(t, Config{MaxUploadBytes: 16})
	rec := do(t, srv, http.MethodPost, "/v1/preview", "text/csv", []byte(salesCSV))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodePayloadTooLarge, gjson.Get(rec.Body.String(), "code").String())
}

func TestPreview(t *testing.T) {
	rec := do(t, newServer(t, Config{}), http.MethodPost, "/v1/preview?limit=2&filename=s.csv", "text/csv", []byte(salesCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := gjson.Parse(rec.Body.String())
	assert.Equal(t, `["region","amount","day"]`, res.Get("columns").Raw)
	assert.Equal(t, int64(2), res.Get("rows.#").Int())
	assert.Equal(t, int64(4), res.Get("totalRows").Int())
	assert.Equal(t, "north", res.Get("rows.0.region").String())
}

func TestSheets(t *testing.T) {
	body, ct := multipartBody(t, "sales.csv", []byte(salesCSV), nil)
	rec := do(t, newServer(t, Config{}), http.MethodPost, "/v1/sheets", ct, body.Bytes())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sheets":["sales"]}`, rec.Body.String())
}

func TestCorrelation(t *testing.T) {
	payload := `{"rows":[{"x":1,"y":2,"z":"a"},{"x":2,"y":4,"z":"b"},{"x":3,"y":6,"z":"c"}]}`
	rec := do(t, newServer(t, Config{}), http.MethodPost, "/v1/correlation", "application/json", []byte(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := gjson.Parse(rec.Body.String())
	assert.Equal(t, `["x","y"]`, res.Get("columns").Raw)
	assert.InDelta(t, 1.0, res.Get("matrix.0.1").Float(), 1e-9)

	payload = `{"rows":[{"x":1,"k":5},{"x":2,"k":5}],"columns":["x","k"]}`
	rec = do(t, newServer(t, Config{}), http.MethodPost, "/v1/correlation", "application/json", []byte(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, gjson.Get(rec.Body.String(), "matrix.0.1").Float())
}

func TestExport(t *testing.T) {
	payload := `{"rows":[{"a":1,"b":"x, y"},{"a":null,"b":"z"}]}`
	rec := do(t, newServer(t, Config{}), http.MethodPost, "/v1/export?format=csv", "application/json", []byte(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "a,b\n1,\"x, y\"\n,z\n", rec.Body.String())
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.csv"`))

	rec = do(t, newServer(t, Config{}), http.MethodPost, "/v1/export?format=xlsx", "application/json", []byte(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	back, err := ingest.ParseRows(ingest.Source{Name: "x.xlsx", Format: ingest.FormatXLSX, Data: rec.Body.Bytes()}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, back.Columns)
	assert.Equal(t, 2, back.Len())
}
