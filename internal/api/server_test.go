package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/docstore"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/metrics"
	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/dgallion1/bookdigest/internal/sanitize"
	"github.com/dgallion1/bookdigest/internal/stage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func echoBackend(context.Context, string, int, float64) (string, error) {
	return "Small Steps Build Lasting Change\nA plain body.", nil
}

type fixture struct {
	srv    *Server
	runner *pipeline.JobRunner
	stats  *llm.Stats
}

func newFixture(t *testing.T, backend llm.CompleterFunc, apiKey string, start bool, queueSize int) *fixture {
	t.Helper()
	rules := sanitize.DefaultRules()
	san, err := sanitize.New(rules)
	require.NoError(t, err)

	stats := llm.NewStats("test-model", time.Hour)
	gen, err := stage.NewGenerator(llm.Instrumented(backend, stats), san, rules.HeadingOpeners,
		stage.Options{MaxTokens: 100, Temperature: 0.7, Timeout: 5 * time.Second}, discard)
	require.NoError(t, err)

	docs, err := docstore.NewDocxStore(t.TempDir(), "http://localhost:5002")
	require.NoError(t, err)

	m := metrics.New()
	svc := pipeline.NewService(pipeline.NewOrchestrator(gen, 1, m, discard), docs, m, discard)
	runner := pipeline.NewJobRunner(svc, 1, queueSize, time.Hour, m, discard)
	if start {
		runner.Start(context.Background())
		t.Cleanup(runner.Stop)
	}

	cfg := config.Config{APIKey: apiKey, MaxUploadBytes: 1 << 20}
	srv := NewServer(Deps{Service: svc, Runner: runner, Stats: stats, Docs: docs, Metrics: m}, discard, cfg)
	return &fixture{srv: srv, runner: runner, stats: stats}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestCreateSummary_MissingFields(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)
	for _, body := range []string{
		`{"book_name":"B","author":"A"}`,
		`{"book_name":"","author":"A","summary":"x"}`,
		`{}`,
	} {
		rec := f.do(t, jsonRequest(http.MethodPost, "/create-summary", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Missing required fields"}`, rec.Body.String())
	}
}

func TestCreateSummary_SuccessAndDownload(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)
	rec := f.do(t, jsonRequest(http.MethodPost, "/create-summary",
		`{"book_name":"Atomic Habits","author":"James Clear","summary":"one\ntwo\nthree"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Atomic Habits", out["book_name"])
	assert.Len(t, out["main_content"], 3)
	assert.Regexp(t, `^\d+m \d+s$`, out["total_time"])
	for _, k := range []string{"super_summary", "abstract", "key_points", "writer_profile", "story"} {
		assert.NotEmpty(t, out[k], k)
	}

	url, _ := out["document_url"].(string)
	require.True(t, strings.HasPrefix(url, "http://localhost:5002/documents/"), url)
	path := strings.TrimPrefix(url, "http://localhost:5002")

	dl := f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, docxContentType, dl.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(dl.Body.Bytes(), []byte("PK")), "docx is a zip archive")

	assert.Equal(t, 8, f.stats.Snapshot().Count)
}

func TestCreateSummary_StageFailure(t *testing.T) {
	failing := func(context.Context, string, int, float64) (string, error) {
		return "", &llm.BackendError{Provider: "openai", StatusCode: 500, Message: "boom"}
	}
	f := newFixture(t, failing, "", false, 4)
	rec := f.do(t, jsonRequest(http.MethodPost, "/create-summary", `{"book_name":"B","author":"A","summary":"one"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed: section 1 summary: openai api status 500: boom", decode(t, rec)["error"])
}

func TestCreateSummary_BlankSummary(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)
	rec := f.do(t, jsonRequest(http.MethodPost, "/create-summary", `{"book_name":"B","author":"A","summary":"  \n "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIAuth(t *testing.T) {
	f := newFixture(t, echoBackend, "secret", false, 4)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, f.do(t, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = f.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	stats, _ := decode(t, rec)["stats"].(map[string]any)
	assert.Equal(t, "test-model", stats["model"])

	// The synchronous route stays open.
	rec = f.do(t, jsonRequest(http.MethodPost, "/create-summary", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func waitForJob(t *testing.T, f *fixture, id string) map[string]any {
	t.Helper()
	var last map[string]any
	require.Eventually(t, func() bool {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		last = decode(t, rec)
		s := last["status"]
		return s == string(pipeline.StatusCompleted) || s == string(pipeline.StatusFailed)
	}, 5*time.Second, 10*time.Millisecond)
	return last
}

func TestSubmitJob_JSON(t *testing.T) {
	f := newFixture(t, echoBackend, "", true, 4)
	rec := f.do(t, jsonRequest(http.MethodPost, "/api/jobs", `{"book_name":"B","author":"A","summary":"one\ntwo"}`))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	out := decode(t, rec)
	id, _ := out["job_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/jobs/"+id, out["poll_url"])

	snap := waitForJob(t, f, id)
	assert.Equal(t, "completed", snap["status"])
	result, _ := snap["result"].(map[string]any)
	require.NotNil(t, result)
	assert.Equal(t, "success", result["status"])
	progress, _ := snap["progress"].(map[string]any)
	assert.EqualValues(t, 2, progress["sections_done"])
	assert.EqualValues(t, 7, progress["stages_done"])
}

func multipartRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitJob_MultipartFile(t *testing.T) {
	f := newFixture(t, echoBackend, "", true, 4)
	md := "# Atomic Habits\n\nFirst idea about habits.\n\n- a list item\n"
	rec := f.do(t, multipartRequest(t, map[string]string{"book_name": "B", "author": "A"}, "notes.md", md))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	snap := waitForJob(t, f, decode(t, rec)["job_id"].(string))
	assert.Equal(t, "completed", snap["status"])
	assert.Equal(t, "notes.md", snap["filename"])
	progress, _ := snap["progress"].(map[string]any)
	assert.EqualValues(t, 3, progress["total_sections"])
}

func TestSubmitJob_Rejections(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)

	rec := f.do(t, multipartRequest(t, map[string]string{"book_name": "B", "author": "A"}, "book.exe", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "unsupported file type")

	rec = f.do(t, multipartRequest(t, map[string]string{"book_name": "B"}, "", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: author, summary", decode(t, rec)["error"])

	rec = f.do(t, jsonRequest(http.MethodPost, "/api/jobs", `{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitJob_QueueFull(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 1)
	body := `{"book_name":"B","author":"A","summary":"one"}`

	assert.Equal(t, http.StatusAccepted, f.do(t, jsonRequest(http.MethodPost, "/api/jobs", body)).Code)
	rec := f.do(t, jsonRequest(http.MethodPost, "/api/jobs", body))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, pipeline.ErrQueueFull.Error(), decode(t, rec)["error"])
}

func TestJobNotFound(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentDownload_Unknown(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)
	for _, id := range []string{"not-a-uuid", "3f1c5a9e-8d2b-4c6f-9a7e-1b2c3d4e5f60"} {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, echoBackend, "", false, 4)
	f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	f.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/abc", nil))

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `bookdigest_http_requests_total{method="GET",route="/health",status="OK"} 1`)
	assert.Contains(t, body, `route="/api/jobs/{jobID}",status="Not Found"`)
}
