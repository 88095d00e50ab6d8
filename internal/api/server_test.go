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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/headingmap/internal/config"
	"github.com/dgallion1/headingmap/internal/extract"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

const page = "<template>\n  <h1>Home</h1>\n  <h3>Deep</h3>\n</template>\n"

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.WorkerCount = 1
	if mutate != nil {
		mutate(&cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, extract.NewExtractor(nil), pipeline.NewAnalysisStats(time.Hour), log)
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})
	return NewServer(orch, log, cfg)
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/analyze", AnalyzeRequest{Filename: "Home.vue", Text: page})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Occurrences, 2)
	assert.Equal(t, 1, resp.Warnings)
	assert.Equal(t, "Heading level skipped from h1 to h3", resp.Occurrences[1].WarningMessage)
	require.Len(t, resp.Outline, 2)
	assert.Equal(t, []string{"Home", "Deep"}, resp.Outline[1].Breadcrumb)
	assert.Equal(t, []int{0}, resp.Forest.Roots)
}

func TestAnalyze_RuleOverrides(t *testing.T) {
	s := newTestServer(t, nil)
	off := false
	rec := do(t, s, http.MethodPost, "/api/analyze", AnalyzeRequest{
		Text:   page,
		Config: &RuleOverrides{WarnOnHeadingLevelSkip: &off},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Warnings)
}

func TestAnalyze_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/analyze", AnalyzeRequest{Filename: "main.ts", Text: page})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_TooLarge(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.MaxDocumentBytes = 16 })
	rec := do(t, s, http.MethodPost, "/api/analyze", AnalyzeRequest{Text: strings.Repeat("x", 128*1024)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyzeUpload(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "../../Home.vue")
	require.NoError(t, err)
	_, err = fw.Write([]byte(page))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("warn_on_heading_level_skip", "false"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Home.vue", resp.Filename)
	assert.Equal(t, 0, resp.Warnings)
}

func TestOutline(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/outline", AnalyzeRequest{Filename: "Home.vue", Text: page})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "- h1 Home (line 2)")

	rec = do(t, s, http.MethodPost, "/api/outline?format=html", AnalyzeRequest{Filename: "Home.vue", Text: page})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<li>h1 Home (line 2)")

	rec = do(t, s, http.MethodPost, "/api/outline?format=pdf", AnalyzeRequest{Text: page})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDialects(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/api/dialects", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Dialects []DialectInfo `json:"dialects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Dialects)
	assert.Equal(t, "literal-tag", resp.Dialects[0].Name)
	assert.Equal(t, "template", resp.Dialects[0].Region)
}

func TestScanLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Home.vue"), []byte(page), 0o644))

	rec := do(t, s, http.MethodPost, "/api/scan", ScanRequest{Root: root})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted ScanAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	require.Eventually(t, func() bool {
		rec := do(t, s, http.MethodGet, accepted.PollURL, nil)
		var snap pipeline.JobSnapshot
		if json.Unmarshal(rec.Body.Bytes(), &snap) != nil {
			return false
		}
		return snap.Status == pipeline.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, s, http.MethodGet, accepted.ResultsURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results struct {
		Result pipeline.SweepResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Equal(t, 1, results.Result.Scanned)
	assert.Equal(t, 1, results.Result.Warnings)

	rec = do(t, s, http.MethodGet, "/api/stats/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestScan_Validation(t *testing.T) {
	s := newTestServer(t, nil)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/scan", ScanRequest{}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/scan", ScanRequest{Root: "relative/dir"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/scan",
		ScanRequest{Root: filepath.Join(t.TempDir(), "missing")}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/scan/nope/status", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/scan/nope/results", nil).Code)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.APIKey = "secret" })

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/dialects", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/dialects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/dialects", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "App.vue", sanitizeFilename("../src/App.vue"))
	assert.Equal(t, "unnamed", sanitizeFilename(""))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing/status") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String(), "health probes log below info")

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dialects", nil))
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "bytes=2")

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/scan/missing/status", nil))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status=404")
	assert.Contains(t, buf.String(), "job_id=missing")
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, requestLevel("/api/analyze", 500))
	assert.Equal(t, slog.LevelWarn, requestLevel("/health", 401))
	assert.Equal(t, slog.LevelDebug, requestLevel("/health", 200))
	assert.Equal(t, slog.LevelInfo, requestLevel("/api/scan", 202))
}
