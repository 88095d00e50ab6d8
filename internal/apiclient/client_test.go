package apiclient

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/headingmap/internal/api"
	"github.com/dgallion1/headingmap/internal/config"
	"github.com/dgallion1/headingmap/internal/extract"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

const page = "<template>\n  <h2>Orphan</h2>\n  <h1>Title</h1>\n</template>\n"

func startServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.WorkerCount = 1
	cfg.APIKey = apiKey
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	orch := pipeline.NewOrchestrator(cfg, extract.NewExtractor(nil), pipeline.NewAnalysisStats(time.Hour), log)
	orch.Start(context.Background())
	ts := httptest.NewServer(api.NewServer(orch, log, cfg))
	t.Cleanup(func() {
		ts.Close()
		orch.Stop()
	})
	return ts
}

func TestClient_Analyze(t *testing.T) {
	ts := startServer(t, "k")
	c := NewClient(ts.URL+"/", "k")
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	resp, err := c.Analyze(ctx, api.AnalyzeRequest{Filename: "Page.vue", Text: page})
	require.NoError(t, err)
	require.Len(t, resp.Occurrences, 2)
	assert.Equal(t, "First heading should be h1 (found h2)", resp.Occurrences[0].WarningMessage)
	assert.False(t, resp.Occurrences[1].HasWarning)

	md, err := c.Outline(ctx, api.AnalyzeRequest{Filename: "Page.vue", Text: page}, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Page.vue")
}

func TestClient_Unauthorized(t *testing.T) {
	ts := startServer(t, "k")
	c := NewClient(ts.URL, "wrong")

	_, err := c.Analyze(context.Background(), api.AnalyzeRequest{Text: page})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_Scan(t *testing.T) {
	ts := startServer(t, "")
	c := NewClient(ts.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Page.vue"), []byte(page), 0o644))

	accepted, err := c.Scan(ctx, api.ScanRequest{Root: root})
	require.NoError(t, err)

	snap, err := c.WaitScan(ctx, accepted.JobID, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCompleted, snap.Status)

	res, err := c.ScanResults(ctx, accepted.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Warnings)

	missing, err := c.ScanStatus(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
