package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/headingmap/internal/extract"
)

// WorkerConfig holds the per-sweep limits a worker applies.
type WorkerConfig struct {
	MaxConcurrentFiles int
	MaxDocumentBytes   int64
	IgnoredDirs        []string
}

// Worker processes a single scan job.
type Worker struct {
	extractor *extract.Extractor
	stats     *AnalysisStats
	log       *slog.Logger
	cfg       WorkerConfig
}

func NewWorker(ext *extract.Extractor, stats *AnalysisStats, log *slog.Logger, cfg WorkerConfig) *Worker {
	return &Worker{
		extractor: ext,
		stats:     stats,
		log:       log,
		cfg:       cfg,
	}
}

// Process runs a project sweep for job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "root", job.Root)
	start := time.Now()

	job.SetStatus(StatusDiscovering, "discovering")
	res, err := Sweep(ctx, job.Root, SweepOptions{
		Config:           job.Config,
		Concurrency:      w.cfg.MaxConcurrentFiles,
		MaxDocumentBytes: w.cfg.MaxDocumentBytes,
		Ignored:          w.cfg.IgnoredDirs,
		Extractor:        w.extractor,
		Stats:            w.stats,
		Log:              log,
		OnDiscover: func(total int) {
			job.SetFilesTotal(total)
			job.SetStatus(StatusAnalyzing, "analyzing")
		},
		OnResult: job.RecordFile,
	})

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		log.Warn("scan cancelled", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusCancelled, "cancelled")
		return
	case err != nil:
		log.Error("scan failed", "error", err)
		job.AddError(fmt.Sprintf("scan: %s", err))
		job.SetStatus(StatusFailed, "discovering")
		return
	}

	job.SetResult(res)
	log.Info("scan complete",
		"scanned", res.Scanned, "failed", res.Failed, "warnings", res.Warnings,
		"duration_ms", time.Since(start).Milliseconds())

	switch {
	case res.Failed > 0 && res.Failed == res.Scanned:
		job.SetStatus(StatusFailed, "analyzing")
	case res.Failed > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}
