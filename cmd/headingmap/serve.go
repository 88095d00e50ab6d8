package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/headingmap/internal/api"
	"github.com/dgallion1/headingmap/internal/config"
	"github.com/dgallion1/headingmap/internal/extract"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the headingmap HTTP API",
	Long: `Start the headingmap HTTP server.

The server provides:
  - /health                    - Basic health check
  - /api/analyze               - Analyze one document (JSON or multipart upload)
  - /api/outline               - Render a document outline as markdown or HTML
  - /api/scan                  - Queue a project scan and poll for results
  - /api/stats/analysis        - Analysis latency and warning totals

Examples:
  headingmap serve
  headingmap serve --port 9000
  HEADINGMAP_API_KEY=secret headingmap serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := m.Get()
		if servePort != "" {
			cfg.Port = servePort
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := new(slog.LevelVar)
		l, _ := config.ParseLogLevel(cfg.LogLevel)
		level.Set(l)
		log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

		// Only the log level is applied live; other settings need a restart.
		if m.ConfigFile() != "" {
			m.OnChange(func(next config.Config) {
				if logLevel != "" {
					return
				}
				if l, err := config.ParseLogLevel(next.LogLevel); err == nil {
					level.Set(l)
				}
				log.Info("config reloaded", "file", m.ConfigFile(), "log_level", next.LogLevel)
			})
			m.WatchConfig()
		}

		r := rules(cfg)
		cfg.RequireH1AsFirstHeading = r.RequireH1AsFirstHeading
		cfg.WarnOnHeadingLevelSkip = r.WarnOnHeadingLevelSkip

		orch, httpServer := newHTTPServer(cfg, log)
		orch.Start(ctx)

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			log.Info("shutting down...")

			orch.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("starting headingmap", "port", cfg.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default from config)")
}

// statsWindow is how far back /api/stats/analysis reports.
const statsWindow = time.Hour

// newHTTPServer wires the pipeline and API for cfg. The orchestrator is
// returned unstarted.
func newHTTPServer(cfg config.Config, log *slog.Logger) (*pipeline.Orchestrator, *http.Server) {
	orch := pipeline.NewOrchestrator(cfg, extract.NewExtractor(nil), pipeline.NewAnalysisStats(statsWindow), log)
	return orch, &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(orch, log, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
