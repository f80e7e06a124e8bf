// -- cmd/serve.go --
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/recorder-cli/internal/archive"
	"github.com/xkilldash9x/recorder-cli/internal/engine"
	"github.com/xkilldash9x/recorder-cli/internal/observability"
	"github.com/xkilldash9x/recorder-cli/internal/recorder"
	"github.com/xkilldash9x/recorder-cli/internal/screenshot"
	"github.com/xkilldash9x/recorder-cli/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recording service until interrupted.",
	Long: `Starts the HTTP boundary and the browser engine. Viewers create
sessions, stream input events at them and collect the replayable script;
SIGINT or SIGTERM drains requests and tears down every live session.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	defer observability.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.NewChromeEngine(cfg.Browser, logger)
	shots := screenshot.NewStore(cfg.Recorder.ResultsDir, logger)
	logger.Info("Screenshot store ready.", zap.String("dir", shots.Dir()))

	var archiver recorder.Archiver
	if cfg.Archive.Enabled {
		store, err := archive.Connect(ctx, cfg.Archive.DSN, logger)
		if err != nil {
			return fmt.Errorf("connecting script archive: %w", err)
		}
		defer store.Close()
		archiver = store
	}

	manager := recorder.NewManager(cfg.Recorder, eng, shots, archiver, logger)
	srv := server.New(cfg.Server, manager, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received.")
	}

	// Stop accepting requests first, then tear down the sessions that are
	// left, both bounded by the same grace period.
	graceCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(graceCtx); err != nil {
		logger.Warn("HTTP shutdown did not finish cleanly.", zap.Error(err))
	}
	manager.ShutdownAll(graceCtx)

	logger.Info("Recorder stopped.")
	return nil
}
