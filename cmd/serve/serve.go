// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sshaikhIntervision/Brinkmann/cmd/common"
	"github.com/sshaikhIntervision/Brinkmann/internal/api"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
	"github.com/sshaikhIntervision/Brinkmann/internal/scheduler"
)

const (
	signalChannelBufferSize = 1
	errorChannelBufferSize  = 1
	defaultShutdownTimeout  = 30 * time.Second
)

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion HTTP server",
		Long:  `Starts the HTTP server exposing ingestion triggers and health, plus the optional cron schedule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	deps, err := common.NewDeps(ctx, viper.GetViper())
	if err != nil {
		return err
	}
	defer deps.Close()

	ingestHandler := api.NewIngestHandler(deps.Orchestrator, deps.Logger)
	healthHandler := api.NewHealthHandler(deps.DB, deps.Store, deps.Logger)
	server := api.NewHTTPServer(deps.Config.Server, deps.Logger, ingestHandler, healthHandler)

	sched := scheduler.NewScheduler(deps.Orchestrator, deps.Config.Ingest.Schedule, deps.Logger)
	if err := sched.Start(); err != nil {
		return err
	}

	deps.Logger.Info("starting HTTP server", "addr", deps.Config.Server.Address)
	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	return waitForShutdown(deps.Logger, server, sched, errChan)
}

// waitForShutdown blocks until a server error or termination signal, then
// shuts the scheduler and server down gracefully.
func waitForShutdown(
	log logger.Interface,
	server *http.Server,
	sched *scheduler.Scheduler,
	errChan chan error,
) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case serverErr := <-errChan:
		log.Error("server error", "error", serverErr)
		return fmt.Errorf("server error: %w", serverErr)
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	sched.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
