package cli

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

	"github.com/custodia-labs/curator/internal/logger"
)

var (
	serveAddr        string
	serveNoScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API and, unless disabled, the background scheduler
that runs quality decay, archival and conflict scans on their
configured intervals. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8420", "listen address for the HTTP API")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not start the background scheduler")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if apiHandler == nil {
		return errors.New("api server not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scheduler != nil && !serveNoScheduler {
		// Start blocks until the scheduler stops, so it runs alongside
		// the HTTP server.
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				logger.Warn("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("stopping scheduler: %v", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           apiHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	cmd.Printf("Listening on %s\n", serveAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
