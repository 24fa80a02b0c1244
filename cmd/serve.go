package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/fetch"
	"github.com/iotcafe/backoffice/internal/handlers"
	"github.com/iotcafe/backoffice/internal/logging"
	"github.com/iotcafe/backoffice/internal/session"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the back-office web interface",
		Long: `Starts the back-office web interface on the specified port.

Pages are rendered on the server from data fetched from the API. Repeated
requests for the same resource within a short window share one API call.`,
		Example: `  # Start server on default port 8888
  backoffice serve

  # Start server on custom port against a remote API
  backoffice serve --port 3000 --api-url https://cafe.example.com/api/v1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			client := apiclient.NewClient(cfg.APIURL, cfg.RequestTimeout)
			cache := fetch.New(client.GetRaw, fetch.Options{
				DedupeInterval: cfg.DedupeInterval,
				LoadTimeout:    cfg.RequestTimeout,
			})
			sessions := session.New()

			handler, err := handlers.New(client, cache, sessions, handlers.Options{FetchWait: cfg.FetchWait})
			if err != nil {
				return fmt.Errorf("failed to create handlers: %w", err)
			}

			addr := cfg.Addr()
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go pruneSessions(cmd.Context(), sessions, cfg.SessionTTL)

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Back office available", "addr", addr, "url", "http://localhost"+addr, "api", cfg.APIURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PORT)")

	return cmd
}

// pruneSessions drops idle browser sessions until ctx is done
func pruneSessions(ctx context.Context, sessions *session.Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(ttl); n > 0 {
				slog.Debug("Pruned idle sessions", "count", n, "remaining", sessions.Len())
			}
		}
	}
}
