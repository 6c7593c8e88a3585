package cmd

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

	"github.com/ziadkadry99/sigplace/internal/audit"
	"github.com/ziadkadry99/sigplace/internal/dashboard"
	"github.com/ziadkadry99/sigplace/internal/server"
	"github.com/ziadkadry99/sigplace/internal/session"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the interactive placement server",
	Long:  `Starts the sigplace session server: upload a PDF, place and drag signature overlays over its pages through the REST and WebSocket API, then download the signed document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		port := cfg.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		trail := auditStore(cfg)
		sessions := session.NewManager(sessionOptions(cfg, trail), cfg.SessionTTL)
		go sessions.Run(ctx, evictInterval(cfg.SessionTTL))

		srv := server.New(server.Config{
			Port:      port,
			AllowAll:  cfg.AllowAllOrigins,
			MaxUpload: cfg.MaxUploadBytes(),
		}, sessions)
		dashboard.New(sessions, trail).RegisterRoutes(srv.Router())
		if trail != nil {
			audit.RegisterRoutes(srv.Router(), trail)
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "sigplace server %s starting on port %d\n", Version, port)
		if verbose {
			fmt.Fprintf(os.Stderr, "  Session TTL: %s\n", cfg.SessionTTL)
			fmt.Fprintf(os.Stderr, "  Min overlay size: %.0fx%.0f px\n", cfg.MinWidthPx, cfg.MinHeightPx)
			fmt.Fprintf(os.Stderr, "  Dashboard: http://localhost:%d/\n", port)
			fmt.Fprintf(os.Stderr, "  Embed density: %.1f px/pt\n", cfg.EmbedDensity)
		}

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
