package commands

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

	"github.com/deppfellow/platform-user/internal/config"
	"github.com/deppfellow/platform-user/internal/handler"
	"github.com/deppfellow/platform-user/internal/logger"
	"github.com/deppfellow/platform-user/internal/router"
	"github.com/deppfellow/platform-user/internal/server"
)

type serveOptions struct {
	port            string
	migrate         bool
	gracefulTimeout time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server exposing every registered script as a POST route.

Examples:
  # Serve with the configured port
  platform-user serve

  # Apply migrations first and listen on 9090
  platform-user serve --migrate --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "Server port (overrides PLATFORM_SERVER__PORT)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "Apply migrations before serving (same as PLATFORM_DATABASE__AUTO_MIGRATE)")
	cmd.Flags().DurationVar(&opts.gracefulTimeout, "graceful-timeout", 30*time.Second, "Graceful shutdown timeout")

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if opts.port != "" {
		cfg.Server.Port = opts.port
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	registry, err := NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to register scripts: %w", err)
	}

	srv, err := server.New(cfg, &log, loggerService, registry)
	if err != nil {
		return err
	}

	if cfg.Database.AutoMigrate || opts.migrate {
		if err := srv.DB.Migrate(ctx); err != nil {
			_ = srv.DB.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	srv.SetupHTTPServer(router.NewRouter(srv, handler.NewHandlers(srv)))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = srv.DB.Close()
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.gracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
