package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iieadb/eventboard/internal/adapters/http/api"
	service "github.com/iieadb/eventboard/internal/app"
	"github.com/iieadb/eventboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	systemMetricsInterval = 10 * time.Second
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				rootOpts.Config.Addr = addr
			}
			return runServe(cmd.Context(), rootOpts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides addr from config)")

	return cmd
}

func runServe(parent context.Context, rootOpts *RootOptions) error {
	cfg := rootOpts.Config
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcOpts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithSeedFile(cfg.SeedFile),
		service.WithRefreshSchedule(cfg.RefreshCron),
		service.WithDedupeSize(cfg.IdempotencySize),
	}
	if rootOpts.Store != nil {
		svcOpts = append(svcOpts, service.WithStore(rootOpts.Store))
	} else {
		svcOpts = append(svcOpts, service.WithDriver(cfg.StoreDriver, dsnFor(cfg)))
	}
	svc := service.New(svcOpts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, svc)

	apiOpts := []api.Option{
		api.WithLogger(log.Named("http")),
		api.WithCORSOrigins(cfg.CORSOrigins...),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	if cfg.JWTSecret != "" {
		auth, err := api.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, api.WithAuthenticator(auth))
	} else {
		log.Warn(ctx, "jwt_secret is empty; create and delete requests will be refused")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, apiOpts...).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater refreshes the system gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats()
		}
	}
}
