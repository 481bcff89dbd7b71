package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tourguide/internal/api"
	"tourguide/pkg/catalog"
	"tourguide/pkg/config"
	"tourguide/pkg/controller"
	"tourguide/pkg/logging"
	"tourguide/pkg/session"
	"tourguide/pkg/tracker"
	"tourguide/pkg/version"
)

const envTrace = "TOURGUIDE_TRACE"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and live feed",
	Long: `Loads .env and the config file, replays the configured catalogs and
serves the controller until interrupted. A failing catalog aborts startup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, configPath)
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	logging.EnableTrace = os.Getenv(envTrace) != ""

	slog.Info("Tourguide starting", "version", version.Version, "config", configPath)

	mgr, err := newSession(ctx, appCfg)
	if err != nil {
		return err
	}

	srv := api.NewServer(api.Options{
		Addr:           appCfg.Server.Address,
		AllowedOrigins: appCfg.Server.AllowedOrigins,
		ReadTimeout:    appCfg.Server.ReadTimeout.Std(),
		WriteTimeout:   appCfg.Server.WriteTimeout.Std(),
	},
		api.NewTourHandler(mgr),
		api.NewLiveHandler(mgr, appCfg.Server.AllowedOrigins),
		api.NewStatsHandler(mgr),
		api.NewTripHandler(mgr),
		cancel,
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	return runServerLifecycle(ctx, srv, appCfg.Server.ShutdownTimeout.Std())
}

// newSession builds the controller and replays every configured catalog into it.
func newSession(ctx context.Context, appCfg *config.Config) (*session.Manager, error) {
	ctrl := controller.New(controller.Params{
		WaypointRadius:     appCfg.Tour.WaypointRadius.Meters(),
		WaypointSeparation: appCfg.Tour.WaypointSeparation.Meters(),
	}, slog.With("component", "controller"))
	mgr := session.NewManager(ctrl, tracker.New(), slog.Default())

	for _, path := range appCfg.Catalog.Paths {
		cat, err := catalog.Load(path)
		if err != nil {
			return nil, err
		}
		if err := cat.Replay(ctx, mgr); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		slog.Info("Catalog loaded", "path", path, "tours", len(cat.Tours))
	}
	return mgr, nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
