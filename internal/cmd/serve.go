package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketdeck/internal/config"
	"github.com/3leaps/bucketdeck/internal/metrics"
	"github.com/3leaps/bucketdeck/internal/observability"
	"github.com/3leaps/bucketdeck/internal/server"
	"github.com/3leaps/bucketdeck/internal/server/handlers"
	"github.com/3leaps/bucketdeck/pkg/filelist"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the file list over HTTP",
	Long: `Serve the configured storage destination as a JSON API.

Endpoints:
  GET    /api/v1/files                 current listing (filters: include, exclude, images, ...)
  POST   /api/v1/files/refresh         fetch a new listing (rate limited)
  DELETE /api/v1/files/{key}?confirm=true
  GET    /health, /health/live, /health/ready, /health/startup
  GET    /version, /metrics

Examples:
  bucketdeck serve --profiles profiles.yaml --profile photos
  BUCKETDECK_PORT=9000 bucketdeck serve --readonly`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	logger, err := observability.NewLogger(config.AppName, cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	sc, err := resolveStorage(cfg)
	if err != nil {
		return err
	}

	handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
	if cfg.Metrics.Enabled {
		metrics.SetAppInfo(versionInfo.Version, versionInfo.Commit)
	}

	m := newManager(cfg, newFactory(cfg, cfg.Metrics.Enabled),
		filelist.WithConfirmer(handlers.RequestConfirmer),
		filelist.WithLogger(logger.Named("filelist")))
	defer func() { _ = m.Close() }()

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	hm.RegisterChecker("signals", signalHealthChecker{})
	hm.RegisterChecker("identity", identityHealthChecker{
		binaryName: config.AppName,
		envPrefix:  config.EnvPrefix,
		configName: config.AppName,
	})
	hm.RegisterChecker("storage", storageHealthChecker{files: m})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failed first listing is reported through the API; the server still starts.
	if err := m.SetConfig(ctx, sc); err != nil {
		logger.Warn("Initial listing failed", zap.String("profile", sc.Name), zap.Error(err))
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithFiles(m),
		server.WithReadOnly(effectiveReadOnly(cfg)),
		server.WithMetrics(cfg.Metrics.Enabled),
		server.WithRefreshLimit(cfg.API.RefreshRate, cfg.API.RefreshBurst),
		server.WithLogger(logger.Named("http")),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	hm.SetReady(true)
	logger.Info("Server started",
		zap.String("addr", srv.Addr()),
		zap.String("profile", sc.Name),
		zap.String("type", sc.Type.String()),
		zap.Bool("readonly", effectiveReadOnly(cfg)),
		zap.String("version", versionInfo.Version))

	select {
	case err := <-errCh:
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	hm.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitError(foundry.ExitSignalInt, "Shutdown did not complete", err)
	}
	return <-errCh
}

// signalHealthChecker reports the process as able to handle signals.
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil
}

// identityHealthChecker fails when the application identity is incomplete.
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (c identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case c.binaryName == "":
		return errors.New("missing binary name")
	case c.envPrefix == "":
		return errors.New("missing env prefix")
	case c.configName == "":
		return errors.New("missing config name")
	}
	return nil
}

// storageHealthChecker fails while the storage destination cannot be listed.
// An unsupported storage type is healthy: management is simply unavailable.
type storageHealthChecker struct {
	files handlers.FileService
}

func (c storageHealthChecker) CheckHealth(ctx context.Context) error {
	snap := c.files.Snapshot()
	if snap.State == filelist.StateErrored && snap.Err != nil {
		return fmt.Errorf("storage: %w", snap.Err)
	}
	return nil
}
