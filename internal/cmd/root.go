// Package cmd implements the bucketdeck command line.
package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketdeck/internal/config"
	"github.com/3leaps/bucketdeck/internal/metrics"
	"github.com/3leaps/bucketdeck/internal/observability"
	"github.com/3leaps/bucketdeck/internal/server/handlers"
	"github.com/3leaps/bucketdeck/pkg/filelist"
	"github.com/3leaps/bucketdeck/pkg/provider"
	"github.com/3leaps/bucketdeck/pkg/provider/factory"
)

var (
	cfgFile      string
	verbose      bool
	readOnly     bool
	profilesFile string
	profileName  string

	versionInfo = handlers.VersionInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

var rootCmd = &cobra.Command{
	Use:   "bucketdeck",
	Short: "List and delete uploaded objects in object storage",
	Long: `bucketdeck lists and deletes previously uploaded objects in S3, MinIO or a
local directory. Storage destinations come from a profiles file, the
BUCKETDECK_* environment or a config file.

Examples:
  bucketdeck profiles
  bucketdeck list --profile photos --images
  bucketdeck delete 2024/a.png --profile photos
  bucketdeck serve --readonly`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitCLILogger(config.AppName, verbose)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ./bucketdeck.yaml, then the app data dir)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVar(&readOnly, "readonly", false, "Refuse every delete")
	pf.StringVar(&profilesFile, "profiles", "", "Storage profiles file (YAML or JSON)")
	pf.StringVar(&profileName, "profile", "", "Profile name (default: the file's active profile)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo records build metadata for the version command and /version.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// exitCodeError carries the process exit code for a failed command.
type exitCodeError struct {
	code    int
	message string
	err     error
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.message, e.err, e.code)
}

func (e *exitCodeError) Unwrap() error { return e.err }

func exitError(code int, message string, err error) error {
	return &exitCodeError{code: code, message: message, err: err}
}

// ExitCode returns the exit code carried by err: 0 for nil, the exitError
// code when present, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

// loadConfig loads the configuration with the root flags applied on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := map[string]any{}
	if cfgFile != "" {
		overrides["config"] = cfgFile
	}
	if profilesFile != "" {
		overrides["storage.profiles_file"] = profilesFile
	}
	if profileName != "" {
		overrides["storage.profile"] = profileName
	}
	if readOnly {
		overrides["readonly"] = true
	}
	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	return cfg, nil
}

// resolveStorage selects the storage destination from cfg.
func resolveStorage(cfg *config.Config) (provider.StorageConfig, error) {
	sc, err := cfg.ResolveStorage()
	if err != nil {
		if errors.Is(err, config.ErrNoStorage) {
			return sc, exitError(foundry.ExitInvalidArgument, "No storage configured",
				fmt.Errorf("%w: pass --profiles or set storage.type", err))
		}
		return sc, exitError(foundry.ExitFileReadError, "Invalid storage profile", err)
	}
	return sc, nil
}

// newFactory builds the provider factory for cfg. Providers are instrumented
// when instrument is set.
func newFactory(cfg *config.Config, instrument bool) *factory.Factory {
	opts := []factory.Option{factory.WithDomains(cfg.Resolver.VirtualHostedDomains...)}
	if instrument {
		opts = append(opts, factory.WithWrapper(metrics.Wrap))
	}
	return factory.New(opts...)
}

// newManager creates a file list manager for cfg.
func newManager(cfg *config.Config, f *factory.Factory, opts ...filelist.Option) *filelist.Manager {
	base := []filelist.Option{
		filelist.WithLogger(observability.CLILogger.Named("filelist")),
		filelist.WithTimeouts(cfg.Timeouts.List, cfg.Timeouts.Delete),
	}
	return filelist.New(f, append(base, opts...)...)
}

// effectiveReadOnly reports whether deletes are refused by flag or config.
func effectiveReadOnly(cfg *config.Config) bool {
	return readOnly || (cfg != nil && cfg.ReadOnly)
}

func logStorage(sc provider.StorageConfig) {
	r := sc.Redacted()
	observability.CLILogger.Debug("Using storage",
		zap.String("name", r.Name),
		zap.String("type", r.Type.String()),
		zap.String("bucket", r.Bucket),
		zap.String("endpoint", r.Endpoint),
		zap.String("path", r.Path))
}
