package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/aws/aws-sdk-go-v2/config"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appconfig "github.com/3leaps/bucketdeck/internal/config"
	"github.com/3leaps/bucketdeck/internal/observability"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

var (
	doctorList bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the environment and the storage configuration.

S3 credentials are checked when the selected storage is s3. With --list the
configured destination is listed once.

Examples:
  bucketdeck doctor
  bucketdeck doctor --profiles profiles.yaml --profile photos --list`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorList, "list", false, "Also list the configured storage")
}

// doctorRun numbers checks and remembers whether any failed.
type doctorRun struct {
	n      int
	failed bool
}

func (d *doctorRun) pass(what, detail string, fields ...zap.Field) {
	d.n++
	observability.CLILogger.Info(fmt.Sprintf("[%d] %s... ✅ %s", d.n, what, detail), fields...)
}

func (d *doctorRun) fail(what, detail string, fields ...zap.Field) {
	d.n++
	d.failed = true
	observability.CLILogger.Error(fmt.Sprintf("[%d] %s... ❌ %s", d.n, what, detail), fields...)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d := &doctorRun{}

	observability.CLILogger.Info("=== bucketdeck doctor ===")

	goVersion := runtime.Version()
	d.pass("Checking Go runtime", goVersion, zap.String("go_version", goVersion))

	version := crucible.GetVersion()
	if version.Gofulmen != "" {
		d.pass("Checking Gofulmen", "v"+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
	} else {
		d.fail("Checking Gofulmen", "version unavailable")
	}

	dataDir := gfconfig.GetAppDataDir(appconfig.AppName)
	if dataDir != "" {
		d.pass("Checking data directory", dataDir, zap.String("data_dir", dataDir))
	} else {
		d.fail("Checking data directory", "cannot determine data directory")
	}

	d.pass("Checking environment", runtime.GOOS+"/"+runtime.GOARCH)

	cfg, err := loadConfig(cmd)
	if err != nil {
		d.fail("Loading configuration", "invalid", zap.Error(err))
		return doctorResult(d)
	}
	d.pass("Loading configuration", "ok", zap.Bool("readonly", effectiveReadOnly(cfg)))

	sc, err := resolveStorage(cfg)
	if err != nil {
		d.fail("Resolving storage", "no usable storage profile", zap.Error(err))
		return doctorResult(d)
	}
	r := sc.Redacted()
	d.pass("Resolving storage", fmt.Sprintf("%s (%s)", r.Name, r.Type),
		zap.String("bucket", r.Bucket), zap.String("endpoint", r.Endpoint), zap.String("path", r.Path))

	p, err := newFactory(cfg, false).Create(sc)
	switch {
	case provider.IsUnsupported(err):
		d.fail("Building provider", fmt.Sprintf("storage type %q has no provider", sc.Type))
		return doctorResult(d)
	case err != nil:
		d.fail("Building provider", "invalid configuration", zap.Error(err))
		return doctorResult(d)
	}
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
	d.pass("Building provider", sc.Type.String())

	if sc.Type == provider.ProviderS3 && sc.AccessKeyID == "" {
		runS3CredentialChecks(ctx, d, sc.Profile)
	}

	if doctorList {
		m := newManager(cfg, newFactory(cfg, false))
		err := m.SetConfig(ctx, sc)
		snap := m.Snapshot()
		_ = m.Close()
		if err != nil {
			d.fail("Listing storage", "failed", zap.Error(err))
		} else {
			d.pass("Listing storage", fmt.Sprintf("%d object(s)", len(snap.Items)))
		}
	}

	return doctorResult(d)
}

func doctorResult(d *doctorRun) error {
	if d.failed {
		observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		return exitError(foundry.ExitExternalServiceUnavailable, "Diagnostics failed", fmt.Errorf("%d check(s) run", d.n))
	}
	observability.CLILogger.Info("✅ All checks passed!")
	return nil
}

// runS3CredentialChecks resolves credentials through the default AWS chain.
func runS3CredentialChecks(ctx context.Context, d *doctorRun, profile string) {
	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		d.fail("Checking AWS credentials", "cannot load AWS config", zap.Error(err))
		printAWSCredentialsHelp()
		return
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		d.fail("Checking AWS credentials", "cannot retrieve credentials", zap.Error(err))
		printAWSCredentialsHelp()
		return
	}

	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	d.pass("Checking AWS credentials", "found credentials",
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)),
		zap.String("source", source))
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func printAWSCredentialsHelp() {
	observability.CLILogger.Info("To configure AWS credentials:")
	observability.CLILogger.Info("  1. Set access_key_id and secret_access_key in the profile, or")
	observability.CLILogger.Info("  2. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, or")
	observability.CLILogger.Info("  3. Run 'aws configure' and set the profile's aws profile field")
}
