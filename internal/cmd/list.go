package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketdeck/internal/observability"
	"github.com/3leaps/bucketdeck/pkg/output"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List objects in the configured storage",
	Long: `List the objects under the configured bucket and path, newest first.

Output is JSONL by default: one bucketdeck.object.v1 record per object and a
closing bucketdeck.summary.v1 record. Filters narrow what is printed, not what
is listed.

Examples:
  bucketdeck list --profiles profiles.yaml --profile photos
  bucketdeck list --images --after 2024-01-01 --output table
  bucketdeck list --include '**/*.{png,jpg}' --exclude 'drafts/**'`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listOutput string
	listSel    selectorFlags
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listOutput, "output", "jsonl", "Output format (jsonl|table)")
	listSel.register(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if listOutput != "jsonl" && listOutput != "table" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", fmt.Errorf("expected jsonl or table"))
	}
	sel, err := listSel.selector()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := resolveStorage(cfg)
	if err != nil {
		return err
	}
	logStorage(sc)

	m := newManager(cfg, newFactory(cfg, false))
	defer func() { _ = m.Close() }()

	out := cmd.OutOrStdout()
	w := output.NewJSONLWriter(out, output.NewSessionID(), sc.Type.String())
	defer func() { _ = w.Close() }()

	start := time.Now()
	if err := m.SetConfig(ctx, sc); err != nil {
		observability.CLILogger.Error("Failed to list objects", zap.Error(err))
		if listOutput == "jsonl" {
			_ = w.WriteError(ctx, output.ErrorFrom(err, ""))
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to list objects", err)
	}
	snap := m.Snapshot()
	if !snap.Supported {
		return exitError(foundry.ExitInvalidArgument, "Storage type has no provider",
			fmt.Errorf("%q: %w", sc.Type, provider.ErrUnsupported))
	}

	items := sel.Apply(snap.Items)
	observability.CLILogger.Debug("Listed objects",
		zap.Int("listed", len(snap.Items)),
		zap.Int("shown", len(items)),
		zap.String("filter", sel.String()))

	if listOutput == "table" {
		return writeObjectTable(out, items)
	}

	for _, it := range items {
		if err := w.WriteObject(ctx, output.ObjectFromDescriptor(it)); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	elapsed := time.Since(start)
	sum := summarize(snap.Items, items)
	sum.Bucket = sc.Bucket
	if sc.Type == provider.ProviderFile {
		sum.Bucket = sc.BaseDir
	}
	sum.Prefix = sc.Prefix()
	sum.Duration = elapsed
	sum.DurationHuman = elapsed.Round(time.Millisecond).String()
	if err := w.WriteSummary(ctx, sum); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}

func summarize(listed, shown []provider.ObjectDescriptor) *output.SummaryRecord {
	sum := &output.SummaryRecord{ObjectsListed: int64(len(listed)), ObjectsShown: int64(len(shown))}
	for _, it := range shown {
		sum.BytesTotal += it.Size
		if it.IsImage {
			sum.Images++
		}
	}
	return sum
}

func writeObjectTable(out io.Writer, items []provider.ObjectDescriptor) error {
	if out == nil {
		out = os.Stdout
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED\tIMAGE\tURL"); err != nil {
		return err
	}
	for _, it := range items {
		image := "no"
		if it.IsImage {
			image = "yes"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			it.Key,
			formatSize(it.Size),
			it.LastModified.UTC().Format(time.RFC3339),
			image,
			it.URL,
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}
