package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketdeck/internal/observability"
	"github.com/3leaps/bucketdeck/pkg/filelist"
	"github.com/3leaps/bucketdeck/pkg/match"
	"github.com/3leaps/bucketdeck/pkg/output"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [key...]",
	Short: "Delete objects from the configured storage",
	Long: `Delete objects by key, or every listed object that matches the filters.

Each delete is confirmed interactively unless --yes is given. Keys must be
present in the current listing. Deletes are refused under --readonly.

Examples:
  bucketdeck delete 2024/a.png
  bucketdeck delete --include 'tmp/**' --yes
  bucketdeck delete --before 2023-01-01 --images --output jsonl`,
	RunE: runDelete,
}

var (
	deleteYes    bool
	deleteOutput string
	deleteSel    selectorFlags

	errReadOnly = errors.New("readonly mode enabled: deletes are disabled")
	errNoTarget = errors.New("pass one or more keys or a filter such as --include")
)

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not prompt before each delete")
	deleteCmd.Flags().StringVar(&deleteOutput, "output", "table", "Output format (jsonl|table)")
	deleteSel.register(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if readOnly {
		return exitError(foundry.ExitInvalidArgument, "Delete refused", errReadOnly)
	}
	if deleteOutput != "jsonl" && deleteOutput != "table" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", fmt.Errorf("expected jsonl or table"))
	}
	if len(args) == 0 && !deleteSel.narrowed() {
		return exitError(foundry.ExitInvalidArgument, "Nothing to delete", errNoTarget)
	}
	sel, err := deleteSel.selector()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if effectiveReadOnly(cfg) {
		return exitError(foundry.ExitInvalidArgument, "Delete refused", errReadOnly)
	}
	sc, err := resolveStorage(cfg)
	if err != nil {
		return err
	}
	logStorage(sc)

	w := output.NewJSONLWriter(cmd.OutOrStdout(), output.NewSessionID(), sc.Type.String())
	defer func() { _ = w.Close() }()

	var notifier filelist.Notifier = consoleNotifier{out: cmd.ErrOrStderr()}
	if deleteOutput == "jsonl" {
		notifier = jsonlNotifier{ctx: ctx, w: w}
	}
	var confirmer filelist.Confirmer = filelist.AllowAll
	if !deleteYes {
		confirmer = newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
	}

	m := newManager(cfg, newFactory(cfg, false),
		filelist.WithConfirmer(confirmer),
		filelist.WithNotifier(notifier))
	defer func() { _ = m.Close() }()

	if err := m.SetConfig(ctx, sc); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to list objects", err)
	}
	snap := m.Snapshot()
	if !snap.Supported {
		return exitError(foundry.ExitInvalidArgument, "Storage type has no provider",
			fmt.Errorf("%q: %w", sc.Type, provider.ErrUnsupported))
	}

	targets, missing := deleteTargets(snap, args, sel)
	for _, key := range missing {
		observability.CLILogger.Warn("Key not in listing", zap.String("key", key))
		if deleteOutput == "jsonl" {
			_ = w.WriteError(ctx, &output.ErrorRecord{Code: output.ErrCodeNotFound, Message: "object not in the current listing", Key: key})
		}
	}

	var deleted, skipped, failed int
	for _, obj := range targets {
		err := m.DeleteFile(ctx, obj)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, filelist.ErrNotConfirmed):
			skipped++
		default:
			failed++
			if ctx.Err() != nil {
				return exitError(foundry.ExitSignalInt, "Delete interrupted", ctx.Err())
			}
		}
	}

	observability.CLILogger.Info("Delete finished",
		zap.Int("deleted", deleted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("missing", len(missing)))

	if failed > 0 || len(missing) > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable, "Some deletes failed",
			fmt.Errorf("%d failed, %d not found", failed, len(missing)))
	}
	return nil
}

// deleteTargets returns the objects to delete, in listing order for filter
// matches and argument order for keys, along with keys absent from snap.
func deleteTargets(snap filelist.Snapshot, keys []string, sel *match.Selector) (targets []provider.ObjectDescriptor, missing []string) {
	if len(keys) == 0 {
		return sel.Apply(snap.Items), nil
	}

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		obj, ok := snap.Find(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		if sel.Match(&obj) {
			targets = append(targets, obj)
		}
	}
	return targets, missing
}
