package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/bucketdeck/internal/config"
	"github.com/3leaps/bucketdeck/pkg/profile"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show the configured storage profiles",
	Long: `Show the storage profiles from the profiles file, marking the active one.
Credentials are redacted.

Examples:
  bucketdeck profiles --profiles profiles.yaml
  bucketdeck profiles --output json
  bucketdeck profiles validate profiles.yaml`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

var profilesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a profiles file against the schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesValidate,
}

var profilesOutput string

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesValidateCmd)
	profilesCmd.Flags().StringVar(&profilesOutput, "output", "table", "Output format (table|json)")
}

// profileView is the redacted JSON form of one profile.
type profileView struct {
	Active bool `json:"active"`
	provider.StorageConfig
}

func runProfiles(cmd *cobra.Command, args []string) error {
	if profilesOutput != "table" && profilesOutput != "json" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", fmt.Errorf("expected table or json"))
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f, path, err := cfg.Profiles()
	switch {
	case errors.Is(err, config.ErrNoStorage):
		return exitError(foundry.ExitFileNotFound, "No profiles file", fmt.Errorf("pass --profiles or create %s in the app data dir", config.DefaultProfilesFile))
	case err != nil:
		return exitError(foundry.ExitFileReadError, "Failed to load profiles "+path, err)
	}

	active := f.Active
	if profileName != "" {
		active = profileName
	}

	views := make([]profileView, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		views = append(views, profileView{Active: p.Name == active, StorageConfig: p.Redacted()})
	}

	out := cmd.OutOrStdout()
	if profilesOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ACTIVE\tNAME\tTYPE\tBUCKET\tENDPOINT\tPATH"); err != nil {
		return err
	}
	for _, v := range views {
		mark := ""
		if v.Active {
			mark = "*"
		}
		bucket := v.Bucket
		if v.Type == provider.ProviderFile {
			bucket = v.BaseDir
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, v.Name, v.Type, bucket, v.Endpoint, v.Path); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runProfilesValidate(cmd *cobra.Command, args []string) error {
	f, err := profile.Load(args[0])
	if err != nil {
		var verrs profile.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", errorIcon, ve.Error())
			}
			return exitError(foundry.ExitInvalidArgument, "Profiles file is invalid", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to read profiles file", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d profile(s), active %q\n", successIcon, args[0], len(f.Profiles), f.Active)
	return err
}
