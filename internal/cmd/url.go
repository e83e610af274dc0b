package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/bucketdeck/pkg/provider"
	"github.com/3leaps/bucketdeck/pkg/publicurl"
)

var urlCmd = &cobra.Command{
	Use:   "url <key>...",
	Short: "Print the public URL of object keys",
	Long: `Print the public URL of each key without contacting the storage backend.

With --bucket the URL is resolved from --endpoint and --bucket directly;
otherwise the configured storage destination is used.

Examples:
  bucketdeck url 2024/a.png --profile photos
  bucketdeck url a.png --endpoint https://cos.ap-guangzhou.myqcloud.com --bucket media-1250000000
  bucketdeck url a.png --endpoint http://localhost:9000 --bucket uploads`,
	Args: cobra.MinimumNArgs(1),
	RunE: runURL,
}

var (
	urlEndpoint string
	urlBucket   string
)

func init() {
	rootCmd.AddCommand(urlCmd)
	urlCmd.Flags().StringVar(&urlEndpoint, "endpoint", "", "Endpoint, with or without scheme (used with --bucket)")
	urlCmd.Flags().StringVar(&urlBucket, "bucket", "", "Bucket to resolve against instead of the configured storage")
}

func runURL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var resolve func(string) string
	if urlBucket != "" {
		if urlEndpoint == "" {
			return exitError(foundry.ExitInvalidArgument, "Missing --endpoint", fmt.Errorf("--bucket requires --endpoint"))
		}
		r := publicurl.New(cfg.Resolver.VirtualHostedDomains...)
		resolve = func(key string) string { return r.Resolve(urlEndpoint, urlBucket, key) }
	} else {
		sc, err := resolveStorage(cfg)
		if err != nil {
			return err
		}
		p, err := newFactory(cfg, false).Create(sc)
		if err != nil {
			if provider.IsUnsupported(err) {
				return exitError(foundry.ExitInvalidArgument, "Storage type has no provider", err)
			}
			return exitError(foundry.ExitInvalidArgument, "Invalid storage configuration", err)
		}
		if c, ok := p.(io.Closer); ok {
			defer func() { _ = c.Close() }()
		}

		resolver, ok := p.(provider.URLResolver)
		if !ok {
			return exitError(foundry.ExitInvalidArgument, "Provider cannot resolve URLs", provider.ErrUnsupported)
		}
		resolve = resolver.URL
	}

	out := cmd.OutOrStdout()
	for _, key := range args {
		if _, err := fmt.Fprintln(out, resolve(strings.TrimPrefix(key, "/"))); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}
	return nil
}
