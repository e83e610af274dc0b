package main

import (
	"fmt"
	"os"

	"github.com/3leaps/bucketdeck/internal/cmd"
	"github.com/3leaps/bucketdeck/internal/observability"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	err := cmd.Execute()
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cmd.ExitCode(err))
	}
}
