package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/linkcheck/internal/report"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK = 0
	// exitFailure covers broken links as well as usage and runtime errors.
	exitFailure = 1
	// exitInvariant signals a tally that does not reconcile, which is a
	// crawler defect rather than a problem with the checked site.
	exitInvariant = 2
)

// NewRootCmd creates the root command for linkcheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkcheck",
		Short: "Find broken links in a static site",
		Long: `linkcheck crawls a site from a start URL and checks every page and asset
it references. Only pages under the start URL are parsed for more links;
everything else is fetched once and checked for a 200 OK response.

When the start URL points at localhost, linkcheck serves the build
directory on that address for the duration of the check.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with a code derived from the
// returned error.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, report.ErrInvariantViolation):
		return exitInvariant
	default:
		return exitFailure
	}
}
