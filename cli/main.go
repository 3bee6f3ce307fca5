package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kelda/jobpvc/cli/ensure"
	"github.com/kelda/jobpvc/cli/name"
	"github.com/kelda/jobpvc/cli/remove"
	"github.com/kelda/jobpvc/cli/rename"
	"github.com/kelda/jobpvc/cli/util"
	"github.com/kelda/jobpvc/cli/version"
)

func main() {
	var flags util.GlobalFlags
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "jobpvc",
		Short: "Manage the persistent volume claims of CI jobs",

		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	flags.Register(rootCmd)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs.")

	rootCmd.AddCommand(
		ensure.New(&flags),
		name.New(),
		remove.New(&flags),
		rename.New(&flags),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
