package name

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/names"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "name IDENTITY",
		Short: "Print the claim name used for a job identity",
		Run: func(_ *cobra.Command, args []string) {
			if len(args) != 1 {
				errors.HandleFatalError(errors.NewFriendlyError("Exactly one identity is required"))
			}

			name := names.ClaimName(args[0])
			fmt.Println(name)
			if problems := names.ValidClaimName(name); len(problems) != 0 {
				fmt.Fprintf(os.Stderr, "WARNING: Kubernetes will reject this name: %s\n",
					strings.Join(problems, "; "))
				os.Exit(1)
			}
		},
	}
}
