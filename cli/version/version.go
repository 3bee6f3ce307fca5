package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kelda/jobpvc/pkg/version"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jobpvc version",
		Run: func(_ *cobra.Command, _ []string) {
			v := version.Version
			if v == "" {
				v = "latest"
			}
			fmt.Println(v)
		},
	}
}
