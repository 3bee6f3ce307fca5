package rename

import (
	"context"
	"fmt"

	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"

	"github.com/kelda/jobpvc/cli/util"
	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/names"
)

func New(flags *util.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Clean up after a job was renamed",
		Long: dedent.Dedent(`
		Remove the claims of the old job identity from every target namespace.

		The claim for the new identity isn't created. It's created the next time the
		job runs "jobpvc ensure".
		`),
		Run: func(_ *cobra.Command, args []string) {
			if len(args) != 2 {
				errors.HandleFatalError(errors.NewFriendlyError("The old and new identity are required"))
			}

			if err := run(*flags, args[0], args[1]); err != nil {
				errors.HandleFatalError(err)
			}
		},
	}
}

func run(flags util.GlobalFlags, oldIdentity, newIdentity string) error {
	if names.ClaimName(oldIdentity) == names.ClaimName(newIdentity) {
		fmt.Println("Both identities use the same claim. Nothing to do.")
		return nil
	}

	env, err := util.Setup(flags)
	if err != nil {
		return err
	}

	if err := env.LifecycleHandler().Remove(context.Background(), oldIdentity); err != nil {
		return errors.WithContext("remove old claims", err)
	}
	fmt.Printf("Removed the claims of %q\n", oldIdentity)
	return nil
}
