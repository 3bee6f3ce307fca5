package remove

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kelda/jobpvc/cli/util"
	"github.com/kelda/jobpvc/pkg/errors"
)

func New(flags *util.GlobalFlags) *cobra.Command {
	var allTargets bool
	cmd := &cobra.Command{
		Use:   "remove IDENTITY",
		Short: "Delete the claim of a job",
		Run: func(_ *cobra.Command, args []string) {
			if len(args) != 1 {
				errors.HandleFatalError(errors.NewFriendlyError("Exactly one identity is required"))
			}

			if err := run(*flags, args[0], allTargets); err != nil {
				errors.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().BoolVar(&allTargets, "all-targets", false,
		"Remove the claim from every target namespace in the config file.")
	return cmd
}

func run(flags util.GlobalFlags, identity string, allTargets bool) error {
	env, err := util.Setup(flags)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if allTargets {
		if err := env.LifecycleHandler().Remove(ctx, identity); err != nil {
			return errors.WithContext("remove claims", err)
		}
		fmt.Printf("Removed the claims of %q from %v\n", identity, env.Config.TargetNamespaces())
		return nil
	}

	if err := env.Reconciler.RemoveForIdentity(ctx, identity, env.Namespace); err != nil {
		return err
	}
	fmt.Printf("Removed the claim of %q from namespace %s\n", identity, env.Namespace)
	return nil
}
