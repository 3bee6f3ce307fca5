package ensure

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ghodss/yaml"
	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"

	"github.com/kelda/jobpvc/cli/util"
	"github.com/kelda/jobpvc/pkg/claim"
	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/kube"
	"github.com/kelda/jobpvc/pkg/volume"
)

type options struct {
	size         string
	accessModes  string
	storageClass string
	volumeName   string
	printVolume  bool
	wait         bool
	timeout      time.Duration
}

func New(flags *util.GlobalFlags) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "ensure IDENTITY",
		Short: "Create or resize the claim of a job",
		Long: dedent.Dedent(`
		Make sure that the claim of the job identity exists with the requested size.

		A claim with a different size is deleted and created again, so its data is lost.

		Examples:
		  # Create a 10Gi claim for the "release build" job.
		  jobpvc ensure "release build"

		  # Create a 50Gi claim in the ci namespace, and wait for it to be bound.
		  jobpvc ensure -n ci --size 50Gi --wait "team/nightly"
		`),
		Run: func(_ *cobra.Command, args []string) {
			if len(args) != 1 {
				errors.HandleFatalError(errors.NewFriendlyError("Exactly one identity is required"))
			}

			if err := run(*flags, args[0], opts); err != nil {
				errors.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVar(&opts.size, "size", claim.DefaultRequestedSize,
		"The requested storage size.")
	cmd.Flags().StringVar(&opts.accessModes, "access-mode", "",
		"Comma separated access modes. Defaults to "+string(claim.DefaultAccessMode)+".")
	cmd.Flags().StringVar(&opts.storageClass, "storage-class", "",
		"The storage class. Defaults to the cluster's default storage class.")
	cmd.Flags().StringVar(&opts.volumeName, "volume-name", "workspace",
		"The volume name used by --print-volume.")
	cmd.Flags().BoolVar(&opts.printVolume, "print-volume", false,
		"Print the pod volume that mounts the claim.")
	cmd.Flags().BoolVar(&opts.wait, "wait", false,
		"Wait for the claim to be bound to a volume.")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute,
		"How long to wait for the claim to be bound.")
	return cmd
}

func run(flags util.GlobalFlags, identity string, opts options) error {
	accessModes, err := claim.ParseAccessModes(opts.accessModes)
	if err != nil {
		return err
	}

	env, err := util.Setup(flags)
	if err != nil {
		return err
	}

	if err := env.Config.CheckTarget(env.Namespace); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	spec := claim.Spec{
		RequestedSize:    opts.size,
		AccessModes:      accessModes,
		StorageClassName: opts.storageClass,
	}
	pvc, err := env.Reconciler.EnsureForIdentity(ctx, identity, env.Namespace, spec)
	if err != nil {
		return friendlyReconcileError(err)
	}

	if opts.wait {
		pp := util.NewProgressPrinter(os.Stderr, "Waiting for the claim to be bound")
		go pp.Run()
		err := kube.WaitForClaimBound(ctx, env.KubeClient, env.Namespace, pvc.Name)
		pp.Stop()
		if err != nil {
			return errors.WithContext("wait for claim", err)
		}
	}

	if opts.printVolume {
		volumeYAML, err := yaml.Marshal(volume.ClaimVolume(opts.volumeName, pvc.Name))
		if err != nil {
			return errors.WithContext("marshal volume", err)
		}
		fmt.Print(string(volumeYAML))
		return nil
	}

	fmt.Printf("Claim %s is ready in namespace %s\n", pvc.Name, env.Namespace)
	return nil
}

func friendlyReconcileError(err error) error {
	switch {
	case volume.IsConflict(err):
		return errors.NewFriendlyError("The claim was created by someone else at the same time. "+
			"Please run the command again.\n\nThe full error was: %s", err)
	case volume.IsPartialReconciliation(err):
		return errors.NewFriendlyError("The old claim was deleted, but the new one couldn't be created. "+
			"Please run the command again to create it.\n\nThe full error was: %s", err)
	default:
		return err
	}
}
