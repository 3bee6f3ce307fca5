package util

import (
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"

	"github.com/kelda/jobpvc/pkg/config"
	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/kube"
	"github.com/kelda/jobpvc/pkg/lifecycle"
	"github.com/kelda/jobpvc/pkg/volume"
)

// GlobalFlags are the flags shared by every command.
type GlobalFlags struct {
	ConfigPath  string
	KubeContext string
	Namespace   string
}

// Register adds the flags to the command and its children.
func (flags *GlobalFlags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", config.DefaultPath,
		"The path to the config file.")
	cmd.PersistentFlags().StringVar(&flags.KubeContext, "kube-context", "",
		"The kubeconfig context to use. Defaults to the current context.")
	cmd.PersistentFlags().StringVarP(&flags.Namespace, "namespace", "n", "",
		"The namespace of the claim. Defaults to the namespace in the config file.")
}

// Env holds the clients used by commands that talk to the cluster.
type Env struct {
	Config     config.Config
	Namespace  string
	KubeClient kubernetes.Interface
	Reconciler *volume.Reconciler
}

// Setup loads the config file, and connects to the cluster.
func Setup(flags GlobalFlags) (Env, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return Env{}, errors.WithContext("load config", err)
	}

	namespace := cfg.Namespace
	if flags.Namespace != "" {
		namespace = flags.Namespace
	}

	kubeClient, _, err := kube.GetClient(flags.KubeContext)
	if err != nil {
		return Env{}, errors.NewFriendlyError(
			"Failed to connect to the Kubernetes cluster. "+
				"Please check your kubeconfig.\n\nThe full error was: %s", err)
	}

	return Env{
		Config:     cfg,
		Namespace:  namespace,
		KubeClient: kubeClient,
		Reconciler: volume.NewReconciler(kube.NewClaimStore(kubeClient),
			volume.WithLabels(cfg.Labels),
			volume.WithIdentityLabel(cfg.IdentityLabel)),
	}, nil
}

// LifecycleHandler returns a handler that removes claims from every target
// namespace in the config.
func (env Env) LifecycleHandler() *lifecycle.Handler {
	var targets []lifecycle.Target
	for _, ns := range env.Config.TargetNamespaces() {
		targets = append(targets, lifecycle.Target{Namespace: ns, Remover: env.Reconciler})
	}
	return lifecycle.NewHandler(targets)
}
