package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelda/jobpvc/pkg/config"
	"github.com/kelda/jobpvc/pkg/kube"
	"github.com/kelda/jobpvc/pkg/lifecycle"
	"github.com/kelda/jobpvc/pkg/version"
	"github.com/kelda/jobpvc/pkg/volume"
	"github.com/kelda/jobpvc/pvc-controller/httpapi"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfgPath := flag.String("config", config.DefaultPath, "The path to the config file")
	kubeContext := flag.String("kube-context", "", "The kubeconfig context to use. Defaults to the current context")
	logLevel := flag.String("log-level", "info", "The minimum level of logs to print")
	listenAddress := flag.String("listen", "", "The address to serve the HTTP API on. Overrides the config file")
	namespace := flag.String("namespace", "", "The default namespace for claims. Overrides the config file")
	watchNamespace := flag.String("watch-namespace", "", "The namespace to watch Jobs in. Overrides the config file")
	workers := flag.Int("workers", 0, "The number of claims to remove in parallel. Overrides the config file")
	watchJobs := flag.Bool("watch-jobs", true, "Remove claims when their Job is deleted")
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.WithError(err).Fatal("Bad log level")
	}
	log.SetLevel(level)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	if *listenAddress != "" {
		cfg.ListenAddress = *listenAddress
	}
	if *namespace != "" {
		cfg.Namespace = *namespace
	}
	if *watchNamespace != "" {
		cfg.WatchNamespace = *watchNamespace
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	kubeClient, _, err := kube.GetClient(*kubeContext)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to cluster")
	}

	serverVersion, err := kube.CheckServerVersion(kubeClient.Discovery(), cfg.MinServerVersion)
	if err != nil {
		log.WithError(err).Fatal("Unsupported cluster")
	}
	log.WithFields(log.Fields{
		"version":       version.Version,
		"serverVersion": serverVersion,
		"namespace":     cfg.Namespace,
	}).Info("Starting pvc controller")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := volume.NewReconciler(kube.NewClaimStore(kubeClient),
		volume.WithLabels(cfg.Labels),
		volume.WithIdentityLabel(cfg.IdentityLabel))

	handler := lifecycle.NewHandler(makeTargets(reconciler, cfg.TargetNamespaces()))
	go handler.Run(ctx, cfg.Workers)

	if *watchJobs {
		if err := lifecycle.WatchJobs(ctx, kubeClient, cfg.WatchNamespace,
			cfg.IdentityAnnotation, handler); err != nil {
			log.WithError(err).Fatal("Failed to watch jobs")
		}
	}

	s := &server{
		reconciler: reconciler,
		listener:   handler,
		config:     cfg,
	}
	if err := s.listenAndServe(ctx, cfg.ListenAddress); err != nil {
		log.WithError(err).Error("Unexpected error")
		os.Exit(1)
	}
}

func makeTargets(remover lifecycle.Remover, namespaces []string) []lifecycle.Target {
	var targets []lifecycle.Target
	for _, ns := range namespaces {
		targets = append(targets, lifecycle.Target{Namespace: ns, Remover: remover})
	}
	return targets
}

func (s *server) listenAndServe(ctx context.Context, address string) error {
	httpServer, err := httpapi.New(address, s.handlers(), statusForError)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to shut down HTTP server")
		}
	}()

	log.WithField("address", address).Info("Listening for connections..")
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
