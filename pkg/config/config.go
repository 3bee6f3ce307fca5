package config

import (
	"os"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/lifecycle"
	"github.com/kelda/jobpvc/pkg/strs"
)

// DefaultPath is where the config file is read from unless another path is
// given.
const DefaultPath = "~/.jobpvc.yaml"

const (
	// ManagedLabel is set on every claim created by jobpvc.
	ManagedLabel = "jobpvc.kelda.io/managed"

	// DefaultIdentityLabel records the job identity on created claims.
	DefaultIdentityLabel = "jobpvc.kelda.io/identity"
)

var fs = afero.NewOsFs()

// Config is the contents of the config file.
type Config struct {
	// Namespace is where claims are created by default.
	Namespace string `json:"namespace,omitempty"`

	// WatchNamespace is the namespace whose Jobs are watched for lifecycle
	// events. Empty means all namespaces.
	WatchNamespace string `json:"watchNamespace,omitempty"`

	// Targets are the namespaces that claims are removed from when a job is
	// deleted or renamed. Defaults to Namespace.
	Targets []string `json:"targets,omitempty"`

	// Labels are added to every created claim, on top of ManagedLabel.
	Labels map[string]string `json:"labels,omitempty"`

	IdentityLabel      string `json:"identityLabel,omitempty"`
	IdentityAnnotation string `json:"identityAnnotation,omitempty"`

	ListenAddress    string `json:"listenAddress,omitempty"`
	MinServerVersion string `json:"minServerVersion,omitempty"`
	Workers          int    `json:"workers,omitempty"`
}

// Default returns the config used when there's no config file.
func Default() Config {
	return Config{
		Namespace:          "default",
		Labels:             map[string]string{ManagedLabel: "true"},
		IdentityLabel:      DefaultIdentityLabel,
		IdentityAnnotation: lifecycle.DefaultIdentityAnnotation,
		ListenAddress:      ":8080",
		MinServerVersion:   ">= 1.23",
		Workers:            4,
	}
}

// Load reads the config file at path. Fields that aren't set in the file keep
// their default value. A missing file isn't an error.
func Load(path string) (Config, error) {
	cfg := Default()

	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, errors.WithContext("expand config path", err)
	}

	cfgBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.WithContext("read", err)
	}

	if err := yaml.Unmarshal(cfgBytes, &cfg); err != nil {
		return Config{}, errors.NewFriendlyError(
			"Failed to parse config file %s. Please make sure it's valid YAML.\n\n"+
				"The full error was: %s", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.WithContext("validate", err)
	}
	return cfg, nil
}

// Save writes the config to path.
func (cfg Config) Save(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return errors.WithContext("expand config path", err)
	}

	cfgBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext("marshal yaml", err)
	}

	if err := afero.WriteFile(fs, path, cfgBytes, 0600); err != nil {
		return errors.WithContext("write", err)
	}
	return nil
}

// TargetNamespaces returns the namespaces to remove claims from.
func (cfg Config) TargetNamespaces() []string {
	if len(cfg.Targets) == 0 {
		return []string{cfg.Namespace}
	}
	return strs.Unique(cfg.Targets)
}

// CheckTarget returns an error if claims created in the namespace wouldn't be
// removed when their job goes away, because the namespace isn't a target.
func (cfg Config) CheckTarget(namespace string) error {
	for _, target := range cfg.TargetNamespaces() {
		if target == namespace {
			return nil
		}
	}
	return errors.NewFriendlyError(
		"Namespace %q isn't one of the target namespaces %v. "+
			"Claims there wouldn't be removed when their job is deleted. "+
			"Add it to `targets` in the config file.", namespace, cfg.TargetNamespaces())
}

// Validate checks that the namespaces and labels are accepted by Kubernetes.
func (cfg Config) Validate() error {
	var problems []string
	for _, ns := range append([]string{cfg.Namespace}, cfg.Targets...) {
		for _, msg := range validation.IsDNS1123Label(ns) {
			problems = append(problems, "namespace "+ns+": "+msg)
		}
	}

	var keys []string
	for key := range cfg.Labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, msg := range validation.IsQualifiedName(key) {
			problems = append(problems, "label key "+key+": "+msg)
		}
		for _, msg := range validation.IsValidLabelValue(cfg.Labels[key]) {
			problems = append(problems, "label "+key+" value: "+msg)
		}
	}

	if cfg.IdentityLabel != "" {
		for _, msg := range validation.IsQualifiedName(cfg.IdentityLabel) {
			problems = append(problems, "identity label: "+msg)
		}
	}

	if cfg.Workers < 0 {
		problems = append(problems, "workers must not be negative")
	}

	if len(problems) != 0 {
		return errors.NewFriendlyError("Invalid config:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
