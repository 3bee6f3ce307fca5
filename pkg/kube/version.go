package kube

import (
	"github.com/Masterminds/semver"
	"k8s.io/client-go/discovery"

	"github.com/kelda/jobpvc/pkg/errors"
)

// CheckServerVersion returns an error if the API server's version doesn't
// satisfy the given constraint, e.g. ">= 1.23". An empty constraint accepts
// any version.
func CheckServerVersion(client discovery.ServerVersionInterface, constraint string) (string, error) {
	info, err := client.ServerVersion()
	if err != nil {
		return "", errors.WithContext("get server version", err)
	}

	if constraint == "" {
		return info.GitVersion, nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", errors.WithContext("parse version constraint", err)
	}

	serverVersion, err := semver.NewVersion(info.GitVersion)
	if err != nil {
		return "", errors.WithContext("parse server version", err)
	}

	// Managed clusters report versions such as v1.28.3-gke.1200, which
	// semver treats as prereleases that never satisfy a plain constraint.
	release, err := serverVersion.SetPrerelease("")
	if err != nil {
		return "", errors.WithContext("strip prerelease", err)
	}
	release, err = release.SetMetadata("")
	if err != nil {
		return "", errors.WithContext("strip metadata", err)
	}

	if !c.Check(&release) {
		return info.GitVersion, errors.NewFriendlyError(
			"Kubernetes %s is not supported. The server version must be %s.",
			info.GitVersion, constraint)
	}
	return info.GitVersion, nil
}
