package version

import "os"

var (
	// Version is set at build time with -ldflags.
	Version = ""

	// ControllerImage is the image the pvc-controller is deployed from.
	ControllerImage = ""
)

func init() {
	repo, ok := os.LookupEnv("JOBPVC_DOCKER_REPO")
	if !ok || repo == "" {
		return
	}

	ControllerImage = repo + "/jobpvc-controller:" + Version
}
