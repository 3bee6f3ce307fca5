package main

import (
	"context"
	"net/http"

	corev1 "k8s.io/api/core/v1"

	"github.com/kelda/jobpvc/pkg/claim"
	"github.com/kelda/jobpvc/pkg/config"
	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/lifecycle"
	"github.com/kelda/jobpvc/pkg/names"
	"github.com/kelda/jobpvc/pkg/volume"
)

// defaultVolumeName is the name of the pod volume returned by ensure when the
// request doesn't set one.
const defaultVolumeName = "workspace"

type EnsureRequest struct {
	Identity   string     `json:"identity"`
	Namespace  string     `json:"namespace,omitempty"`
	Spec       claim.Spec `json:"spec"`
	VolumeName string     `json:"volumeName,omitempty"`
}

type EnsureResponse struct {
	ClaimName string        `json:"claimName"`
	Namespace string        `json:"namespace"`
	Volume    corev1.Volume `json:"volume"`
}

type RemoveRequest struct {
	Identity  string `json:"identity"`
	Namespace string `json:"namespace,omitempty"`
}

type RemoveResponse struct{}

type DeletedRequest struct {
	Identity string `json:"identity"`
}

type RenamedRequest struct {
	OldIdentity string `json:"oldIdentity"`
	NewIdentity string `json:"newIdentity"`

	// LocationChanged is set when the job moved rather than being renamed.
	LocationChanged bool `json:"locationChanged,omitempty"`
}

type LifecycleResponse struct{}

type NameRequest struct {
	Identity string `json:"identity"`
}

type NameResponse struct {
	ClaimName string   `json:"claimName"`
	Problems  []string `json:"problems,omitempty"`
}

type server struct {
	reconciler *volume.Reconciler
	listener   lifecycle.Listener
	config     config.Config
}

func (s *server) handlers() map[string]interface{} {
	return map[string]interface{}{
		"/api/ensure":            s.Ensure,
		"/api/remove":            s.Remove,
		"/api/lifecycle/deleted": s.Deleted,
		"/api/lifecycle/renamed": s.Renamed,
		"/api/name":              s.Name,
	}
}

func (s *server) Ensure(ctx context.Context, req *EnsureRequest) (*EnsureResponse, error) {
	namespace := s.namespaceOrDefault(req.Namespace)

	// Lifecycle events only remove claims from the target namespaces.
	if err := s.config.CheckTarget(namespace); err != nil {
		return nil, badRequest(errors.GetPrintableMessage(err))
	}

	pvc, err := s.reconciler.EnsureForIdentity(ctx, req.Identity, namespace, req.Spec)
	if err != nil {
		return nil, err
	}

	volumeName := req.VolumeName
	if volumeName == "" {
		volumeName = defaultVolumeName
	}
	return &EnsureResponse{
		ClaimName: pvc.Name,
		Namespace: namespace,
		Volume:    volume.ClaimVolume(volumeName, pvc.Name),
	}, nil
}

func (s *server) Remove(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error) {
	namespace := s.namespaceOrDefault(req.Namespace)
	if err := s.reconciler.RemoveForIdentity(ctx, req.Identity, namespace); err != nil {
		return nil, err
	}
	return &RemoveResponse{}, nil
}

// Deleted queues the removal of the identity's claims. The claims are removed
// in the background.
func (s *server) Deleted(_ context.Context, req *DeletedRequest) (*LifecycleResponse, error) {
	if req.Identity == "" {
		return nil, badRequest("identity is required")
	}
	s.listener.OnDeleted(req.Identity)
	return &LifecycleResponse{}, nil
}

func (s *server) Renamed(_ context.Context, req *RenamedRequest) (*LifecycleResponse, error) {
	if req.OldIdentity == "" || req.NewIdentity == "" {
		return nil, badRequest("oldIdentity and newIdentity are required")
	}

	if req.LocationChanged {
		s.listener.OnLocationChanged(req.OldIdentity, req.NewIdentity)
	} else {
		s.listener.OnRenamed(req.OldIdentity, req.NewIdentity)
	}
	return &LifecycleResponse{}, nil
}

func (s *server) Name(_ context.Context, req *NameRequest) (*NameResponse, error) {
	name := names.ClaimName(req.Identity)
	return &NameResponse{
		ClaimName: name,
		Problems:  names.ValidClaimName(name),
	}, nil
}

func (s *server) namespaceOrDefault(namespace string) string {
	if namespace == "" {
		return s.config.Namespace
	}
	return namespace
}

type badRequestError struct{ msg string }

func (err badRequestError) Error() string { return err.msg }

func badRequest(msg string) error {
	return badRequestError{msg}
}

// statusForError maps reconciliation failures to the HTTP status returned to
// the caller.
func statusForError(err error) int {
	switch {
	case volume.IsValidation(err):
		return http.StatusBadRequest
	case volume.IsConflict(err):
		return http.StatusConflict
	case volume.IsStoreUnavailable(err):
		return http.StatusServiceUnavailable
	}

	if _, ok := err.(badRequestError); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
