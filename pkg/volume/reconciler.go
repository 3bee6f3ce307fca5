package volume

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kelda/jobpvc/pkg/claim"
	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/names"
)

// Store is the access to a cluster's PersistentVolumeClaims needed by the
// Reconciler. Errors should use the Kubernetes API error types, so that
// conflicts and validation failures can be told apart from other failures.
type Store interface {
	// List returns every claim in the namespace.
	List(ctx context.Context, namespace string) ([]corev1.PersistentVolumeClaim, error)

	// Create creates the claim. It must fail with an AlreadyExists error if a
	// claim with the same name exists.
	Create(ctx context.Context, namespace string, pvc *corev1.PersistentVolumeClaim) (
		*corev1.PersistentVolumeClaim, error)

	// Delete deletes the claim, and returns whether anything was removed.
	Delete(ctx context.Context, pvc *corev1.PersistentVolumeClaim) (bool, error)
}

// Reconciler converges the claims of job identities towards their desired
// spec.
type Reconciler struct {
	store         Store
	labels        map[string]string
	identityLabel string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLabels sets the labels applied to every created claim.
func WithLabels(labels map[string]string) Option {
	return func(r *Reconciler) {
		r.labels = map[string]string{}
		for k, v := range labels {
			r.labels[k] = v
		}
	}
}

// WithIdentityLabel sets the label key that records a label-safe version of
// the job identity on created claims.
func WithIdentityLabel(key string) Option {
	return func(r *Reconciler) {
		r.identityLabel = key
	}
}

// NewReconciler returns a Reconciler that operates on the given store.
func NewReconciler(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureForIdentity makes sure that the claim for the given identity exists in
// the namespace with the requested size, and returns it. An existing claim of
// another size is deleted and created again.
//
// Callers must not call EnsureForIdentity concurrently for the same identity
// and namespace.
func (r *Reconciler) EnsureForIdentity(ctx context.Context, identity, namespace string,
	spec claim.Spec) (*corev1.PersistentVolumeClaim, error) {

	name := names.ClaimName(identity)
	fail := func(kind Kind, err error) error {
		return &Error{
			Kind:      kind,
			Op:        "ensure",
			Namespace: namespace,
			Identity:  identity,
			Name:      name,
			Spec:      &spec,
			Err:       err,
		}
	}

	if err := validateTarget(identity, namespace); err != nil {
		return nil, fail(KindValidation, err)
	}
	if problems := names.ValidClaimName(name); len(problems) != 0 {
		return nil, fail(KindValidation, errors.New("invalid claim name %q: %s",
			name, strings.Join(problems, "; ")))
	}
	if err := spec.Validate(); err != nil {
		return nil, fail(KindValidation, errors.WithContext("validate spec", err))
	}

	desired, err := spec.RequestedQuantity()
	if err != nil {
		return nil, fail(KindValidation, err)
	}

	logger := log.WithFields(log.Fields{
		"namespace": namespace,
		"name":      name,
		"identity":  identity,
	})

	existing, err := r.findByName(ctx, namespace, name)
	if err != nil {
		return nil, fail(KindStoreUnavailable, err)
	}

	var replaced bool
	if existing != nil {
		actual, ok := existing.Spec.Resources.Requests[corev1.ResourceStorage]
		if ok && actual.Cmp(desired) == 0 {
			logger.Debug("Claim is up to date")
			return existing, nil
		}

		logger.WithFields(log.Fields{
			"actual":  actual.String(),
			"desired": desired.String(),
		}).Info("Claim size differs from the requested size. Replacing the claim.")

		removed, err := r.store.Delete(ctx, existing)
		if err != nil {
			return nil, fail(KindDeleteFailed, errors.WithContext("delete outdated claim", err))
		}
		if removed {
			logger.Info("Removed claim")
		} else {
			logger.Info("Outdated claim was already removed")
		}
		replaced = true

		// Don't start the create if we were cancelled after the delete, so
		// that the caller knows the claim is gone.
		if err := ctx.Err(); err != nil {
			return nil, fail(KindPartialReconciliation, err)
		}
	}

	pvc := r.newClaim(identity, namespace, name, spec)
	created, err := r.store.Create(ctx, namespace, pvc)
	if err != nil {
		err = errors.WithContext("create claim", err)
		switch {
		// The replaced claim may still be terminating, so an AlreadyExists
		// here doesn't mean someone else created an up to date claim.
		case replaced:
			return nil, fail(KindPartialReconciliation, err)
		case kerrors.IsAlreadyExists(err):
			return nil, fail(KindConflict, err)
		case kerrors.IsInvalid(err):
			return nil, fail(KindValidation, err)
		default:
			return nil, fail(KindStoreUnavailable, err)
		}
	}

	logger.WithField("size", desired.String()).Info("Created claim")
	return created, nil
}

// RemoveForIdentity deletes the claim for the given identity, if it exists.
// Failures aren't retried.
func (r *Reconciler) RemoveForIdentity(ctx context.Context, identity, namespace string) error {
	name := names.ClaimName(identity)
	fail := func(kind Kind, err error) error {
		return &Error{
			Kind:      kind,
			Op:        "remove",
			Namespace: namespace,
			Identity:  identity,
			Name:      name,
			Err:       err,
		}
	}

	if err := validateTarget(identity, namespace); err != nil {
		return fail(KindValidation, err)
	}

	logger := log.WithFields(log.Fields{
		"namespace": namespace,
		"name":      name,
		"identity":  identity,
	})

	existing, err := r.findByName(ctx, namespace, name)
	if err != nil {
		return fail(KindStoreUnavailable, err)
	}

	if existing == nil {
		logger.Debug("No claim to remove")
		return nil
	}

	removed, err := r.store.Delete(ctx, existing)
	if err != nil {
		return fail(KindDeleteFailed, errors.WithContext("delete claim", err))
	}
	if removed {
		logger.Info("Removed claim")
	}
	return nil
}

// findByName lists the claims in the namespace, and returns the one with the
// given name. It returns nil if there is no such claim.
func (r *Reconciler) findByName(ctx context.Context, namespace, name string) (
	*corev1.PersistentVolumeClaim, error) {

	claims, err := r.store.List(ctx, namespace)
	if err != nil {
		return nil, errors.WithContext("list claims", err)
	}

	for i := range claims {
		if claims[i].Name == name {
			return &claims[i], nil
		}
	}
	return nil, nil
}

func (r *Reconciler) newClaim(identity, namespace, name string, spec claim.Spec) *corev1.PersistentVolumeClaim {
	labels := map[string]string{}
	for k, v := range r.labels {
		labels[k] = v
	}
	if r.identityLabel != "" {
		labels[r.identityLabel] = names.ToDNS1123(identity)
	}

	// The spec was validated by the caller.
	requests, _ := spec.ResourceRequests()
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: spec.AccessModesOrDefault(),
			Resources: corev1.VolumeResourceRequirements{
				Requests: requests,
			},
			StorageClassName: spec.StorageClassOrDefault(),
		},
	}
}

func validateTarget(identity, namespace string) error {
	if strings.TrimSpace(identity) == "" {
		return errors.New("identity is required")
	}
	if namespace == "" {
		return errors.New("namespace is required")
	}
	return nil
}
