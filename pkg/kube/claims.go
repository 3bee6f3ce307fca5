package kube

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/kelda/jobpvc/pkg/errors"
)

// ClaimStore reads and writes PersistentVolumeClaims through the Kubernetes
// API. It satisfies volume.Store.
type ClaimStore struct {
	kubeClient kubernetes.Interface
}

// NewClaimStore returns a ClaimStore backed by the given client.
func NewClaimStore(kubeClient kubernetes.Interface) ClaimStore {
	return ClaimStore{kubeClient}
}

// List returns every claim in the namespace. Filtering is done by the caller
// so that it doesn't depend on server side field selectors.
func (store ClaimStore) List(ctx context.Context, namespace string) ([]corev1.PersistentVolumeClaim, error) {
	claims, err := store.kubeClient.CoreV1().PersistentVolumeClaims(namespace).
		List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.WithContext("list pvcs", err)
	}
	return claims.Items, nil
}

// Create creates the claim in the namespace. If a claim with the same name
// exists, the returned error satisfies kerrors.IsAlreadyExists.
func (store ClaimStore) Create(ctx context.Context, namespace string, pvc *corev1.PersistentVolumeClaim) (
	*corev1.PersistentVolumeClaim, error) {

	created, err := store.kubeClient.CoreV1().PersistentVolumeClaims(namespace).
		Create(ctx, pvc, metav1.CreateOptions{})
	if err != nil {
		return nil, errors.WithContext("create pvc", err)
	}
	return created, nil
}

// Delete deletes the given claim. It returns false if the claim no longer
// exists.
func (store ClaimStore) Delete(ctx context.Context, pvc *corev1.PersistentVolumeClaim) (bool, error) {
	var opts metav1.DeleteOptions

	// Only delete the claim we looked at, and not one that was recreated in
	// the meantime.
	if pvc.UID != "" {
		opts.Preconditions = metav1.NewUIDPreconditions(string(pvc.UID))
	}

	err := store.kubeClient.CoreV1().PersistentVolumeClaims(pvc.Namespace).
		Delete(ctx, pvc.Name, opts)
	switch {
	case err == nil:
		return true, nil
	case kerrors.IsNotFound(err):
		return false, nil
	default:
		return false, errors.WithContext("delete pvc", err)
	}
}
