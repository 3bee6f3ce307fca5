package kube

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/kelda/jobpvc/pkg/errors"
)

// WaitForObject blocks until the validator accepts the object returned by
// objectGetter, or the context is done. The object is fetched again whenever
// the watch fires, and at least every five seconds.
func WaitForObject(ctx context.Context,
	objectGetter func(context.Context) (interface{}, error),
	watchFn func(context.Context, metav1.ListOptions) (watch.Interface, error),
	validator func(interface{}) bool) error {

	watcher, err := watchFn(ctx, metav1.ListOptions{})
	if err != nil {
		return errors.WithContext("watch", err)
	}
	defer watcher.Stop()

	watcherChan := watcher.ResultChan()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		obj, err := objectGetter(ctx)
		if err != nil {
			return errors.WithContext("get", err)
		}

		if validator(obj) {
			return nil
		}

		if err := waitForChange(ctx, &watcherChan, ticker.C); err != nil {
			return err
		}
	}
}

// waitForChange blocks until the watch fires, the ticker fires, or the context
// is done. If the server ends the watch, the channel is set to nil so that
// only the ticker is used from then on.
func waitForChange(ctx context.Context, watcherChan *<-chan watch.Event, tick <-chan time.Time) error {
	for {
		select {
		case _, ok := <-*watcherChan:
			if ok {
				return nil
			}
			*watcherChan = nil
		case <-tick:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitForClaimBound blocks until the claim is bound to a volume.
func WaitForClaimBound(ctx context.Context, kubeClient kubernetes.Interface, namespace, name string) error {
	pvcClient := kubeClient.CoreV1().PersistentVolumeClaims(namespace)
	watchClaim := func(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error) {
		opts.FieldSelector = fields.OneTermEqualSelector("metadata.name", name).String()
		return pvcClient.Watch(ctx, opts)
	}
	return WaitForObject(ctx,
		ClaimGetter(kubeClient, namespace, name),
		watchClaim,
		func(pvcIntf interface{}) bool {
			return pvcIntf.(*corev1.PersistentVolumeClaim).Status.Phase == corev1.ClaimBound
		})
}

// ClaimGetter returns an object getter for WaitForObject that fetches the
// claim.
func ClaimGetter(kubeClient kubernetes.Interface, namespace, name string) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		return kubeClient.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, metav1.GetOptions{})
	}
}
