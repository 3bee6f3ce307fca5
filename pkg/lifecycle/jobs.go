package lifecycle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"

	"github.com/kelda/jobpvc/pkg/errors"
)

// DefaultIdentityAnnotation is the Job annotation that holds the identity the
// job's claim was created for.
const DefaultIdentityAnnotation = "jobpvc.kelda.io/identity"

// JobIdentity returns the identity of the job. Jobs without the annotation
// use their name.
func JobIdentity(job *batchv1.Job, annotation string) string {
	if identity := job.Annotations[annotation]; identity != "" {
		return identity
	}
	return job.Name
}

// identityIndex indexes Jobs by their identity.
const identityIndex = "identity"

// WatchJobs notifies the listener when the last Job of an identity is
// deleted, or when a Job's identity annotation changes away from an identity
// that no other Job uses. Jobs are single runs, so a claim is shared by every
// Job with the same identity, and is kept while any of them exists. An empty
// namespace watches all namespaces. It returns once the informer's cache has synced, and stops
// watching when the context is cancelled.
func WatchJobs(ctx context.Context, kubeClient kubernetes.Interface, namespace, annotation string,
	listener Listener) error {

	if annotation == "" {
		annotation = DefaultIdentityAnnotation
	}

	informer := informers.NewSharedInformerFactoryWithOptions(kubeClient, 30*time.Second,
		informers.WithNamespace(namespace)).
		Batch().V1().Jobs().Informer()

	err := informer.AddIndexers(cache.Indexers{
		identityIndex: func(obj interface{}) ([]string, error) {
			job, ok := obj.(*batchv1.Job)
			if !ok {
				return nil, nil
			}
			return []string{JobIdentity(job, annotation)}, nil
		},
	})
	if err != nil {
		return errors.WithContext("add identity index", err)
	}

	// The indexer is updated before handlers are notified, so it no longer
	// contains the Job that triggered the event.
	inUse := func(identity string) bool {
		jobs, err := informer.GetIndexer().ByIndex(identityIndex, identity)
		if err != nil {
			log.WithError(err).WithField("identity", identity).
				Warn("Failed to look up jobs by identity. Keeping the claim.")
			return true
		}
		return len(jobs) != 0
	}

	_, err = informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		UpdateFunc: func(oldObj, newObj interface{}) {
			oldJob, oldOK := oldObj.(*batchv1.Job)
			newJob, newOK := newObj.(*batchv1.Job)
			if !oldOK || !newOK {
				return
			}

			oldIdentity := JobIdentity(oldJob, annotation)
			newIdentity := JobIdentity(newJob, annotation)
			if oldIdentity == newIdentity {
				return
			}

			if inUse(oldIdentity) {
				log.WithField("identity", oldIdentity).
					Debug("Other jobs still use the old identity. Keeping the claim.")
				return
			}
			listener.OnRenamed(oldIdentity, newIdentity)
		},
		DeleteFunc: func(obj interface{}) {
			if tombstone, ok := obj.(cache.DeletedFinalStateUnknown); ok {
				obj = tombstone.Obj
			}

			job, ok := obj.(*batchv1.Job)
			if !ok {
				log.WithField("obj", obj).Warn("Unexpected non-Job object")
				return
			}

			identity := JobIdentity(job, annotation)
			if inUse(identity) {
				log.WithFields(log.Fields{
					"identity": identity,
					"job":      job.Name,
				}).Debug("Other jobs still use the identity. Keeping the claim.")
				return
			}
			listener.OnDeleted(identity)
		},
	})
	if err != nil {
		return errors.WithContext("add event handler", err)
	}

	go informer.Run(ctx.Done())
	if !cache.WaitForCacheSync(ctx.Done(), informer.HasSynced) {
		return errors.New("job informer never synced")
	}
	return nil
}
