package lifecycle

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/util/workqueue"
)

// maxRetries is the maximum number of times to retry removing the claims of
// an identity before giving up.
const maxRetries = 4

// Handler is a Listener that removes the claims of old identities from all
// targets.
type Handler struct {
	targets []Target
	queue   workqueue.RateLimitingInterface
}

// NewHandler returns a Handler that removes claims from the given targets.
// Events are queued until Run is called.
func NewHandler(targets []Target) *Handler {
	return &Handler{
		targets: targets,
		queue:   workqueue.NewRateLimitingQueue(workqueue.DefaultControllerRateLimiter()),
	}
}

func (h *Handler) OnDeleted(identity string) {
	log.WithField("identity", identity).Info("Job deleted. Removing its claims.")
	h.queue.Add(identity)
}

func (h *Handler) OnRenamed(oldIdentity, newIdentity string) {
	if oldIdentity == newIdentity {
		return
	}

	log.WithFields(log.Fields{
		"oldIdentity": oldIdentity,
		"newIdentity": newIdentity,
	}).Info("Job renamed. Removing the claims of the old name.")
	h.queue.Add(oldIdentity)
}

func (h *Handler) OnLocationChanged(oldIdentity, newIdentity string) {
	h.OnRenamed(oldIdentity, newIdentity)
}

// Run processes queued identities with the given number of workers until the
// context is cancelled.
func (h *Handler) Run(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !h.runWorker(ctx) {
			}
		}()
	}

	<-ctx.Done()
	h.queue.ShutDown()
	wg.Wait()
}

func (h *Handler) runWorker(ctx context.Context) (shutdown bool) {
	key, shutdown := h.queue.Get()
	if shutdown {
		return true
	}
	defer h.queue.Done(key)

	identity, ok := key.(string)
	if !ok {
		log.WithField("key", key).Warn("Unexpected non-string key")
		h.queue.Forget(key)
		return false
	}

	if err := h.removeEverywhere(ctx, identity); err != nil {
		log.WithError(err).WithField("identity", identity).
			Error("Failed to remove claims")
		h.requeue(key)
		return false
	}

	h.queue.Forget(key)
	return false
}

// Remove removes the identity's claims from all targets right away, without
// going through the queue. Failures aren't retried.
func (h *Handler) Remove(ctx context.Context, identity string) error {
	return h.removeEverywhere(ctx, identity)
}

// removeEverywhere removes the identity's claim from all targets in
// parallel. A failure in one target doesn't stop the others.
func (h *Handler) removeEverywhere(ctx context.Context, identity string) error {
	var group errgroup.Group
	for _, target := range h.targets {
		target := target
		group.Go(func() error {
			err := target.Remover.RemoveForIdentity(ctx, identity, target.Namespace)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"identity":  identity,
					"namespace": target.Namespace,
				}).Warn("Failed to remove claim")
			}
			return err
		})
	}
	return group.Wait()
}

func (h *Handler) requeue(key interface{}) {
	if h.queue.NumRequeues(key) < maxRetries {
		h.queue.AddRateLimited(key)
	} else {
		log.WithField("identity", key).Warn(
			"Too many claim removal failures. Not requeueing. " +
				"The claims must be removed manually.")
		h.queue.Forget(key)
	}
}
