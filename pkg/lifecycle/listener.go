// Package lifecycle removes the claims of jobs that go away.
//
// Events come from the source that owns the jobs (the Job informer in this
// package, or the HTTP API), and are delivered to a Listener. The Handler
// implementation queues the affected identities, and removes their claims
// from every configured namespace in the background.
package lifecycle

import "context"

// Listener is notified when a job identity stops being used.
type Listener interface {
	// OnDeleted is called after the job was deleted.
	OnDeleted(identity string)

	// OnRenamed is called after the job was renamed. The claim of the new
	// identity is created lazily the next time the job runs.
	OnRenamed(oldIdentity, newIdentity string)

	// OnLocationChanged is called after the job moved, e.g. to another
	// folder. Since the location is part of the identity, it's handled like
	// a rename.
	OnLocationChanged(oldIdentity, newIdentity string)
}

// Remover deletes the claim of an identity from a namespace.
type Remover interface {
	RemoveForIdentity(ctx context.Context, identity, namespace string) error
}

// Target is a namespace that claims should be removed from.
type Target struct {
	Namespace string
	Remover   Remover
}
