/*
Package volume manages the PersistentVolumeClaims that back job workspaces.

BACKGROUND

Each job (identified by its full name, e.g. "team/nightly build") gets a single
PersistentVolumeClaim per namespace. The claim outlives the pods that mount it,
so a job's workspace is kept between builds. The claim's name is derived from
the identity by names.ClaimName, and is the only link between the two: no
local state is kept, and every call lists the namespace's claims again.

CLAIM CREATION

EnsureForIdentity is called before a pod that mounts the workspace is
submitted. If no claim with the derived name exists, one is created with the
requested size, access modes and storage class. The reconciler doesn't wait for
the claim to bind. Pods reference it through ClaimVolume.

SIZE CHANGES

Claims are never patched. When the storage request of the existing claim
differs from the desired size, the claim is deleted and created again within
the same call. Sizes are compared as quantities, so "1Gi" and "1024Mi" are the
same size. Replacing the claim discards the workspace contents, so it must only
happen before the consuming pod is scheduled.

If the delete succeeds but the create fails, the claim is left absent and the
call returns a PartialReconciliation error. Calling EnsureForIdentity again is
safe: it sees no claim and creates one.

CLAIM DELETION

RemoveForIdentity deletes the claim when its job is deleted or renamed. Claims
can't be renamed, so a rename removes the claim of the old identity; a new one
is created by the next EnsureForIdentity for the new identity. Removing a claim
that doesn't exist succeeds.

CONCURRENCY

The reconciler holds no locks. Calls for different identities are independent.
Concurrent EnsureForIdentity calls for the same identity can both try to create
the claim; the loser gets a Conflict error and may list again. The API server's
name uniqueness is what guarantees there's at most one claim.
*/
package volume
