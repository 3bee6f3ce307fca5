package volume

import (
	goerrors "errors"
	"fmt"

	"github.com/kelda/jobpvc/pkg/claim"
)

// Kind classifies why a reconciliation failed.
type Kind int

const (
	// KindValidation means the identity, namespace, spec, or derived claim
	// name can't be turned into a claim. Nothing was changed.
	KindValidation Kind = iota + 1

	// KindStoreUnavailable means a call to the cluster failed for a reason
	// other than the ones below, e.g. connectivity or authorization.
	KindStoreUnavailable

	// KindConflict means the claim was created by someone else between our
	// list and our create. Listing again will find it.
	KindConflict

	// KindPartialReconciliation means an outdated claim was deleted but the
	// replacement couldn't be created. The claim is absent.
	KindPartialReconciliation

	// KindDeleteFailed means the claim couldn't be deleted, and may be left
	// behind.
	KindDeleteFailed
)

func (kind Kind) String() string {
	switch kind {
	case KindValidation:
		return "invalid claim"
	case KindStoreUnavailable:
		return "cluster unavailable"
	case KindConflict:
		return "claim already exists"
	case KindPartialReconciliation:
		return "claim deleted but not recreated"
	case KindDeleteFailed:
		return "delete failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(kind))
	}
}

// Error is returned by every failed Reconciler operation. It carries enough
// information to log the failure and retry the operation.
type Error struct {
	Kind Kind

	// Op is the operation that failed, "ensure" or "remove".
	Op        string
	Namespace string
	Identity  string
	Name      string

	// Spec is the desired spec. It is only set by ensure.
	Spec *claim.Spec

	Err error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s: %s", err.Context(), err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}

// Cause and Context make Error an errors.ContextError, so that RootCause and
// GetPrintableMessage see through it.
func (err *Error) Cause() error {
	return err.Err
}

func (err *Error) Context() string {
	return fmt.Sprintf("%s claim %s/%s for %q: %s",
		err.Op, err.Namespace, err.Name, err.Identity, err.Kind)
}

// IsValidation returns whether the error, or one it wraps, is a validation
// error.
func IsValidation(err error) bool {
	return isKind(err, KindValidation)
}

// IsStoreUnavailable returns whether the cluster couldn't be reached.
func IsStoreUnavailable(err error) bool {
	return isKind(err, KindStoreUnavailable)
}

// IsConflict returns whether another actor created the claim first.
func IsConflict(err error) bool {
	return isKind(err, KindConflict)
}

// IsPartialReconciliation returns whether the claim was deleted for a size
// change and not created again. Callers should retry EnsureForIdentity.
func IsPartialReconciliation(err error) bool {
	return isKind(err, KindPartialReconciliation)
}

// IsDeleteFailed returns whether the claim couldn't be deleted.
func IsDeleteFailed(err error) bool {
	return isKind(err, KindDeleteFailed)
}

func isKind(err error, kind Kind) bool {
	var volumeErr *Error
	return goerrors.As(err, &volumeErr) && volumeErr.Kind == kind
}
