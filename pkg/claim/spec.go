package claim

import (
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/strs"
)

// AccessMode is one of the access modes a job claim may request.
type AccessMode string

const (
	ReadWriteOnce = AccessMode(corev1.ReadWriteOnce)
	ReadOnlyMany  = AccessMode(corev1.ReadOnlyMany)
	ReadWriteMany = AccessMode(corev1.ReadWriteMany)
)

const (
	// DefaultRequestedSize is the storage requested when the spec doesn't set
	// one.
	DefaultRequestedSize = "10Gi"

	// DefaultAccessMode is used when the spec doesn't list any access modes.
	DefaultAccessMode = ReadWriteOnce
)

// AccessModeOptions returns the access modes that can be selected for a job
// claim, in display order.
func AccessModeOptions() []AccessMode {
	return []AccessMode{ReadWriteOnce, ReadOnlyMany, ReadWriteMany}
}

// ParseAccessModes parses a comma separated list of access modes, such as
// "ReadWriteOnce,ReadOnlyMany". Empty entries are ignored.
func ParseAccessModes(str string) ([]AccessMode, error) {
	var modes []AccessMode
	for _, field := range strings.Split(str, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		mode := AccessMode(field)
		if !mode.valid() {
			return nil, errors.NewFriendlyError("unknown access mode %q, must be one of %s",
				field, optionsString())
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

func (mode AccessMode) valid() bool {
	for _, opt := range AccessModeOptions() {
		if mode == opt {
			return true
		}
	}
	return false
}

func optionsString() string {
	var opts []string
	for _, opt := range AccessModeOptions() {
		opts = append(opts, string(opt))
	}
	return strings.Join(opts, ", ")
}

// Spec describes the claim that should back a job's workspace. The zero value
// is usable and resolves to the defaults. Specs are compared by their
// storage properties only; the job they're bound to isn't part of the spec.
type Spec struct {
	RequestedSize    string       `json:"requestedSize,omitempty"`
	AccessModes      []AccessMode `json:"accessModes,omitempty"`
	StorageClassName string       `json:"storageClassName,omitempty"`
}

// RequestedSizeOrDefault returns the requested size, or DefaultRequestedSize
// if none was set.
func (spec Spec) RequestedSizeOrDefault() string {
	if spec.RequestedSize == "" {
		return DefaultRequestedSize
	}
	return spec.RequestedSize
}

// RequestedQuantity parses the requested size with the same parser used by
// the API server, so that "1Gi" and "1024Mi" compare as equal.
func (spec Spec) RequestedQuantity() (resource.Quantity, error) {
	q, err := resource.ParseQuantity(spec.RequestedSizeOrDefault())
	if err != nil {
		return resource.Quantity{}, errors.WithContext(
			fmt.Sprintf("parse requested size %q", spec.RequestedSizeOrDefault()), err)
	}
	return q, nil
}

// AccessModesOrDefault returns the deduplicated access modes, or
// DefaultAccessMode if none were set.
func (spec Spec) AccessModesOrDefault() []corev1.PersistentVolumeAccessMode {
	var modes []string
	for _, mode := range spec.AccessModes {
		modes = append(modes, string(mode))
	}
	modes = strs.Unique(modes)

	if len(modes) == 0 {
		return []corev1.PersistentVolumeAccessMode{corev1.PersistentVolumeAccessMode(DefaultAccessMode)}
	}

	var result []corev1.PersistentVolumeAccessMode
	for _, mode := range modes {
		result = append(result, corev1.PersistentVolumeAccessMode(mode))
	}
	return result
}

// StorageClassOrDefault returns the storage class to request. A nil result
// lets the cluster pick its default class.
func (spec Spec) StorageClassOrDefault() *string {
	if spec.StorageClassName == "" {
		return nil
	}
	class := spec.StorageClassName
	return &class
}

// ResourceRequests returns the resource requests for the claim: a single
// storage entry built from RequestedSizeOrDefault.
func (spec Spec) ResourceRequests() (corev1.ResourceList, error) {
	q, err := spec.RequestedQuantity()
	if err != nil {
		return nil, err
	}
	return corev1.ResourceList{corev1.ResourceStorage: q}, nil
}

// Validate checks that the spec can be turned into a claim.
func (spec Spec) Validate() error {
	q, err := spec.RequestedQuantity()
	if err != nil {
		return err
	}
	if q.Sign() <= 0 {
		return errors.New("requested size must be positive, got %q", spec.RequestedSizeOrDefault())
	}

	for _, mode := range spec.AccessModes {
		if !mode.valid() {
			return errors.New("unknown access mode %q, must be one of %s", mode, optionsString())
		}
	}
	return nil
}

// Equal returns whether the two specs describe the same storage. Sizes are
// compared as quantities, and access modes as sets.
func (spec Spec) Equal(other Spec) bool {
	if !sizesEqual(spec.RequestedSizeOrDefault(), other.RequestedSizeOrDefault()) {
		return false
	}

	if spec.StorageClassName != other.StorageClassName {
		return false
	}

	return equalModes(spec.AccessModesOrDefault(), other.AccessModesOrDefault())
}

func sizesEqual(a, b string) bool {
	qa, errA := resource.ParseQuantity(a)
	qb, errB := resource.ParseQuantity(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return qa.Cmp(qb) == 0
}

func equalModes(a, b []corev1.PersistentVolumeAccessMode) bool {
	if len(a) != len(b) {
		return false
	}

	sorted := func(modes []corev1.PersistentVolumeAccessMode) []string {
		var out []string
		for _, mode := range modes {
			out = append(out, string(mode))
		}
		sort.Strings(out)
		return out
	}

	sa, sb := sorted(a), sorted(b)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
