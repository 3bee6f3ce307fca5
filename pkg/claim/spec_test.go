package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

func TestDefaults(t *testing.T) {
	var spec Spec

	assert.Equal(t, "10Gi", spec.RequestedSizeOrDefault())
	assert.Equal(t, []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}, spec.AccessModesOrDefault())
	assert.Nil(t, spec.StorageClassOrDefault())

	requests, err := spec.ResourceRequests()
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, resource.MustParse("10Gi"), requests[corev1.ResourceStorage])
}

func TestExplicitValues(t *testing.T) {
	spec := Spec{
		RequestedSize:    "2Gi",
		AccessModes:      []AccessMode{ReadWriteMany, ReadOnlyMany, ReadWriteMany},
		StorageClassName: "fast",
	}

	assert.Equal(t, "2Gi", spec.RequestedSizeOrDefault())
	assert.Equal(t, []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany, corev1.ReadOnlyMany},
		spec.AccessModesOrDefault())
	if assert.NotNil(t, spec.StorageClassOrDefault()) {
		assert.Equal(t, "fast", *spec.StorageClassOrDefault())
	}

	// The returned class must not alias the spec.
	*spec.StorageClassOrDefault() = "slow"
	assert.Equal(t, "fast", spec.StorageClassName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		spec   Spec
		expErr bool
	}{
		{name: "zero value", spec: Spec{}},
		{name: "binary suffix", spec: Spec{RequestedSize: "512Mi"}},
		{name: "decimal suffix", spec: Spec{RequestedSize: "1G"}},
		{name: "garbage size", spec: Spec{RequestedSize: "ten gigs"}, expErr: true},
		{name: "zero size", spec: Spec{RequestedSize: "0"}, expErr: true},
		{name: "negative size", spec: Spec{RequestedSize: "-1Gi"}, expErr: true},
		{name: "unknown mode", spec: Spec{AccessModes: []AccessMode{"ReadWriteSometimes"}}, expErr: true},
		{name: "all modes", spec: Spec{AccessModes: AccessModeOptions()}},
	}

	for _, test := range tests {
		err := test.spec.Validate()
		if test.expErr {
			assert.Error(t, err, test.name)
		} else {
			assert.NoError(t, err, test.name)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Spec
		expEqual bool
	}{
		{
			name:     "zero values",
			expEqual: true,
		},
		{
			name:     "default size spelled out",
			a:        Spec{RequestedSize: "10Gi"},
			expEqual: true,
		},
		{
			name:     "same quantity different units",
			a:        Spec{RequestedSize: "1Gi"},
			b:        Spec{RequestedSize: "1024Mi"},
			expEqual: true,
		},
		{
			name: "different size",
			a:    Spec{RequestedSize: "1Gi"},
			b:    Spec{RequestedSize: "2Gi"},
		},
		{
			name: "different storage class",
			a:    Spec{StorageClassName: "fast"},
		},
		{
			name:     "access modes in another order",
			a:        Spec{AccessModes: []AccessMode{ReadWriteOnce, ReadOnlyMany}},
			b:        Spec{AccessModes: []AccessMode{ReadOnlyMany, ReadWriteOnce}},
			expEqual: true,
		},
		{
			name:     "default access mode spelled out",
			a:        Spec{AccessModes: []AccessMode{ReadWriteOnce}},
			expEqual: true,
		},
		{
			name: "different access modes",
			a:    Spec{AccessModes: []AccessMode{ReadWriteMany}},
		},
	}

	for _, test := range tests {
		assert.Equal(t, test.expEqual, test.a.Equal(test.b), test.name)
		assert.Equal(t, test.expEqual, test.b.Equal(test.a), test.name)
	}
}

func TestParseAccessModes(t *testing.T) {
	modes, err := ParseAccessModes("ReadWriteOnce, ReadOnlyMany,,")
	require.NoError(t, err)
	assert.Equal(t, []AccessMode{ReadWriteOnce, ReadOnlyMany}, modes)

	modes, err = ParseAccessModes("")
	require.NoError(t, err)
	assert.Empty(t, modes)

	_, err = ParseAccessModes("ReadWriteOnce,rwx")
	assert.EqualError(t, err,
		`unknown access mode "rwx", must be one of ReadWriteOnce, ReadOnlyMany, ReadWriteMany`)
}
