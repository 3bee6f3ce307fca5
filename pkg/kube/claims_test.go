package kube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	fakeKube "k8s.io/client-go/kubernetes/fake"
	kubeTesting "k8s.io/client-go/testing"

	"github.com/kelda/jobpvc/pkg/claim"
	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/volume"
)

const namespace = "ci"

var pvcResource = schema.GroupVersionResource{Version: "v1", Resource: "persistentvolumeclaims"}

func TestClaimStore(t *testing.T) {
	ctx := context.Background()
	kubeClient := fakeKube.NewSimpleClientset(claimObject("pvc-job1", "1Gi"))
	store := NewClaimStore(kubeClient)

	claims, err := store.List(ctx, namespace)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "pvc-job1", claims[0].Name)

	_, err = store.Create(ctx, namespace, claimObject("pvc-job1", "1Gi"))
	assert.True(t, kerrors.IsAlreadyExists(err))

	created, err := store.Create(ctx, namespace, claimObject("pvc-job2", "2Gi"))
	require.NoError(t, err)
	assert.Equal(t, "pvc-job2", created.Name)

	removed, err := store.Delete(ctx, created)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, created)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestClaimStoreErrors(t *testing.T) {
	ctx := context.Background()
	kubeClient := fakeKube.NewSimpleClientset(claimObject("pvc-job1", "1Gi"))
	kubeClient.PrependReactor("*", "persistentvolumeclaims",
		func(kubeTesting.Action) (bool, runtime.Object, error) {
			return true, nil, kerrors.NewForbidden(pvcResource.GroupResource(), "", errors.New("rbac"))
		})
	store := NewClaimStore(kubeClient)

	_, err := store.List(ctx, namespace)
	assert.True(t, kerrors.IsForbidden(err))

	_, err = store.Delete(ctx, claimObject("pvc-job1", "1Gi"))
	assert.True(t, kerrors.IsForbidden(err))
}

// The reconciler is exercised against the fake clientset to check the exact
// API calls made for each transition.
func TestReconcilerWithClaimStore(t *testing.T) {
	tests := []struct {
		name       string
		existing   []runtime.Object
		spec       claim.Spec
		expActions []string
	}{
		{
			name:       "Create",
			spec:       claim.Spec{RequestedSize: "10Gi"},
			expActions: []string{"list", "create"},
		},
		{
			name:       "UpToDate",
			existing:   []runtime.Object{claimObject("pvc-job1", "10Gi")},
			spec:       claim.Spec{RequestedSize: "10Gi"},
			expActions: []string{"list"},
		},
		{
			name:       "SameQuantity",
			existing:   []runtime.Object{claimObject("pvc-job1", "1Gi")},
			spec:       claim.Spec{RequestedSize: "1024Mi"},
			expActions: []string{"list"},
		},
		{
			name:       "Resize",
			existing:   []runtime.Object{claimObject("pvc-job1", "10Gi")},
			spec:       claim.Spec{RequestedSize: "20Gi"},
			expActions: []string{"list", "delete", "create"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			kubeClient := fakeKube.NewSimpleClientset(test.existing...)
			r := volume.NewReconciler(NewClaimStore(kubeClient))

			_, err := r.EnsureForIdentity(context.Background(), "job1", namespace, test.spec)
			require.NoError(t, err)
			assert.Equal(t, test.expActions, verbs(kubeClient.Actions()))

			pvc, err := kubeClient.CoreV1().PersistentVolumeClaims(namespace).
				Get(context.Background(), "pvc-job1", metav1.GetOptions{})
			require.NoError(t, err)
			expSize := resource.MustParse(test.spec.RequestedSize)
			actualSize := pvc.Spec.Resources.Requests[corev1.ResourceStorage]
			assert.Zero(t, expSize.Cmp(actualSize))
		})
	}
}

func TestReconcilerRemoveWithClaimStore(t *testing.T) {
	ctx := context.Background()
	kubeClient := fakeKube.NewSimpleClientset(claimObject("pvc-job1", "10Gi"))
	r := volume.NewReconciler(NewClaimStore(kubeClient))

	require.NoError(t, r.RemoveForIdentity(ctx, "job1", namespace))
	actions := kubeClient.Actions()
	require.Equal(t, []string{"list", "delete"}, verbs(actions))
	deleteAction := actions[1].(kubeTesting.DeleteAction)
	assert.Equal(t, namespace, deleteAction.GetNamespace())
	assert.Equal(t, "pvc-job1", deleteAction.GetName())

	kubeClient.ClearActions()
	require.NoError(t, r.RemoveForIdentity(ctx, "job1", namespace))
	assert.Equal(t, []string{"list"}, verbs(kubeClient.Actions()))
}

func TestReconcilerConflictWithClaimStore(t *testing.T) {
	kubeClient := fakeKube.NewSimpleClientset()

	// Another controller creates the claim right after we list.
	kubeClient.PrependReactor("create", "persistentvolumeclaims",
		func(action kubeTesting.Action) (bool, runtime.Object, error) {
			pvc := action.(kubeTesting.CreateAction).GetObject().(*corev1.PersistentVolumeClaim)
			return true, nil, kerrors.NewAlreadyExists(pvcResource.GroupResource(), pvc.Name)
		})
	r := volume.NewReconciler(NewClaimStore(kubeClient))

	_, err := r.EnsureForIdentity(context.Background(), "job1", namespace, claim.Spec{})
	assert.True(t, volume.IsConflict(err))
}

func verbs(actions []kubeTesting.Action) []string {
	var result []string
	for _, action := range actions {
		result = append(result, action.GetVerb())
	}
	return result
}

func claimObject(name, size string) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(size),
				},
			},
		},
	}
}
