// Package volumetest provides an in-memory volume.Store for tests.
package volumetest

import (
	"context"
	"sort"
	"sync"

	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Call records a single call made to the Store.
type Call struct {
	Op        string
	Namespace string
	Name      string
}

var claimsResource = schema.GroupResource{Resource: "persistentvolumeclaims"}

// Store is an in-memory volume.Store. The hooks, if set, run before the
// corresponding operation and abort it when they return an error. Hooks run
// without holding the store's lock, so they may call back into the store.
type Store struct {
	ListHook   func(namespace string) error
	CreateHook func(pvc *corev1.PersistentVolumeClaim) error
	DeleteHook func(pvc *corev1.PersistentVolumeClaim) error

	mu     sync.Mutex
	claims map[string]corev1.PersistentVolumeClaim
	calls  []Call
}

// NewStore returns a Store containing the given claims.
func NewStore(claims ...corev1.PersistentVolumeClaim) *Store {
	s := &Store{claims: map[string]corev1.PersistentVolumeClaim{}}
	for _, pvc := range claims {
		s.claims[key(pvc.Namespace, pvc.Name)] = *pvc.DeepCopy()
	}
	return s
}

func (s *Store) List(_ context.Context, namespace string) ([]corev1.PersistentVolumeClaim, error) {
	s.record(Call{Op: "list", Namespace: namespace})
	if s.ListHook != nil {
		if err := s.ListHook(namespace); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var claims []corev1.PersistentVolumeClaim
	for _, pvc := range s.claims {
		if pvc.Namespace == namespace {
			claims = append(claims, *pvc.DeepCopy())
		}
	}
	sort.Slice(claims, func(i, j int) bool {
		return claims[i].Name < claims[j].Name
	})
	return claims, nil
}

func (s *Store) Create(_ context.Context, namespace string, pvc *corev1.PersistentVolumeClaim) (
	*corev1.PersistentVolumeClaim, error) {

	s.record(Call{Op: "create", Namespace: namespace, Name: pvc.Name})
	if s.CreateHook != nil {
		if err := s.CreateHook(pvc); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(namespace, pvc.Name)
	if _, ok := s.claims[k]; ok {
		return nil, kerrors.NewAlreadyExists(claimsResource, pvc.Name)
	}

	created := pvc.DeepCopy()
	created.Namespace = namespace
	s.claims[k] = *created
	return created.DeepCopy(), nil
}

func (s *Store) Delete(_ context.Context, pvc *corev1.PersistentVolumeClaim) (bool, error) {
	s.record(Call{Op: "delete", Namespace: pvc.Namespace, Name: pvc.Name})
	if s.DeleteHook != nil {
		if err := s.DeleteHook(pvc); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(pvc.Namespace, pvc.Name)
	if _, ok := s.claims[k]; !ok {
		return false, nil
	}
	delete(s.claims, k)
	return true, nil
}

// Get returns the stored claim, if any.
func (s *Store) Get(namespace, name string) (corev1.PersistentVolumeClaim, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pvc, ok := s.claims[key(namespace, name)]
	return *pvc.DeepCopy(), ok
}

// Calls returns every call made so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountOps returns how many calls of the given operation were made.
func (s *Store) CountOps(op string) int {
	var n int
	for _, call := range s.Calls() {
		if call.Op == op {
			n++
		}
	}
	return n
}

func (s *Store) record(call Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

// Reset forgets the recorded calls.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func key(namespace, name string) string {
	return namespace + "/" + name
}
