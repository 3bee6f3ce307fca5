package ensure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kelda/jobpvc/pkg/errors"
	"github.com/kelda/jobpvc/pkg/volume"
)

func TestFriendlyReconcileError(t *testing.T) {
	tests := []struct {
		name        string
		kind        volume.Kind
		expFriendly bool
	}{
		{"Conflict", volume.KindConflict, true},
		{"Partial", volume.KindPartialReconciliation, true},
		{"Unavailable", volume.KindStoreUnavailable, false},
		{"Validation", volume.KindValidation, false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := &volume.Error{
				Kind:      test.kind,
				Op:        "ensure",
				Namespace: "ci",
				Identity:  "job1",
				Name:      "pvc-job1",
				Err:       errors.New("boom"),
			}

			_, isFriendly := friendlyReconcileError(err).(errors.FriendlyError)
			assert.Equal(t, test.expFriendly, isFriendly)
		})
	}
}
