package strs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnique(t *testing.T) {
	assert.Nil(t, Unique(nil))
	assert.Equal(t, []string{"ReadWriteOnce"}, Unique([]string{"ReadWriteOnce", "ReadWriteOnce"}))
	assert.Equal(t, []string{"b", "a", "c"}, Unique([]string{"b", "a", "b", "c", "a"}))
}
