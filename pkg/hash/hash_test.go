package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDNSCompliant(t *testing.T) {
	assert.Equal(t, "cc5ebc646150889d82afa36a0f8ebcf0", DNSCompliant("job1"))
	assert.Len(t, DNSCompliant(""), 32)
	assert.NotEqual(t, DNSCompliant("job1"), DNSCompliant("job2"))
}
