package names

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/kelda/jobpvc/pkg/hash"
)

// ClaimPrefix is prepended to every claim name so that job claims never
// collide with claims created by other tools in the same namespace.
const ClaimPrefix = "pvc-"

var (
	claimInvalidChars = regexp.MustCompile(`[^0-9a-z\-._]`)
	labelInvalidChars = regexp.MustCompile(`[^-a-z0-9]`)
)

// ClaimName returns the PersistentVolumeClaim name used for the given job
// identity. The identity is percent-decoded, trimmed, has its spaces and
// slashes turned into dashes, and is lowercased before being prefixed. Any
// remaining character that Kubernetes doesn't allow is dropped.
//
// The result is not guaranteed to be a valid DNS-1123 subdomain. For example,
// an identity made only of symbols becomes "pvc-", and underscores are kept.
// Use ValidClaimName to find out before sending the name to the API server.
func ClaimName(identity string) string {
	decoded, err := url.QueryUnescape(identity)
	if err != nil {
		// Malformed escapes are left alone rather than failing the whole
		// name.
		decoded = identity
	}

	name := strings.TrimSpace(decoded)
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "/", "-")
	name = ClaimPrefix + asciiLower(name)
	return claimInvalidChars.ReplaceAllString(name, "")
}

// ValidClaimName returns the reasons the given name would be rejected by the
// API server. An empty result means the name is valid.
func ValidClaimName(name string) []string {
	return validation.IsDNS1123Subdomain(name)
}

// asciiLower lowercases A-Z only, so the result doesn't depend on Unicode
// special cases such as the Turkish dotted I.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ToDNS1123 returns a readable name for the given identifier that is safe to
// use as a label value.
// DNS-1123 is defined as:
// 1) Lowercase alphanumeric.
// 2) The `-` character can also be used in any interior character
//    of the string.
// 3) Max of 63 characters.
func ToDNS1123(id string) string {
	// Use a sanitized version of the identifier as a prefix for readibility
	// when listing claims by label.
	sanitized := strings.ToLower(id)
	sanitized = labelInvalidChars.ReplaceAllString(sanitized, "")
	sanitized = strings.TrimLeft(sanitized, "-")
	sanitized = strings.TrimRight(sanitized, "-")

	// Don't use the full permitted name length so that we have room for the
	// hash. The final name must be less than 64 characters.
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}

	// If the identifier consists purely of prohibited characters, we make
	// sure the sanitized name is nonempty. If sanitized == "", the generated
	// name would start with a "-", which is not DNS-1123 compliant.
	if len(sanitized) == 0 {
		sanitized = "empty"
	}

	// Also append a hash to distinguish between identifiers that are
	// identical after being sanitized.
	h := hash.DNSCompliant(id)
	if len(h) > 10 {
		h = h[:10]
	}

	return fmt.Sprintf("%s-%s", sanitized, h)
}
