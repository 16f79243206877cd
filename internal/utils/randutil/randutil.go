package randutil

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// RandomString returns a URL-safe random string built from length bytes of
// crypto/rand entropy. The encoded result is longer than length.
func RandomString(length int) (string, error) {
	key := make([]byte, length)

	if _, err := rand.Read(key); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(key), nil
}

// MaskString hides the middle of s, keeping visibleStart leading and
// visibleEnd trailing characters. Strings too short to mask are returned
// whole.
func MaskString(s string, visibleStart, visibleEnd int) string {
	if len(s) <= visibleStart+visibleEnd {
		return s
	}

	start := s[:visibleStart]
	end := s[len(s)-visibleEnd:]

	return start + strings.Repeat("*", len(s)-(visibleStart+visibleEnd)) + end
}
