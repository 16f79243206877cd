package hashutil

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Blake3Hash returns the hex blake3-256 digest of data. Artifact filenames
// are derived from it, so equal content maps to equal names.
func Blake3Hash(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sha3256Hash returns the hex sha3-256 digest of data. API keys are stored
// and looked up by this digest.
func Sha3256Hash(data []byte) string {
	hash := sha3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
