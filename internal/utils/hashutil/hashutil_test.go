package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlake3Hash(t *testing.T) {
	// Reference digest of the empty input.
	require.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", Blake3Hash(nil))

	require.Equal(t, Blake3Hash([]byte("page one")), Blake3Hash([]byte("page one")))
	require.NotEqual(t, Blake3Hash([]byte("page one")), Blake3Hash([]byte("page two")))
	require.Len(t, Blake3Hash([]byte("page one")), 64)
}

func TestSha3256Hash(t *testing.T) {
	// Reference digest of the empty input.
	require.Equal(t, "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a", Sha3256Hash(nil))

	require.NotEqual(t, Sha3256Hash([]byte("key-a")), Sha3256Hash([]byte("key-b")))
	require.Len(t, Sha3256Hash([]byte("key-a")), 64)
}
