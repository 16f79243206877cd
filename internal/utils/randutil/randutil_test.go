package randutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomString(t *testing.T) {
	first, err := RandomString(32)
	require.NoError(t, err)
	require.Len(t, first, 43)
	require.NotContains(t, first, "=")

	second, err := RandomString(32)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestMaskString(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		start, end int
		want       string
	}{
		{name: "masks middle", in: "abcdefghij", start: 4, end: 4, want: "abcd**ghij"},
		{name: "short strings pass through", in: "abc", start: 4, end: 4, want: "abc"},
		{name: "asymmetric window", in: "sk-12345678", start: 4, end: 2, want: "sk-1*****78"},
		{name: "exact length passes through", in: "abcdefgh", start: 4, end: 4, want: "abcdefgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MaskString(tt.in, tt.start, tt.end))
		})
	}
}
