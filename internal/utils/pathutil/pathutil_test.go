package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/.glyphworks", want: filepath.Join(home, ".glyphworks")},
		{name: "nested", in: "~/a/b/c", want: filepath.Join(home, "a", "b", "c")},
		{name: "absolute passes through", in: "/var/lib/glyph", want: "/var/lib/glyph"},
		{name: "relative passes through", in: "data/models", want: "data/models"},
		{name: "other user passes through", in: "~bob/data", want: "~bob/data"},
		{name: "empty passes through", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
