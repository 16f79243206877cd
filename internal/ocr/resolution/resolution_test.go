package resolution

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  Params
	}{
		{"tiny", "Tiny", Params{BaseSize: 512, ImageSize: 512}},
		{"small", "Small", Params{BaseSize: 640, ImageSize: 640}},
		{"base", "Base", Params{BaseSize: 1024, ImageSize: 1024}},
		{"large", "Large", Params{BaseSize: 1280, ImageSize: 1280}},
		{"gundam enables crop mode", "Gundam", Params{BaseSize: 1024, ImageSize: 640, CropMode: true}},
		{"name embedded in a longer label", "XYZ Base mode", Params{BaseSize: 1024, ImageSize: 1024}},
		{"display style label", "Large (1280x1280)", Params{BaseSize: 1280, ImageSize: 1280}},
		{"earlier mode wins", "Tiny or Small", Params{BaseSize: 512, ImageSize: 512}},
		{"matching is case sensitive", "tiny", Params{BaseSize: 1024, ImageSize: 1024}},
		{"unknown label falls back to base", "4K Ultra", Params{BaseSize: 1024, ImageSize: 1024}},
		{"empty label falls back to base", "", Params{BaseSize: 1024, ImageSize: 1024}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Resolve(tt.label))
		})
	}
}

func TestModesOrder(t *testing.T) {
	var names []string
	for _, m := range Modes() {
		names = append(names, m.Name)
	}

	require.Equal(t, []string{"Tiny", "Small", "Base", "Large", "Gundam"}, names)
}

func TestModesReturnsCopy(t *testing.T) {
	Modes()[0].Name = "Mangled"
	require.Equal(t, "Tiny", Modes()[0].Name)
}
