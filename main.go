package main

import (
	cmd "github.com/glyphworks/ocr-server/cmd/glyph"
)

func main() {
	cmd.Execute()
}
