package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/transform"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	_ "golang.org/x/image/webp"
)

const (
	// MaxFileSize is the largest accepted image payload, in bytes.
	MaxFileSize = 10 << 20

	// MaxImageSize is the largest accepted width or height, in pixels.
	MaxImageSize = 10000
)

var ErrEmptyImage = errors.New("image data is empty")

// Decode decodes JPEG, PNG or WebP bytes into an image, applying any EXIF
// orientation so the pixels match what a viewer would show. The returned
// string is the sniffed format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err == nil {
			return img, format, nil
		}
	}

	// chai2010 decodes webp variants the registered decoder rejects.
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, "webp", nil
	}

	return nil, "", errors.New("unknown or unsupported image format")
}

// Validate rejects payloads the OCR pipeline cannot take: empty or oversized
// data, content that is not JPEG, PNG or WebP, and images wider or taller
// than MaxImageSize. Dimensions are read from the header without a full
// decode.
func Validate(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}

	if len(data) > MaxFileSize {
		return fmt.Errorf("image is %d bytes, the limit is %d", len(data), MaxFileSize)
	}

	mtype := mimetype.Detect(data)
	if !mtype.Is("image/jpeg") && !mtype.Is("image/png") && !mtype.Is("image/webp") {
		return fmt.Errorf("unsupported content type %s, expected jpeg, png or webp", mtype)
	}

	width, height, err := imageSize(data)
	if err != nil {
		return fmt.Errorf("failed to read image header: %w", err)
	}

	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}

	if width > MaxImageSize || height > MaxImageSize {
		return fmt.Errorf("image is %dx%d, the limit is %dx%d per side", width, height, MaxImageSize, MaxImageSize)
	}

	return nil
}

func imageSize(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		return cfg.Width, cfg.Height, nil
	}

	if w, h, _, werr := webp.GetInfo(data); werr == nil {
		return w, h, nil
	}

	return 0, 0, err
}

// EncodeJPEG renders img as JPEG bytes at the given quality (1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

// DownscaleToFit resizes img so its longer side is at most maxDim pixels,
// preserving aspect ratio. Images already within the bound are returned
// unchanged, and maxDim <= 0 disables the bound.
func DownscaleToFit(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}

	size := img.Bounds().Size()
	longest := size.X
	if size.Y > longest {
		longest = size.Y
	}
	if longest <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(longest)
	width := int(float64(size.X) * scale)
	if width < 1 {
		width = 1
	}
	height := int(float64(size.Y) * scale)
	if height < 1 {
		height = 1
	}

	return transform.Resize(img, width, height, transform.Linear)
}
