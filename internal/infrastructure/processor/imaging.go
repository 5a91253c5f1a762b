package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	// Register webp decoding; webp originals are re-encoded to PNG
	// because no encoder is available.
	_ "golang.org/x/image/webp"
)

const _jpegQuality = 85

// contentTypeFormats maps declared content types to encode formats.
// Unmapped types fall back to the intrinsic format of the decoded
// image, then to PNG.
var contentTypeFormats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/jpg":  imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/tiff": imaging.TIFF,
}

var intrinsicFormats = map[string]imaging.Format{
	"jpeg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"bmp":  imaging.BMP,
	"tiff": imaging.TIFF,
}

type ImageProcessor struct {
}

func New() *ImageProcessor {
	return &ImageProcessor{}
}

// ResizeSet decodes data once and produces one variant per size, each
// scaled to fit within a size x size box without upscaling.
func (p *ImageProcessor) ResizeSet(ctx context.Context, contentType string, data []byte, sizes []int) (map[int][]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ImageProcessor - ResizeSet - imaging.Decode: %w", err)
	}

	format := resolveFormat(contentType, data)

	out := make(map[int][]byte, len(sizes))

	for _, size := range sizes {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ImageProcessor - ResizeSet: %w", ctx.Err())
		default:
		}

		resized := imaging.Fit(img, size, size, imaging.Lanczos)

		encoded, err := encodeImage(resized, format)
		if err != nil {
			return nil, fmt.Errorf("ImageProcessor - ResizeSet - encodeImage: %w", err)
		}

		out[size] = encoded
	}

	return out, nil
}

func resolveFormat(contentType string, data []byte) imaging.Format {
	if format, ok := contentTypeFormats[contentType]; ok {
		return format
	}

	if _, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if format, ok := intrinsicFormats[name]; ok {
			return format
		}
	}

	return imaging.PNG
}

func encodeImage(img image.Image, format imaging.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case imaging.JPEG:
		// JPEG has no alpha channel: flatten onto white first.
		err = imaging.Encode(&buf, flatten(img), format, imaging.JPEGQuality(_jpegQuality))
	default:
		err = imaging.Encode(&buf, img, format)
	}

	if err != nil {
		return nil, fmt.Errorf("imaging.Encode: %w", err)
	}

	return buf.Bytes(), nil
}

func flatten(img image.Image) image.Image {
	bounds := img.Bounds()

	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)

	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}
