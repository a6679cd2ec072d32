package filehandler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes an image as reported by its header.
type ImageInfo struct {
	Format string
	Width  int
	Height int
	Bytes  int
}

// DescribeImage decodes only the image header (PNG, JPEG, GIF, WebP) to
// report format and dimensions. The bytes are not otherwise inspected.
func DescribeImage(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	return &ImageInfo{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Bytes:  len(data),
	}, nil
}

// MarshalZerologObject lets an ImageInfo be attached to log events with
// Object("image", info).
func (i *ImageInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("format", i.Format).
		Int("width", i.Width).
		Int("height", i.Height).
		Int("bytes", i.Bytes)
}
