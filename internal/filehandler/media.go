// Package filehandler turns user-supplied image files and uploads into the
// transport-safe payloads sent to Gemini, and back again.
//
// Nothing in this package touches pixels: bytes go in, the same bytes come
// out base64-encoded (or decoded from a data URI). DescribeImage reads only
// the image header so callers can log dimensions.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions defines the file extensions accepted as pipeline input.
// The Gemini image models accept PNG, JPEG and WebP; anything else is rejected
// before a request is made.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// extensionForMIME is the reverse of SupportedImageExtensions, used when
// naming output files.
var extensionForMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// MaxImageBytes bounds a single input image. Inline request payloads to the
// Gemini API are limited to 20 MB after base64 encoding, which inflates the
// raw bytes by a third, so the raw cap is 14 MiB.
const MaxImageBytes = 14 << 20

// MaxInlineRequestBytes is the Gemini limit on an inline request payload.
const MaxInlineRequestBytes = 20_000_000

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	ext = strings.ToLower(ext)

	if mimeType, ok := SupportedImageExtensions[ext]; ok {
		return mimeType, nil
	}

	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// ExtensionForMIME returns the file extension for an image MIME type,
// falling back to ".img" for types outside the supported set.
func ExtensionForMIME(mimeType string) string {
	if ext, ok := extensionForMIME[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return ".img"
}

// IsSupportedMIMEType reports whether mimeType is an accepted input type.
func IsSupportedMIMEType(mimeType string) bool {
	_, ok := extensionForMIME[strings.ToLower(mimeType)]
	return ok
}

// IsImage returns true if the file extension corresponds to a supported image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// LoadImageBlob reads an image file from disk into an ImageBlob.
// The MIME type is resolved from the extension.
func LoadImageBlob(filePath string) (*ImageBlob, error) {
	log.Debug().Str("path", filePath).Msg("Loading image file")

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if info.Size() > MaxImageBytes {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", info.Size(), MaxImageBytes)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &ReadError{Source: filePath, Err: err}
	}

	log.Info().
		Str("path", filePath).
		Str("mime_type", mimeType).
		Int64("size_bytes", info.Size()).
		Msg("Image file loaded")

	return &ImageBlob{Data: data, MIMEType: mimeType}, nil
}
