package filehandler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		ext      string
		expected bool
	}{
		{".jpg", true},
		{".jpeg", true},
		{".JPG", true},
		{".JPEG", true},
		{".png", true},
		{".PNG", true},
		{".webp", true},
		{".gif", false},
		{".heic", false},
		{".mp4", false},
		{".txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			result := IsImage(tt.ext)
			if result != tt.expected {
				t.Errorf("IsImage(%q) = %v, want %v", tt.ext, result, tt.expected)
			}
		})
	}
}

func TestGetMIMEType(t *testing.T) {
	tests := []struct {
		ext          string
		expectedMIME string
		expectError  bool
	}{
		{".jpg", "image/jpeg", false},
		{".jpeg", "image/jpeg", false},
		{".PNG", "image/png", false},
		{".webp", "image/webp", false},
		{".mp4", "", true},
		{".txt", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			mime, err := GetMIMEType(tt.ext)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.ext)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error for %q: %v", tt.ext, err)
				}
				if mime != tt.expectedMIME {
					t.Errorf("GetMIMEType(%q) = %q, want %q", tt.ext, mime, tt.expectedMIME)
				}
			}
		})
	}
}

func TestExtensionForMIME(t *testing.T) {
	tests := map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"IMAGE/WEBP": ".webp",
		"image/tiff": ".img",
	}
	for mime, want := range tests {
		if got := ExtensionForMIME(mime); got != want {
			t.Errorf("ExtensionForMIME(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestIsSupportedMIMEType(t *testing.T) {
	for _, mime := range []string{"image/png", "image/jpeg", "Image/WebP"} {
		if !IsSupportedMIMEType(mime) {
			t.Errorf("IsSupportedMIMEType(%q) = false", mime)
		}
	}
	for _, mime := range []string{"image/gif", "image/tiff", "application/pdf", ""} {
		if IsSupportedMIMEType(mime) {
			t.Errorf("IsSupportedMIMEType(%q) = true", mime)
		}
	}
}

func TestLoadImageBlob(t *testing.T) {
	dir := t.TempDir()
	pngData := redSquarePNG(t, 10)
	path := filepath.Join(dir, "cube.png")
	if err := os.WriteFile(path, pngData, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	blob, err := LoadImageBlob(path)
	if err != nil {
		t.Fatalf("LoadImageBlob: %v", err)
	}
	if blob.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", blob.MIMEType)
	}
	if string(blob.Data) != string(pngData) {
		t.Error("loaded bytes differ from file contents")
	}
}

func TestLoadImageBlobErrors(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(textPath, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.png")},
		{"directory", dir},
		{"unsupported extension", textPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadImageBlob(tt.path); err == nil {
				t.Errorf("LoadImageBlob(%q) expected error", tt.path)
			}
		})
	}
}

func TestLoadImageBlobEmptyFileEncodesAsReadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	blob, err := LoadImageBlob(path)
	if err != nil {
		t.Fatalf("LoadImageBlob: %v", err)
	}

	_, err = Encode(blob)
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("Encode(empty) error = %v, want *ReadError", err)
	}
	if !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage in chain, got %v", err)
	}
}
