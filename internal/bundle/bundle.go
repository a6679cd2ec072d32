// Package bundle materializes a view result set as files: one image per view
// plus manifest.json, written either to a directory or into a ZIP archive
// whose entries are Zstandard-compressed.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/filehandler"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

// ManifestName is the manifest file name inside a bundle.
const ManifestName = "manifest.json"

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	zip.RegisterDecompressor(zipMethodZstd, zstd.ZipDecompressor())
}

// Entry describes one image in the bundle.
type Entry struct {
	Kind     chat.ViewKind `json:"kind"`
	Label    string        `json:"label"`
	File     string        `json:"file"`
	MIMEType string        `json:"mimeType"`
	Bytes    int           `json:"bytes"`
	Width    int           `json:"width,omitempty"`
	Height   int           `json:"height,omitempty"`
}

// Manifest is written as manifest.json next to the images.
type Manifest struct {
	Source    string    `json:"source,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Views     []Entry   `json:"views"`
}

// File is one decoded image ready to be written.
type File struct {
	Entry
	Data []byte
}

// Bundle holds decoded images and their manifest.
type Bundle struct {
	Manifest Manifest
	Files    []File
}

// Build decodes every view's data URI. Files are numbered in result order,
// so the background-removed image is always 01.
func Build(set chat.ViewResultSet, source, model string) (*Bundle, error) {
	b := &Bundle{
		Manifest: Manifest{
			Source:    source,
			Model:     model,
			CreatedAt: time.Now().UTC(),
		},
	}

	for i, view := range set {
		mimeType, data, err := filehandler.DecodeDataURI(view.ImageDataURI)
		if err != nil {
			return nil, fmt.Errorf("view %s: %w", view.Kind, err)
		}

		entry := Entry{
			Kind:     view.Kind,
			Label:    view.Kind.Label(),
			File:     FileName(i, view.Kind, mimeType),
			MIMEType: mimeType,
			Bytes:    len(data),
		}
		if info, err := filehandler.DescribeImage(data); err == nil {
			entry.Width = info.Width
			entry.Height = info.Height
		} else {
			log.Debug().Err(err).Str("view", string(view.Kind)).Msg("Could not read image dimensions")
		}

		b.Files = append(b.Files, File{Entry: entry, Data: data})
		b.Manifest.Views = append(b.Manifest.Views, entry)
	}

	return b, nil
}

// FileName returns the bundle file name for the i-th view (zero-based).
func FileName(i int, kind chat.ViewKind, mimeType string) string {
	return fmt.Sprintf("%02d-%s%s", i+1, kind, filehandler.ExtensionForMIME(mimeType))
}

// WriteDir writes every image and manifest.json into dir, creating it if
// needed, and returns the written paths.
func (b *Bundle) WriteDir(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	for _, f := range b.Files {
		p := filepath.Join(dir, f.File)
		if err := os.WriteFile(p, f.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", f.File, err)
		}
		paths = append(paths, p)
	}

	manifest, err := b.manifestJSON()
	if err != nil {
		return paths, err
	}
	p := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(p, manifest, 0o644); err != nil {
		return paths, fmt.Errorf("write %s: %w", ManifestName, err)
	}
	paths = append(paths, p)

	log.Info().Str("dir", dir).Int("files", len(paths)).Msg("Bundle written to directory")
	return paths, nil
}

// WriteZip streams the bundle as a ZIP archive to w. Images use Zstandard;
// the manifest is stored deflated so any unzip tool can read it.
func (b *Bundle) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)

	for _, f := range b.Files {
		header := &zip.FileHeader{
			Name:   f.File,
			Method: zipMethodZstd,
		}
		header.SetModTime(b.Manifest.CreatedAt)

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create ZIP entry for %s: %w", f.File, err)
		}
		if _, err := entry.Write(f.Data); err != nil {
			return fmt.Errorf("write ZIP entry for %s: %w", f.File, err)
		}
	}

	manifest, err := b.manifestJSON()
	if err != nil {
		return err
	}
	header := &zip.FileHeader{Name: ManifestName, Method: zip.Deflate}
	header.SetModTime(b.Manifest.CreatedAt)
	entry, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create ZIP entry for %s: %w", ManifestName, err)
	}
	if _, err := entry.Write(manifest); err != nil {
		return fmt.Errorf("write ZIP entry for %s: %w", ManifestName, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close ZIP writer: %w", err)
	}
	return nil
}

// WriteZipFile writes the ZIP archive to path.
func (b *Bundle) WriteZipFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ZIP file: %w", err)
	}
	if err := b.WriteZip(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ZIP file: %w", err)
	}
	log.Info().Str("path", path).Int("entries", len(b.Files)+1).Msg("ZIP bundle written")
	return nil
}

func (b *Bundle) manifestJSON() ([]byte, error) {
	data, err := json.MarshalIndent(b.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}
