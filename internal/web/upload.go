package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/filehandler"
)

// uploadField is the multipart field carrying the image.
const uploadField = "image"

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// maxRequestBytes bounds the whole request: the image plus multipart framing.
const maxRequestBytes = filehandler.MaxImageBytes + 1<<20

var tooLargeMessage = fmt.Sprintf("image exceeds the %d MiB limit", filehandler.MaxImageBytes>>20)

// upload is a validated image received over HTTP.
type upload struct {
	Filename string
	Blob     *filehandler.ImageBlob
}

// readUpload extracts and validates the "image" part. On failure it writes
// the error response and returns false.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			httpError(w, http.StatusRequestEntityTooLarge, tooLargeMessage)
			return nil, false
		}
		httpError(w, http.StatusBadRequest, "expected a multipart form with an image field")
		return nil, false
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing image field")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, filehandler.MaxImageBytes+1))
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read uploaded image")
		return nil, false
	}
	if len(data) > filehandler.MaxImageBytes {
		httpError(w, http.StatusRequestEntityTooLarge, tooLargeMessage)
		return nil, false
	}

	mimeType := uploadMIMEType(header.Header.Get("Content-Type"), header.Filename, data)
	if mimeType == "" {
		httpError(w, http.StatusBadRequest, "unsupported image type (use PNG, JPEG or WebP)")
		return nil, false
	}

	evt := log.Debug().Str("filename", header.Filename).Str("mime", mimeType)
	if info, err := filehandler.DescribeImage(data); err == nil {
		evt = evt.Object("image", info)
	}
	evt.Msg("Upload received")

	return &upload{
		Filename: filepath.Base(header.Filename),
		Blob:     &filehandler.ImageBlob{Data: data, MIMEType: mimeType},
	}, true
}

// uploadMIMEType resolves the media type from the part header, then the file
// extension, then the content itself. Only supported image types are returned.
func uploadMIMEType(header, filename string, data []byte) string {
	if m := strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0])); filehandler.IsSupportedMIMEType(m) {
		return m
	}
	if m, err := filehandler.GetMIMEType(filepath.Ext(filename)); err == nil {
		return m
	}
	if len(data) > 0 {
		if m := http.DetectContentType(data); filehandler.IsSupportedMIMEType(m) {
			return m
		}
	}
	return ""
}
