package filehandler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ImageBlob is raw image data with its media type. Either Data or Reader
// supplies the bytes; non-empty Data wins over Reader. A blob is read at most
// once by Encode and never modified.
type ImageBlob struct {
	Data     []byte
	Reader   io.Reader
	MIMEType string
}

// EncodedImage is the base64 form of an ImageBlob, with no "data:" header.
type EncodedImage struct {
	Base64   string
	MIMEType string
}

// ReadError reports that the bytes of an input image could not be read.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("failed to read image %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("failed to read image: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ErrEmptyImage is wrapped by ReadError when the image has no bytes.
var ErrEmptyImage = errors.New("image is empty")

// Encode converts an ImageBlob into an EncodedImage using standard base64.
// The MIME type passes through unchanged.
func Encode(blob *ImageBlob) (*EncodedImage, error) {
	if blob == nil {
		return nil, &ReadError{Err: ErrEmptyImage}
	}

	data := blob.Data
	if len(data) == 0 && blob.Reader != nil {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, io.LimitReader(blob.Reader, MaxImageBytes+1)); err != nil {
			return nil, &ReadError{Err: err}
		}
		if buf.Len() > MaxImageBytes {
			return nil, &ReadError{Err: fmt.Errorf("image exceeds %d bytes", MaxImageBytes)}
		}
		data = buf.Bytes()
	}

	if len(data) == 0 {
		return nil, &ReadError{Err: ErrEmptyImage}
	}

	return &EncodedImage{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: blob.MIMEType,
	}, nil
}

// Bytes decodes the payload back into raw image bytes.
func (e *EncodedImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(StripDataURIPrefix(e.Base64))
}

// DataURI renders the payload as data:<mime>;base64,<payload>.
func (e *EncodedImage) DataURI() string {
	return DataURI(e.MIMEType, e.Base64)
}

// DataURI builds a data URI from a MIME type and a base64 payload.
func DataURI(mimeType, payload string) string {
	return "data:" + mimeType + ";base64," + StripDataURIPrefix(payload)
}

// StripDataURIPrefix removes a leading "data:...," header, leaving only the
// base64 payload. Strings without a header are returned unchanged.
func StripDataURIPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// DecodeDataURI splits a base64 data URI into its MIME type and raw bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	header := uri[len("data:"):comma]
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}
