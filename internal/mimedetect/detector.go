// Package mimedetect identifies the MIME type and text encoding of
// stored file content.
package mimedetect

import (
	"errors"
	"fmt"
	"io"
	"mime"

	"github.com/gabriel-vasile/mimetype"
)

// ErrDetectionFailed reports that the content could not be identified.
// Callers are expected to fall back to an empty mimetype/encoding
// rather than failing their own operation.
var ErrDetectionFailed = errors.New("mimetype detection failed")

type Detector interface {
	Detect(r io.Reader) (mimeType string, encoding string, err error)
}

type detector struct{}

func New() Detector {
	return detector{}
}

// Detect reads from r until the detector has enough bytes to decide.
// For text types the charset parameter doubles as the encoding.
func (detector) Detect(r io.Reader) (string, string, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrDetectionFailed, err)
	}

	mediaType, params, err := mime.ParseMediaType(mtype.String())
	if err != nil {
		// A detected type that fails to parse still names the format.
		return mtype.String(), "", nil
	}
	return mediaType, params["charset"], nil
}
