// Package converter turns stored document content into page counts and
// rasterized page images, and normalizes office formats into a
// page-addressable form.
package converter

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUnknownFormat reports content no backend understands. Page
	// counting treats this as non-fatal and falls back to one page.
	ErrUnknownFormat = errors.New("unknown file format")

	// ErrInvalidOfficeFormat reports that content is not an office
	// document and therefore cannot be normalized. Callers fall back
	// to the raw stream.
	ErrInvalidOfficeFormat = errors.New("not an office format")
)

// Converter is the rendering backend contract.
//
// PageCount inspects content and reports how many pages it holds.
// RenderPage rasterizes a single 1-based page of a page-addressable
// stream (a PDF or a single image) into PNG bytes. Normalize converts
// an office document into a PDF stream; it is the one-time step behind
// the cached intermediate file.
type Converter interface {
	PageCount(ctx context.Context, r io.Reader, mimeType string) (int, error)
	RenderPage(ctx context.Context, r io.Reader, pageNumber int) ([]byte, error)
	Normalize(ctx context.Context, r io.Reader, mimeType string) (io.ReadCloser, error)
}
