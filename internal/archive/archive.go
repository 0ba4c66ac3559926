// Package archive expands compressed uploads into their members so a
// single archive can be ingested as many documents.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrNotArchive reports that the content is not a recognized container.
// Callers fall back to treating the content as a single plain file.
var ErrNotArchive = errors.New("not an archive")

// WalkFunc receives one archive member at a time. Returning an error
// stops the walk and propagates it.
type WalkFunc func(name string, r io.Reader) error

var (
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Walk detects the container format by magic bytes and calls fn for
// every regular file member. Container detection is deliberately
// conservative: anything unrecognized is ErrNotArchive, never a guess.
func Walk(r io.Reader, fn WalkFunc) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return walkZip(data, fn)
	case bytes.HasPrefix(data, gzipMagic):
		return walkGzip(data, fn)
	case bytes.HasPrefix(data, zstdMagic):
		return walkZstd(data, fn)
	case isTar(data):
		return walkTar(bytes.NewReader(data), fn)
	default:
		return ErrNotArchive
	}
}

func walkZip(data []byte, fn WalkFunc) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip member %s: %w", file.Name, err)
		}
		err = fn(path.Base(file.Name), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func walkGzip(data []byte, fn WalkFunc) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	inner, err := io.ReadAll(gz)
	if err != nil {
		return fmt.Errorf("decompress gzip: %w", err)
	}

	if isTar(inner) {
		return walkTar(bytes.NewReader(inner), fn)
	}

	name := gz.Name
	if name == "" {
		name = "member-1"
	}
	return fn(name, bytes.NewReader(inner))
}

func walkZstd(data []byte, fn WalkFunc) error {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("open zstd: %w", err)
	}
	defer dec.Close()

	inner, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("decompress zstd: %w", err)
	}

	if isTar(inner) {
		return walkTar(bytes.NewReader(inner), fn)
	}
	return fn("member-1", bytes.NewReader(inner))
}

func walkTar(r io.Reader, fn WalkFunc) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if err := fn(path.Base(header.Name), tr); err != nil {
			return err
		}
	}
}

// isTar checks for the ustar magic at the fixed header offset.
func isTar(data []byte) bool {
	if len(data) < 263 {
		return false
	}
	return strings.HasPrefix(string(data[257:263]), "ustar")
}
