package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"

	"github.com/docvault/docvault/internal/config"
)

var pdfMagic = []byte("%PDF")

// Office formats the normalization step hands to soffice.
var officeMimetypes = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.oasis.opendocument.text":                                   true,
	"application/vnd.oasis.opendocument.spreadsheet":                            true,
	"application/vnd.oasis.opendocument.presentation":                           true,
	"application/rtf":                                                           true,
	"text/rtf":                                                                  true,
}

// Backend is the default Converter. PDFs are counted with a native
// reader and rasterized through pdftoppm; plain images are handled
// in-process; office formats are normalized to PDF through soffice.
type Backend struct {
	pdftoppmBin string
	sofficeBin  string
	tempDir     string
}

func NewBackend(cfg config.ConverterConfig) *Backend {
	return &Backend{
		pdftoppmBin: cfg.PDFToPPMBin,
		sofficeBin:  cfg.SofficeBin,
		tempDir:     cfg.TempDir,
	}
}

func (b *Backend) PageCount(ctx context.Context, r io.Reader, mimeType string) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read content: %w", err)
	}

	if isPDF(data, mimeType) {
		reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return 0, fmt.Errorf("open pdf: %w", err)
		}
		return reader.NumPage(), nil
	}

	if _, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		return 1, nil
	}

	return 0, ErrUnknownFormat
}

func (b *Backend) RenderPage(ctx context.Context, r io.Reader, pageNumber int) ([]byte, error) {
	if pageNumber < 1 {
		return nil, fmt.Errorf("invalid page number %d", pageNumber)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	if isPDF(data, "") {
		return b.rasterizePDFPage(ctx, data, pageNumber)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnknownFormat
	}
	if pageNumber != 1 {
		return nil, fmt.Errorf("page %d out of range for single page image", pageNumber)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Backend) Normalize(ctx context.Context, r io.Reader, mimeType string) (io.ReadCloser, error) {
	if !officeMimetypes[mimeType] {
		return nil, ErrInvalidOfficeFormat
	}

	workDir, err := os.MkdirTemp(b.tempDir, "normalize-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	inputPath := filepath.Join(workDir, "input")
	if err := writeStream(inputPath, r); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}

	cmd := exec.CommandContext(ctx, b.sofficeBin, "--headless", "--convert-to", "pdf", "--outdir", workDir, inputPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("soffice convert: %w: %s", err, strings.TrimSpace(string(output)))
	}

	f, err := os.Open(filepath.Join(workDir, "input.pdf"))
	if err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("open converted pdf: %w", err)
	}
	return &cleanupReadCloser{ReadCloser: f, dir: workDir}, nil
}

func (b *Backend) rasterizePDFPage(ctx context.Context, data []byte, pageNumber int) ([]byte, error) {
	input, err := os.CreateTemp(b.tempDir, "render-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp pdf: %w", err)
	}
	defer os.Remove(input.Name())

	if _, err := input.Write(data); err != nil {
		input.Close()
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := input.Close(); err != nil {
		return nil, fmt.Errorf("close temp pdf: %w", err)
	}

	page := strconv.Itoa(pageNumber)
	cmd := exec.CommandContext(ctx, b.pdftoppmBin, "-png", "-f", page, "-l", page, input.Name())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", pageNumber, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("pdftoppm page %d: empty output", pageNumber)
	}
	return stdout.Bytes(), nil
}

func isPDF(data []byte, mimeType string) bool {
	return mimeType == "application/pdf" || bytes.HasPrefix(data, pdfMagic)
}

func writeStream(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create input file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	return nil
}

// cleanupReadCloser removes the conversion work dir once the converted
// stream is closed.
type cleanupReadCloser struct {
	io.ReadCloser
	dir string
}

func (c *cleanupReadCloser) Close() error {
	err := c.ReadCloser.Close()
	os.RemoveAll(c.dir)
	return err
}
