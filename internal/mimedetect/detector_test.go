package mimedetect

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	mimeType, encoding, err := New().Detect(&buf)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Empty(t, encoding, "binary formats carry no text encoding")
}

func TestDetectText(t *testing.T) {
	mimeType, encoding, err := New().Detect(strings.NewReader("plain old text\n"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mimeType)
	assert.Equal(t, "utf-8", encoding)
}

func TestDetectEmpty(t *testing.T) {
	mimeType, _, err := New().Detect(strings.NewReader(""))
	require.NoError(t, err)
	assert.NotEmpty(t, mimeType, "empty content still maps to a generic type")
}
