package converter

import (
	"encoding/json"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(width, height int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		size       string
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{size: "800x600", wantWidth: 800, wantHeight: 600},
		{size: "1200", wantWidth: 1200},
		{size: "axb", wantErr: true},
		{size: "800x", wantErr: true},
		{size: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			width, height, err := ParseSize(tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, width)
			assert.Equal(t, tt.wantHeight, height)
		})
	}
}

func TestResizeApply(t *testing.T) {
	img := Resize{Width: 50, Height: 25}.Apply(testImage(100, 100))
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())

	// Zero height keeps the aspect ratio.
	img = Resize{Width: 50}.Apply(testImage(100, 200))
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	// Degenerate bounds leave the image untouched.
	img = Resize{}.Apply(testImage(100, 100))
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestRotateApply(t *testing.T) {
	img := Rotate{Degrees: 90}.Apply(testImage(40, 20))
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())

	img = Rotate{}.Apply(testImage(40, 20))
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestZoomApply(t *testing.T) {
	img := Zoom{Percent: 50}.Apply(testImage(100, 100))
	assert.Equal(t, 50, img.Bounds().Dx())

	img = Zoom{Percent: 200}.Apply(testImage(100, 100))
	assert.Equal(t, 200, img.Bounds().Dx())

	// 100% and unset are both identity.
	img = Zoom{Percent: 100}.Apply(testImage(100, 100))
	assert.Equal(t, 100, img.Bounds().Dx())
	img = Zoom{}.Apply(testImage(100, 100))
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestCropApply(t *testing.T) {
	img := Crop{Left: 10, Top: 10, Right: 30, Bottom: 25}.Apply(testImage(100, 100))
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 15, img.Bounds().Dy())

	img = Crop{}.Apply(testImage(100, 100))
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestFromSpec(t *testing.T) {
	transform, err := FromSpec("resize", json.RawMessage(`{"width": 640, "height": 480}`))
	require.NoError(t, err)
	assert.Equal(t, Resize{Width: 640, Height: 480}, transform)

	transform, err = FromSpec("rotate", json.RawMessage(`{"degrees": 450}`))
	require.NoError(t, err)
	assert.Equal(t, Rotate{Degrees: 90}, transform, "stored rotation degrees normalize modulo 360")

	transform, err = FromSpec("zoom", json.RawMessage(`{"percent": 150}`))
	require.NoError(t, err)
	assert.Equal(t, Zoom{Percent: 150}, transform)

	transform, err = FromSpec("crop", json.RawMessage(`{"left": 1, "top": 2, "right": 3, "bottom": 4}`))
	require.NoError(t, err)
	assert.Equal(t, Crop{Left: 1, Top: 2, Right: 3, Bottom: 4}, transform)

	_, err = FromSpec("sharpen", json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = FromSpec("resize", json.RawMessage(`not json`))
	assert.Error(t, err)
}
