package converter

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// DimensionSeparator splits width from height in size strings ("WxH").
const DimensionSeparator = "x"

// Transform is a single image operation. Transforms compose by
// sequential application; their order is part of the rendering
// contract.
type Transform interface {
	Apply(img image.Image) image.Image
}

// Resize scales the image to the given bounds. A zero Height keeps the
// aspect ratio.
type Resize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (t Resize) Apply(img image.Image) image.Image {
	if t.Width <= 0 && t.Height <= 0 {
		return img
	}
	return imaging.Resize(img, t.Width, t.Height, imaging.Lanczos)
}

// Rotate turns the image counter-clockwise by Degrees. The caller is
// expected to normalize degrees modulo 360 before constructing it.
type Rotate struct {
	Degrees float64 `json:"degrees"`
}

func (t Rotate) Apply(img image.Image) image.Image {
	if t.Degrees == 0 {
		return img
	}
	return imaging.Rotate(img, t.Degrees, color.Transparent)
}

// Zoom scales the image by a percentage of its current size.
type Zoom struct {
	Percent int `json:"percent"`
}

func (t Zoom) Apply(img image.Image) image.Image {
	if t.Percent <= 0 || t.Percent == 100 {
		return img
	}
	bounds := img.Bounds()
	width := bounds.Dx() * t.Percent / 100
	if width <= 0 {
		width = 1
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// Crop cuts the image to the rectangle spanned by its corners.
type Crop struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (t Crop) Apply(img image.Image) image.Image {
	rect := image.Rect(t.Left, t.Top, t.Right, t.Bottom)
	if rect.Empty() {
		return img
	}
	return imaging.Crop(img, rect)
}

// FromSpec builds a Transform from its persisted name and JSON
// arguments.
func FromSpec(name string, arguments json.RawMessage) (Transform, error) {
	switch name {
	case "resize":
		var t Resize
		if err := json.Unmarshal(arguments, &t); err != nil {
			return nil, fmt.Errorf("resize arguments: %w", err)
		}
		return t, nil
	case "rotate":
		var t Rotate
		if err := json.Unmarshal(arguments, &t); err != nil {
			return nil, fmt.Errorf("rotate arguments: %w", err)
		}
		t.Degrees = float64(int(t.Degrees) % 360)
		return t, nil
	case "zoom":
		var t Zoom
		if err := json.Unmarshal(arguments, &t); err != nil {
			return nil, fmt.Errorf("zoom arguments: %w", err)
		}
		return t, nil
	case "crop":
		var t Crop
		if err := json.Unmarshal(arguments, &t); err != nil {
			return nil, fmt.Errorf("crop arguments: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown transformation %q", name)
	}
}

// ParseSize parses "WxH" or "W" display size strings.
func ParseSize(size string) (width, height int, err error) {
	parts := strings.SplitN(size, DimensionSeparator, 2)

	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", size, err)
	}

	if len(parts) == 2 {
		height, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid size %q: %w", size, err)
		}
	}
	return width, height, nil
}
