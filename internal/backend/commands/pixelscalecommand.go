package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/faceregistry/internal/backend/commandstructure"
)

// PixelScaleParams represents typed parameters for pixel scale command
type PixelScaleParams struct {
	Height *int // Optional: if nil, will be calculated from width
	Width  *int // Optional: if nil, will be calculated from height
	// DownscaleOnly leaves images that already fit the target untouched
	DownscaleOnly bool
}

// NewPixelScaleParamsFromMap creates PixelScaleParams from a generic map
func NewPixelScaleParamsFromMap(params map[string]any) (*PixelScaleParams, error) {
	_, hasHeight := params["height"]
	_, hasWidth := params["width"]
	if !hasHeight && !hasWidth {
		return nil, fmt.Errorf("at least one of 'height' or 'width' must be specified")
	}

	result := &PixelScaleParams{
		DownscaleOnly: commandstructure.GetBoolParam(params, "downscaleOnly", false),
	}

	if hasHeight {
		height := commandstructure.GetIntParam(params, "height", 0)
		if height <= 0 {
			return nil, fmt.Errorf("height must be positive, got %d", height)
		}
		result.Height = &height
	}

	if hasWidth {
		width := commandstructure.GetIntParam(params, "width", 0)
		if width <= 0 {
			return nil, fmt.Errorf("width must be positive, got %d", width)
		}
		result.Width = &width
	}

	return result, nil
}

// PixelScaleCommand scales an image with nearest-neighbour sampling. With only one
// dimension configured the aspect ratio is preserved.
type PixelScaleCommand struct {
	name   string
	params *PixelScaleParams
}

func NewPixelScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewPixelScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &PixelScaleCommand{
		name:   "PixelScaleCommand",
		params: typedParams,
	}, nil
}

func (c *PixelScaleCommand) Name() string {
	return c.name
}

// Execute scales the image and returns it PNG encoded
func (c *PixelScaleCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		slog.Error("PixelScaleCommand: failed to decode image", "error", err)
		return nil, err
	}

	bounds := img.Bounds()
	originalWidth, originalHeight := bounds.Dx(), bounds.Dy()
	if originalWidth == 0 || originalHeight == 0 {
		return nil, fmt.Errorf("cannot scale empty image")
	}

	targetWidth, targetHeight := c.targetSize(originalWidth, originalHeight)
	if c.params.DownscaleOnly && targetWidth >= originalWidth && targetHeight >= originalHeight {
		slog.Debug("PixelScaleCommand: image already fits, skipping",
			"width", originalWidth, "height", originalHeight)
		return imageData, nil
	}

	slog.Debug("PixelScaleCommand: scaling image",
		"original_width", originalWidth,
		"original_height", originalHeight,
		"target_width", targetWidth,
		"target_height", targetHeight)

	targetImg := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	parallelFor(targetHeight, func(y int) {
		srcY := bounds.Min.Y + min(y*originalHeight/targetHeight, originalHeight-1)
		for x := 0; x < targetWidth; x++ {
			srcX := bounds.Min.X + min(x*originalWidth/targetWidth, originalWidth-1)
			targetImg.Set(x, y, img.At(srcX, srcY))
		}
	})

	return encodePNG(targetImg)
}

func (c *PixelScaleCommand) targetSize(originalWidth, originalHeight int) (int, int) {
	aspectRatio := float64(originalWidth) / float64(originalHeight)

	var width, height int
	switch {
	case c.params.Width != nil && c.params.Height != nil:
		width, height = *c.params.Width, *c.params.Height
	case c.params.Width != nil:
		width = *c.params.Width
		height = int(float64(width) / aspectRatio)
	default:
		height = *c.params.Height
		width = int(float64(height) * aspectRatio)
	}
	return max(width, 1), max(height, 1)
}

// GetHeight returns the configured height (may be nil if not specified)
func (c *PixelScaleCommand) GetHeight() *int {
	return c.params.Height
}

// GetWidth returns the configured width (may be nil if not specified)
func (c *PixelScaleCommand) GetWidth() *int {
	return c.params.Width
}

func (c *PixelScaleCommand) GetParams() *PixelScaleParams {
	return c.params
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("PixelScaleCommand", NewPixelScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register PixelScaleCommand: %v", err))
	}
}
