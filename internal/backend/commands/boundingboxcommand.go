package commands

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jo-hoe/faceregistry/internal/backend/commandstructure"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

const (
	defaultBoxColor       = "#0000ff"
	defaultBoxStrokeWidth = 2.0
)

// BoundingBoxParams represents typed parameters for the bounding box command
type BoundingBoxParams struct {
	Boxes       []image.Rectangle
	Color       color.RGBA
	StrokeWidth float64
}

// NewBoundingBoxParamsFromMap reads "boxes" as a list of [x, y, width, height]
// entries plus optional "color" (#rrggbb) and "strokeWidth"
func NewBoundingBoxParamsFromMap(params map[string]any) (*BoundingBoxParams, error) {
	boxes, err := parseBoxes(params["boxes"])
	if err != nil {
		return nil, fmt.Errorf("invalid boxes: %w", err)
	}

	boxColor, err := parseHexColor(commandstructure.GetStringParam(params, "color", defaultBoxColor))
	if err != nil {
		return nil, err
	}

	strokeWidth := commandstructure.GetFloatParam(params, "strokeWidth", defaultBoxStrokeWidth)
	if strokeWidth <= 0 {
		return nil, fmt.Errorf("strokeWidth must be positive, got %v", strokeWidth)
	}

	return &BoundingBoxParams{
		Boxes:       boxes,
		Color:       boxColor,
		StrokeWidth: strokeWidth,
	}, nil
}

func parseBoxes(raw any) ([]image.Rectangle, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("boxes must be a list")
	}

	boxes := make([]image.Rectangle, 0, len(list))
	for i, entry := range list {
		values, ok := entry.([]any)
		if !ok || len(values) != 4 {
			return nil, fmt.Errorf("box at index %d must be [x, y, width, height]", i)
		}
		var xywh [4]int
		for j, v := range values {
			n, ok := toInt(v)
			if !ok {
				return nil, fmt.Errorf("box at index %d has non-numeric value %v", i, v)
			}
			xywh[j] = n
		}
		boxes = append(boxes, image.Rect(xywh[0], xywh[1], xywh[0]+xywh[2], xywh[1]+xywh[3]))
	}
	return boxes, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// BoundingBoxCommand outlines each face box on the image
type BoundingBoxCommand struct {
	name   string
	params *BoundingBoxParams
}

func NewBoundingBoxCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewBoundingBoxParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &BoundingBoxCommand{
		name:   "BoundingBoxCommand",
		params: typedParams,
	}, nil
}

// NewBoundingBoxCommandWithBoxes creates the command for boxes known at runtime
// using the default color and stroke width
func NewBoundingBoxCommandWithBoxes(boxes []image.Rectangle) *BoundingBoxCommand {
	boxColor, _ := parseHexColor(defaultBoxColor)
	return &BoundingBoxCommand{
		name: "BoundingBoxCommand",
		params: &BoundingBoxParams{
			Boxes:       boxes,
			Color:       boxColor,
			StrokeWidth: defaultBoxStrokeWidth,
		},
	}
}

func (c *BoundingBoxCommand) Name() string {
	return c.name
}

func (c *BoundingBoxCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		slog.Error("BoundingBoxCommand: failed to decode image", "error", err)
		return nil, err
	}

	dst := toRGBA(img)
	if len(c.params.Boxes) == 0 {
		return encodePNG(dst)
	}

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	dasher.SetStroke(fixed.Int26_6(c.params.StrokeWidth*64), 4*64, rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Miter, nil, 0)
	dasher.SetColor(c.params.Color)

	for _, box := range c.params.Boxes {
		rasterx.AddRect(float64(box.Min.X), float64(box.Min.Y), float64(box.Max.X), float64(box.Max.Y), 0, dasher)
	}
	dasher.Draw()

	slog.Debug("BoundingBoxCommand: outlined faces", "boxes", len(c.params.Boxes), "width", w, "height", h)
	return encodePNG(dst)
}

func (c *BoundingBoxCommand) GetParams() *BoundingBoxParams {
	return c.params
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("BoundingBoxCommand", NewBoundingBoxCommand); err != nil {
		panic(fmt.Sprintf("failed to register BoundingBoxCommand: %v", err))
	}
}
