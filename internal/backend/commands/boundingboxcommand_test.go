package commands

import (
	"image"
	"image/color"
	"testing"

	"github.com/jo-hoe/faceregistry/internal/backend/commandstructure"
)

func TestNewBoundingBoxCommand_ParsesParams(t *testing.T) {
	command, err := NewBoundingBoxCommand(map[string]any{
		"boxes":       []any{[]any{1, 2, 10, 20}, []any{float64(5), float64(5), float64(3), float64(3)}},
		"color":       "#ff8000",
		"strokeWidth": 3,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	params := command.(*BoundingBoxCommand).GetParams()
	if len(params.Boxes) != 2 {
		t.Fatalf("Expected 2 boxes, got %d", len(params.Boxes))
	}
	if params.Boxes[0] != image.Rect(1, 2, 11, 22) {
		t.Errorf("Unexpected first box %v", params.Boxes[0])
	}
	if params.Color != (color.RGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff}) {
		t.Errorf("Unexpected color %v", params.Color)
	}
	if params.StrokeWidth != 3 {
		t.Errorf("Expected stroke width 3, got %v", params.StrokeWidth)
	}
}

func TestNewBoundingBoxCommand_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"boxes not a list", map[string]any{"boxes": "1,2,3,4"}},
		{"box with three values", map[string]any{"boxes": []any{[]any{1, 2, 3}}}},
		{"box with text value", map[string]any{"boxes": []any{[]any{1, 2, "3", 4}}}},
		{"bad color", map[string]any{"color": "blue"}},
		{"zero stroke", map[string]any{"strokeWidth": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBoundingBoxCommand(tt.params); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestBoundingBoxCommand_Execute_DrawsOutline(t *testing.T) {
	input := encodeTestPNG(t, newTestImage(60, 60, color.White))
	command := NewBoundingBoxCommandWithBoxes([]image.Rectangle{image.Rect(10, 10, 50, 50)})

	result, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	img := decodeTestPNG(t, result)

	r, g, b, _ := img.At(10, 30).RGBA()
	if !(b > r && b > g) {
		t.Errorf("Expected box edge to be blue, got r=%d g=%d b=%d", r, g, b)
	}

	r, g, b, _ = img.At(30, 30).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Errorf("Expected box interior to stay white, got r=%d g=%d b=%d", r, g, b)
	}
}

func TestBoundingBoxCommand_Execute_NoBoxes(t *testing.T) {
	command := NewBoundingBoxCommandWithBoxes(nil)

	result, err := command.Execute(encodeTestJPEG(t, newTestImage(12, 8, color.White)))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	b := decodeTestPNG(t, result).Bounds()
	if b.Dx() != 12 || b.Dy() != 8 {
		t.Errorf("Expected 12x8, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestBoundingBoxCommand_RegisteredInDefaultRegistry(t *testing.T) {
	if !commandstructure.DefaultRegistry.IsRegistered("BoundingBoxCommand") {
		t.Error("Expected BoundingBoxCommand to be registered in DefaultRegistry")
	}
}
