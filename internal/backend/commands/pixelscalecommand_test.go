package commands

import (
	"image/color"
	"testing"

	"github.com/jo-hoe/faceregistry/internal/backend/commandstructure"
)

func intPtrValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestNewPixelScaleParamsFromMap(t *testing.T) {
	tests := []struct {
		name          string
		params        map[string]any
		wantWidth     any
		wantHeight    any
		wantDownscale bool
	}{
		{"width only", map[string]any{"width": 480}, 480, nil, false},
		{"height only", map[string]any{"height": 320}, nil, 320, false},
		{"both", map[string]any{"width": 640, "height": 480}, 640, 480, false},
		{"yaml floats", map[string]any{"width": float64(1600), "downscaleOnly": true}, 1600, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := NewPixelScaleParamsFromMap(tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := intPtrValue(params.Width); got != tt.wantWidth {
				t.Errorf("width: expected %v, got %v", tt.wantWidth, got)
			}
			if got := intPtrValue(params.Height); got != tt.wantHeight {
				t.Errorf("height: expected %v, got %v", tt.wantHeight, got)
			}
			if params.DownscaleOnly != tt.wantDownscale {
				t.Errorf("downscaleOnly: expected %v, got %v", tt.wantDownscale, params.DownscaleOnly)
			}
		})
	}
}

func TestNewPixelScaleCommand_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"no dimensions", map[string]any{}},
		{"zero width", map[string]any{"width": 0}},
		{"negative height", map[string]any{"height": -10}},
		{"valid width but zero height", map[string]any{"width": 10, "height": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPixelScaleCommand(tt.params); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPixelScaleCommand_Execute_Sizes(t *testing.T) {
	tests := []struct {
		name         string
		params       map[string]any
		srcW, srcH   int
		wantW, wantH int
	}{
		{"width keeps aspect ratio", map[string]any{"width": 50}, 200, 100, 50, 25},
		{"height keeps aspect ratio", map[string]any{"height": 40}, 200, 100, 80, 40},
		{"both dimensions stretch", map[string]any{"width": 30, "height": 30}, 200, 100, 30, 30},
		{"upscale", map[string]any{"width": 20}, 10, 10, 20, 20},
		{"tiny result clamps to one pixel", map[string]any{"width": 1}, 300, 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewPixelScaleCommand(tt.params)
			if err != nil {
				t.Fatalf("failed to create command: %v", err)
			}
			result, err := command.Execute(encodeTestPNG(t, newTestImage(tt.srcW, tt.srcH, color.White)))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			b := decodeTestPNG(t, result).Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
		})
	}
}

func TestPixelScaleCommand_Execute_KeepsColors(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"width": 4})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}

	red := color.RGBA{R: 255, A: 255}
	result, err := command.Execute(encodeTestPNG(t, newTestImage(16, 16, red)))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	r, g, b, a := decodeTestPNG(t, result).At(2, 2).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 || a>>8 != 255 {
		t.Errorf("expected red pixel, got %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestPixelScaleCommand_Execute_AcceptsJPEG(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"height": 5})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}

	result, err := command.Execute(encodeTestJPEG(t, newTestImage(20, 10, color.Black)))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	b := decodeTestPNG(t, result).Bounds()
	if b.Dx() != 10 || b.Dy() != 5 {
		t.Errorf("expected 10x5, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPixelScaleCommand_Execute_InvalidImage(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"height": 100})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}
	if _, err := command.Execute([]byte("not a valid image")); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestPixelScaleCommand_DownscaleOnly(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"width": 1024, "downscaleOnly": true})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}

	input := encodeTestPNG(t, newTestImage(64, 32, color.White))
	result, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if string(result) != string(input) {
		t.Error("expected small image to pass through unchanged")
	}

	large := encodeTestPNG(t, newTestImage(2048, 16, color.White))
	result, err = command.Execute(large)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if w := decodeTestPNG(t, result).Bounds().Dx(); w != 1024 {
		t.Errorf("expected large image scaled to 1024, got %d", w)
	}
}

func TestPixelScaleCommand_RegisteredInDefaultRegistry(t *testing.T) {
	command, err := commandstructure.DefaultRegistry.Create("PixelScaleCommand", map[string]any{"height": 1024})
	if err != nil {
		t.Fatalf("failed to create command via registry: %v", err)
	}
	scaleCmd, ok := command.(*PixelScaleCommand)
	if !ok {
		t.Fatalf("expected *PixelScaleCommand, got %T", command)
	}
	if scaleCmd.Name() != "PixelScaleCommand" {
		t.Errorf("unexpected name %s", scaleCmd.Name())
	}
	if scaleCmd.GetHeight() == nil || *scaleCmd.GetHeight() != 1024 || scaleCmd.GetWidth() != nil {
		t.Errorf("unexpected params %+v", scaleCmd.GetParams())
	}
}
