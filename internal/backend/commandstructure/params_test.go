package commandstructure

import "testing"

var sampleParams = map[string]any{
	"color":         "#ff0000",
	"width":         480,
	"height":        int64(320),
	"strokeWidth":   2.5,
	"downscaleOnly": true,
	"legacyFlag":    " FALSE ",
	"junk":          "maybe",
}

func TestGetStringParam(t *testing.T) {
	if got := GetStringParam(sampleParams, "color", "#000000"); got != "#ff0000" {
		t.Errorf("expected #ff0000, got %s", got)
	}
	if got := GetStringParam(sampleParams, "width", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for non-string, got %s", got)
	}
	if got := GetStringParam(nil, "color", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for nil map, got %s", got)
	}
}

func TestGetIntParam(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"width", 480},
		{"height", 320},
		{"strokeWidth", 2},
		{"color", -1},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := GetIntParam(sampleParams, tt.key, -1); got != tt.want {
			t.Errorf("GetIntParam(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestGetFloatParam(t *testing.T) {
	tests := []struct {
		key  string
		want float64
	}{
		{"strokeWidth", 2.5},
		{"width", 480},
		{"height", 320},
		{"color", 1},
	}
	for _, tt := range tests {
		if got := GetFloatParam(sampleParams, tt.key, 1); got != tt.want {
			t.Errorf("GetFloatParam(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestGetBoolParam(t *testing.T) {
	tests := []struct {
		key        string
		defaultVal bool
		want       bool
	}{
		{"downscaleOnly", false, true},
		{"legacyFlag", true, false},
		{"junk", true, true},
		{"width", false, false},
		{"missing", true, true},
	}
	for _, tt := range tests {
		if got := GetBoolParam(sampleParams, tt.key, tt.defaultVal); got != tt.want {
			t.Errorf("GetBoolParam(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
