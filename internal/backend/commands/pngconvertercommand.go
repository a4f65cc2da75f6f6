package commands

import (
	"bytes"
	"fmt"
	"image/color"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/jo-hoe/faceregistry/internal/backend/commandstructure"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	utf8BOM      = []byte{0xEF, 0xBB, 0xBF}

	svgStartTag   = regexp.MustCompile(`(?is)<svg\b[^>]*>`)
	svgWidthAttr  = regexp.MustCompile(`(?i)\swidth\s*=\s*["']\s*(\d+)`)
	svgHeightAttr = regexp.MustCompile(`(?i)\sheight\s*=\s*["']\s*(\d+)`)
)

// hasCorrectPngSignature checks whether the provided data begins with a valid PNG signature
func hasCorrectPngSignature(data []byte) bool {
	return len(data) >= len(pngSignature) && bytes.Equal(data[:len(pngSignature)], pngSignature)
}

// PngConverterCommand normalises uploads to PNG so the face service and the
// preview renderer see a single format
type PngConverterCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
}

// NewPngConverterCommand creates a new PNG converter command.
// svgFallbackWidth/svgFallbackHeight are only used for SVGs without explicit size.
func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", 0)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", 0)
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("svg fallback size must not be negative, got %dx%d", w, h)
	}

	return &PngConverterCommand{
		name:              "PngConverterCommand",
		svgFallbackWidth:  w,
		svgFallbackHeight: h,
	}, nil
}

func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if hasCorrectPngSignature(imageData) {
		slog.Debug("PngConverterCommand: input already PNG", "input_size_bytes", len(imageData))
		return imageData, nil
	}

	img, format, err := decodeImage(imageData)
	if err != nil {
		if isSVGData(imageData) {
			return c.convertSVG(imageData)
		}
		slog.Error("PngConverterCommand: failed to decode upload", "error", err)
		return nil, err
	}

	out, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	slog.Debug("PngConverterCommand: converted raster image",
		"source_format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"output_size_bytes", len(out))
	return out, nil
}

func (c *PngConverterCommand) convertSVG(svgData []byte) ([]byte, error) {
	w, h, ok := parseSvgExplicitSize(svgData)
	if !ok {
		w, h = c.svgFallbackWidth, c.svgFallbackHeight
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("SVG has no explicit size and no fallback size is configured")
	}

	out, err := renderSVGToPNG(svgData, w, h)
	if err != nil {
		slog.Error("PngConverterCommand: failed to render SVG", "width", w, "height", h, "error", err)
		return nil, err
	}
	slog.Debug("PngConverterCommand: rendered SVG", "width", w, "height", h, "output_size_bytes", len(out))
	return out, nil
}

// parseSvgExplicitSize extracts integer width and height attributes from the
// <svg> start tag. A viewBox alone is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	tag := svgStartTag.Find(data)
	if tag == nil {
		return 0, 0, false
	}
	wm := svgWidthAttr.FindSubmatch(tag)
	hm := svgHeightAttr.FindSubmatch(tag)
	if wm == nil || hm == nil {
		return 0, 0, false
	}
	w, werr := strconv.Atoi(string(wm[1]))
	h, herr := strconv.Atoi(string(hm[1]))
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// isSVGData reports whether data is markup (leading "<" after an optional BOM
// and whitespace) with an <svg tag in the first 4KB
func isSVGData(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return false
	}
	head := trimmed[:min(len(trimmed), 4096)]
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

func renderSVGToPNG(svgData []byte, targetW, targetH int) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := createTargetCanvas(targetW, targetH, color.White)
	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	return encodePNG(dst)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("PngConverterCommand", NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register PngConverterCommand: %v", err))
	}
}
