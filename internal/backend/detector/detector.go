// Package detector defines the face detection and embedding capability the
// registry depends on, together with an HTTP client for a face service.
package detector

import (
	"context"
	"errors"
	"image"
)

// ErrEmbeddingCountMismatch is returned when an embedder does not produce exactly
// one vector per requested box
var ErrEmbeddingCountMismatch = errors.New("embedding count does not match box count")

// Box is a face bounding box in pixel coordinates of the submitted image
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rectangle converts the box to an image.Rectangle
func (b Box) Rectangle() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Detector finds faces in an image and computes one embedding per face.
// Embed must return vectors in the same order as the boxes it was given.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]Box, error)
	Embed(ctx context.Context, imageData []byte, boxes []Box) ([][]float64, error)
}
