package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL     = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second

	detectEndpoint = "/detect"
	embedEndpoint  = "/embed"
)

// HTTPDetector talks to a face service that exposes detection and embedding
// endpoints accepting multipart image uploads
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

type detectResponse struct {
	Boxes [][4]int `json:"boxes"` // [x, y, width, height]
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewHTTPDetector creates a client for the face service at baseURL
func NewHTTPDetector(baseURL string, timeout time.Duration) *HTTPDetector {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Detect returns the bounding boxes of all faces found in the image
func (d *HTTPDetector) Detect(ctx context.Context, imageData []byte) ([]Box, error) {
	body, err := d.postMultipartImage(ctx, detectEndpoint, imageData, nil)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse detection response: %w", err)
	}

	boxes := make([]Box, 0, len(resp.Boxes))
	for _, b := range resp.Boxes {
		boxes = append(boxes, Box{X: b[0], Y: b[1], Width: b[2], Height: b[3]})
	}
	slog.Debug("HTTPDetector: detection complete", "faces", len(boxes))
	return boxes, nil
}

// Embed computes one embedding per box, in box order
func (d *HTTPDetector) Embed(ctx context.Context, imageData []byte, boxes []Box) ([][]float64, error) {
	if len(boxes) == 0 {
		return nil, nil
	}

	encodedBoxes := make([][4]int, len(boxes))
	for i, b := range boxes {
		encodedBoxes[i] = [4]int{b.X, b.Y, b.Width, b.Height}
	}
	boxesJSON, err := json.Marshal(encodedBoxes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode boxes: %w", err)
	}

	body, err := d.postMultipartImage(ctx, embedEndpoint, imageData, map[string]string{"boxes": string(boxesJSON)})
	if err != nil {
		return nil, fmt.Errorf("face embedding failed: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(resp.Embeddings) != len(boxes) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d boxes", ErrEmbeddingCountMismatch, len(resp.Embeddings), len(boxes))
	}
	return resp.Embeddings, nil
}

// postMultipartImage posts the image as form file "file" plus any extra form fields
// and returns the response body of a 200 reply
func (d *HTTPDetector) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face service error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
