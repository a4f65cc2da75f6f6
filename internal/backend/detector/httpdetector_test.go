package detector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFaceService(t *testing.T, handler http.HandlerFunc) *HTTPDetector {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPDetector(server.URL+"/", 0)
}

func TestHTTPDetector_Detect(t *testing.T) {
	d := newFaceService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "image-bytes" {
			t.Errorf("unexpected image payload %q", string(data))
		}
		_, _ = w.Write([]byte(`{"boxes": [[10, 20, 30, 40], [1, 2, 3, 4]]}`))
	})

	boxes, err := d.Detect(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	want := []Box{{X: 10, Y: 20, Width: 30, Height: 40}, {X: 1, Y: 2, Width: 3, Height: 4}}
	if len(boxes) != len(want) {
		t.Fatalf("expected %d boxes, got %d", len(want), len(boxes))
	}
	for i := range want {
		if boxes[i] != want[i] {
			t.Errorf("box %d: expected %+v, got %+v", i, want[i], boxes[i])
		}
	}
}

func TestHTTPDetector_Detect_NoFaces(t *testing.T) {
	d := newFaceService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"boxes": []}`))
	})

	boxes, err := d.Detect(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("expected no boxes, got %v", boxes)
	}
}

func TestHTTPDetector_Detect_ServerError(t *testing.T) {
	d := newFaceService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	if _, err := d.Detect(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestHTTPDetector_Embed(t *testing.T) {
	d := newFaceService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var boxes [][4]int
		if err := json.Unmarshal([]byte(r.FormValue("boxes")), &boxes); err != nil {
			t.Errorf("invalid boxes field: %v", err)
		}
		embeddings := make([][]float64, len(boxes))
		for i, b := range boxes {
			embeddings[i] = []float64{float64(b[0]), 0.5}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	})

	boxes := []Box{{X: 7, Width: 1, Height: 1}, {X: 3, Width: 1, Height: 1}}
	embeddings, err := d.Embed(context.Background(), []byte("x"), boxes)
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if embeddings[0][0] != 7 || embeddings[1][0] != 3 {
		t.Errorf("embeddings not in box order: %v", embeddings)
	}
}

func TestHTTPDetector_Embed_CountMismatch(t *testing.T) {
	d := newFaceService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[1, 2]]}`))
	})

	_, err := d.Embed(context.Background(), []byte("x"), []Box{{}, {}})
	if !errors.Is(err, ErrEmbeddingCountMismatch) {
		t.Fatalf("expected ErrEmbeddingCountMismatch, got %v", err)
	}
}

func TestHTTPDetector_Embed_NoBoxes(t *testing.T) {
	d := newFaceService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("face service should not be called without boxes")
	})

	embeddings, err := d.Embed(context.Background(), []byte("x"), nil)
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if len(embeddings) != 0 {
		t.Fatalf("expected no embeddings, got %v", embeddings)
	}
}

func TestBox_Rectangle(t *testing.T) {
	r := Box{X: 5, Y: 6, Width: 10, Height: 20}.Rectangle()
	if r.Min.X != 5 || r.Min.Y != 6 || r.Max.X != 15 || r.Max.Y != 26 {
		t.Fatalf("unexpected rectangle %v", r)
	}
}
