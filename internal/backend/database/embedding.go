package database

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const float64Size = 8

// EncodeEmbedding packs a vector into a BLOB of float64 values in native byte order.
// There is no length header, the dimension is implied by the blob size.
func EncodeEmbedding(embedding []float64) []byte {
	buf := make([]byte, len(embedding)*float64Size)
	for i, v := range embedding {
		binary.NativeEndian.PutUint64(buf[i*float64Size:], math.Float64bits(v))
	}
	return buf
}

// DecodeEmbedding is the inverse of EncodeEmbedding
func DecodeEmbedding(data []byte) ([]float64, error) {
	if len(data)%float64Size != 0 {
		return nil, fmt.Errorf("%w: blob length %d is not a multiple of %d", ErrInvalidEmbedding, len(data), float64Size)
	}
	embedding := make([]float64, len(data)/float64Size)
	for i := range embedding {
		embedding[i] = math.Float64frombits(binary.NativeEndian.Uint64(data[i*float64Size:]))
	}
	return embedding, nil
}

// EmbeddingsEqual reports whether both vectors have the same length and every element
// compares equal. No tolerance is applied.
func EmbeddingsEqual(a, b []float64) bool {
	return floats.Equal(a, b)
}
