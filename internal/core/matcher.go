package core

import (
	"errors"
	"log/slog"

	"github.com/jo-hoe/faceregistry/internal/backend/database"
)

// ErrNoMatch is returned when none of the embeddings is known to the store
var ErrNoMatch = errors.New("no matching face found")

// Matcher resolves embeddings against the face store
type Matcher struct {
	store database.DatabaseService
}

func NewMatcher(store database.DatabaseService) *Matcher {
	return &Matcher{store: store}
}

// MatchFirst looks the embeddings up in order and returns the details of the
// first one the store knows. Later embeddings are not looked at once a match is found.
// Storage failures are logged and count as "not found" for that embedding.
func (m *Matcher) MatchFirst(embeddings [][]float64) (*database.FaceDetails, error) {
	for i, embedding := range embeddings {
		details, err := m.store.FindFaceByEmbedding(embedding)
		switch {
		case err == nil:
			slog.Debug("Matcher: face recognized", "index", i, "name", details.Name)
			return details, nil
		case errors.Is(err, database.ErrNotFound):
			continue
		default:
			slog.Error("Matcher: lookup failed, treating face as unknown", "index", i, "error", err)
		}
	}
	return nil, ErrNoMatch
}
