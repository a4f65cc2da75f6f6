package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultTTL = 15 * time.Minute

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found or expired")

// Pending holds what an upload computed while the user is asked for details
type Pending struct {
	ImageName  string
	Embeddings [][]float64
	CreatedAt  time.Time
}

// Store keeps pending sessions between the upload and the save interaction
type Store interface {
	Put(ctx context.Context, pending *Pending) (string, error)
	Get(ctx context.Context, id string) (*Pending, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func NewStore(storeType, address string, ttl time.Duration) (Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch storeType {
	case "memory", "":
		return NewMemoryStore(ttl), nil
	case "redis":
		return NewRedisStore(address, ttl)
	default:
		return nil, fmt.Errorf("unsupported session store: %s", storeType)
	}
}

func newSessionID() string {
	return uuid.NewString()
}
