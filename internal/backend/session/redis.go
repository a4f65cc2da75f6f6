package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/faceregistry/internal/backend/database"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "faceregistry:session:"

// redisPending is the stored form of a Pending. Embeddings keep the raw float64
// encoding of the face store so values survive the round trip bit for bit.
type redisPending struct {
	ImageName  string    `json:"imageName"`
	Embeddings [][]byte  `json:"embeddings"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(address string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: address})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", address, err)
	}

	slog.Info("redis session store connected", "address", address, "ttl", ttl)
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Put(ctx context.Context, pending *Pending) (string, error) {
	stored := redisPending{
		ImageName:  pending.ImageName,
		Embeddings: make([][]byte, len(pending.Embeddings)),
		CreatedAt:  pending.CreatedAt,
	}
	for i, embedding := range pending.Embeddings {
		stored.Embeddings[i] = database.EncodeEmbedding(embedding)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	id := newSessionID()
	if err := s.client.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Pending, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var stored redisPending
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	pending := &Pending{
		ImageName:  stored.ImageName,
		Embeddings: make([][]float64, len(stored.Embeddings)),
		CreatedAt:  stored.CreatedAt,
	}
	for i, blob := range stored.Embeddings {
		if pending.Embeddings[i], err = database.DecodeEmbedding(blob); err != nil {
			return nil, fmt.Errorf("failed to decode session embedding %d: %w", i, err)
		}
	}
	return pending, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, keyPrefix+id).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
