package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/uniedit/ghiblify/internal/port/outbound"
)

const documentKeyPrefix = "ledger:doc:"

// DocumentStore implements outbound.DocumentPort with one string key per document.
type DocumentStore struct {
	client redis.UniversalClient
}

// NewDocumentStore creates a Redis-backed document store.
func NewDocumentStore(client redis.UniversalClient) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) key(name string) string {
	return documentKeyPrefix + name
}

// Load returns the document stored under the name's key, or outbound.ErrDocumentNotFound.
func (s *DocumentStore) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", outbound.ErrDocumentNotFound, s.key(name))
		}
		return nil, err
	}
	return data, nil
}

// Save stores data under the name's key without expiry.
func (s *DocumentStore) Save(ctx context.Context, name string, data []byte) error {
	return s.client.Set(ctx, s.key(name), data, 0).Err()
}

// Compile-time check
var _ outbound.DocumentPort = (*DocumentStore)(nil)
