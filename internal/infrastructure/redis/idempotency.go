package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
)

const idempotencyPrefix = "album-ledger:idempotency:"

var _ inventory.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore reserva claves con SETNX y TTL, compartidas entre réplicas de la API.
type IdempotencyStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewIdempotencyStore construye el store.
func NewIdempotencyStore(client *goredis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve devuelve false si la clave ya estaba reservada.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Release borra la clave.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
