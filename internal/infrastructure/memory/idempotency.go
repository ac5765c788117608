package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
)

var _ inventory.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore claves de idempotencia en proceso (sin Redis). Solo válido con una instancia.
type IdempotencyStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	keys      map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

// NewIdempotencyStore crea el almacén; las claves expiran tras ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

// Reserve devuelve false si la clave sigue vigente. Cada ttl barre las claves vencidas.
func (s *IdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweep(now)
		s.nextSweep = now.Add(s.ttl)
	}
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.keys[key] = now.Add(s.ttl)
	return true, nil
}

// Release libera la clave.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

// sweep borra las claves vencidas. Requiere s.mu tomado.
func (s *IdempotencyStore) sweep(now time.Time) {
	for key, exp := range s.keys {
		if !now.Before(exp) {
			delete(s.keys, key)
		}
	}
}
