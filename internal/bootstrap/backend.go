// Package bootstrap arma los adaptadores de persistencia según STORE_DRIVER.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
	"github.com/jhoicas/album-ledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/album-ledger-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/album-ledger-api/internal/infrastructure/redis"
	"github.com/jhoicas/album-ledger-api/pkg/config"
	"github.com/jhoicas/album-ledger-api/pkg/logger"
)

// Backend puertos ya conectados a un almacenamiento concreto.
type Backend struct {
	TxRunner     inventory.TxRunner
	Items        repository.ItemRepository
	Transactions repository.TransactionRepository
	Idempotency  inventory.IdempotencyStore

	closers []func()
}

// Close libera conexiones en orden inverso a la apertura.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// Open conecta el almacenamiento y el store de idempotencia configurados.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		b.TxRunner, b.Items, b.Transactions = store, store.Items(), store.Transactions()
		log.Warn().Msg("STORE_DRIVER=memory: los datos no sobreviven al reinicio")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		if cfg.DB.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				b.Close()
				return nil, fmt.Errorf("migraciones: %w", err)
			}
			log.Info().Msg("migraciones aplicadas")
		}
		b.TxRunner = postgres.NewTxRunner(pool)
		b.Items = postgres.NewItemRepository(pool)
		b.Transactions = postgres.NewTransactionRepository(pool)
	}

	if cfg.Redis.URL != "" {
		client, err := infraredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("conexión a Redis: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.Idempotency = infraredis.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
	} else {
		b.Idempotency = memory.NewIdempotencyStore(cfg.Redis.IdempotencyTTL)
	}
	return b, nil
}
