package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner abre una transacción READ COMMITTED por movimiento. La serialización por ítem
// la da el SELECT ... FOR UPDATE de ItemRepo.GetForUpdate, no el nivel de aislamiento.
type TxRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// Run hace Commit si fn no falla y Rollback en cualquier otro caso (incluido panic).
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	txRepo repository.TransactionRepository,
) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		return fn(NewItemRepository(tx), NewTransactionRepository(tx))
	})
}
