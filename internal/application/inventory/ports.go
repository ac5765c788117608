package inventory

import (
	"context"

	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: si fn devuelve error no queda ningún efecto.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.ItemRepository,
		txRepo repository.TransactionRepository,
	) error) error
}

// IdempotencyStore reserva claves de idempotencia para no aplicar dos veces el mismo movimiento.
type IdempotencyStore interface {
	// Reserve devuelve false si la clave ya estaba reservada.
	Reserve(ctx context.Context, key string) (bool, error)
	// Release libera la clave para que el cliente pueda reintentar.
	Release(ctx context.Context, key string) error
}
