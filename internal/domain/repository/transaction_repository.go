package repository

import (
	"context"
	"time"

	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/inventory"
)

// SortField campos ordenables del ledger (conjunto cerrado).
type SortField string

const (
	SortByDate     SortField = "date"
	SortByQuantity SortField = "quantity"
	SortByType     SortField = "type"
)

// Valid indica si el campo pertenece al conjunto ordenable.
func (f SortField) Valid() bool {
	return f == SortByDate || f == SortByQuantity || f == SortByType
}

// SortOrder dirección de ordenamiento.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Valid indica si la dirección es asc o desc.
func (o SortOrder) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// TransactionFilter predicados admitidos sobre el ledger.
// Labels compara exactamente con "título - artista" del ítem.
type TransactionFilter struct {
	ItemID string
	Types  []entity.MovementType
	Labels []string
	From   *time.Time
	To     *time.Time
}

// TransactionQuery consulta paginada. Snapshot es la marca opaca devuelta por una página
// anterior: restringe el listado a las transacciones visibles cuando se emitió. Vacía = ahora.
// El orden siempre termina en (date, id) como desempate.
type TransactionQuery struct {
	Filter   TransactionFilter
	Sort     SortField
	Order    SortOrder
	Page     int
	PageSize int
	Snapshot string
}

// Offset calcula el desplazamiento de la página (1-based).
func (q TransactionQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// ItemRef datos mínimos del ítem para mostrar junto a la transacción.
type ItemRef struct {
	ID     string
	Title  string
	Artist string
}

// TransactionRecord transacción con su ítem resuelto (Item nil si no se resuelve).
type TransactionRecord struct {
	Transaction *entity.Transaction
	Item        *ItemRef
}

// TransactionPage resultado de una consulta paginada.
type TransactionPage struct {
	Records  []TransactionRecord
	Total    int64
	Snapshot string
}

// LedgerTotals agregados globales del ledger.
type LedgerTotals struct {
	TransactionCount int64
	TotalIn          int64
	TotalOut         int64
}

// TransactionRepository puerto del ledger: solo inserción y lectura.
// No existe operación de actualización ni borrado.
type TransactionRepository interface {
	// Append persiste la transacción y asigna Seq. Devuelve domain.ErrNotFound si el ítem no existe.
	Append(ctx context.Context, tx *entity.Transaction) error
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	SumByItem(ctx context.Context, itemID string) (inventory.LedgerTotals, error)
	CountByItem(ctx context.Context, itemID string) (int64, error)
	List(ctx context.Context, q TransactionQuery) (*TransactionPage, error)
	Totals(ctx context.Context) (LedgerTotals, error)
}
