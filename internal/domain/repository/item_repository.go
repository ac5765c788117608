package repository

import (
	"context"
	"time"

	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
)

// ItemFilter filtros del catálogo: subcadena sin distinguir mayúsculas.
// Query coincide con título o artista.
type ItemFilter struct {
	Title  string
	Artist string
	Query  string
}

// CatalogTotals agregados del catálogo.
type CatalogTotals struct {
	ItemCount       int64
	TotalStock      int64
	OutOfStockItems int64
}

// ItemRepository define el puerto de persistencia para Item (DIP).
// GetByID y GetForUpdate devuelven (nil, nil) cuando el ítem no existe.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// GetForUpdate bloquea el ítem hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Item, error)
	FindByTitleArtist(ctx context.Context, title, artist string) (*entity.Item, error)
	// Update modifica solo metadatos; el stock se maneja vía movimientos.
	Update(ctx context.Context, item *entity.Item) error
	// UpdateStock escribe el stock cacheado y devuelve si se afectó exactamente un ítem.
	UpdateStock(ctx context.Context, id string, stock int64, at time.Time) (bool, error)
	List(ctx context.Context, filter ItemFilter) ([]*entity.Item, error)
	Delete(ctx context.Context, id string) error
	Totals(ctx context.Context) (CatalogTotals, error)
}
