package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación en memoria de ItemRepository (con o sin transacción).
type ItemRepo struct {
	s  *Store
	tx *txScope
}

// Create persiste un ítem nuevo. Falla con ErrDuplicate si el par título/artista ya existe.
func (r *ItemRepo) Create(_ context.Context, item *entity.Item) error {
	if r.tx != nil {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
		if _, exists := r.s.items[item.ID]; exists {
			return domain.ErrDuplicate
		}
		r.tx.creates[item.ID] = cloneItem(item)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.items[item.ID]; exists {
		return domain.ErrDuplicate
	}
	if dup := r.s.findByTitleArtistLocked(item.Title, item.Artist); dup != nil {
		return domain.ErrDuplicate
	}
	r.s.items[item.ID] = cloneItem(item)
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.tx != nil {
		return r.tx.item(id), nil
	}
	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return cloneItem(it), nil
}

// GetForUpdate toma el mutex del ítem hasta el fin de la transacción y luego lo lee.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	if r.tx != nil {
		r.tx.lock(id)
	}
	return r.GetByID(ctx, id)
}

// FindByTitleArtist busca sin distinguir mayúsculas.
func (r *ItemRepo) FindByTitleArtist(_ context.Context, title, artist string) (*entity.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it := r.s.findByTitleArtistLocked(title, artist)
	if it == nil {
		return nil, nil
	}
	return cloneItem(it), nil
}

// Update modifica solo metadatos.
func (r *ItemRepo) Update(_ context.Context, item *entity.Item) error {
	if r.tx != nil {
		r.tx.updates[item.ID] = cloneItem(item)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.items[item.ID]
	if !ok {
		return nil
	}
	if dup := r.s.findByTitleArtistLocked(item.Title, item.Artist); dup != nil && dup.ID != item.ID {
		return domain.ErrDuplicate
	}
	stored.Title, stored.Artist = item.Title, item.Artist
	stored.ReleaseYear = cloneItem(item).ReleaseYear
	return nil
}

// UpdateStock escribe el stock cacheado.
func (r *ItemRepo) UpdateStock(_ context.Context, id string, stock int64, at time.Time) (bool, error) {
	if r.tx != nil {
		r.s.mu.RLock()
		exists := r.tx.item(id) != nil
		r.s.mu.RUnlock()
		if !exists {
			return false, nil
		}
		r.tx.stocks[id] = stockWrite{stock: stock, at: at}
		return true, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.items[id]
	if !ok {
		return false, nil
	}
	stored.Stock, stored.LastUpdated = stock, at
	return true, nil
}

// List devuelve los ítems ordenados por título, artista e id.
func (r *ItemRepo) List(_ context.Context, filter repository.ItemFilter) ([]*entity.Item, error) {
	ft, fa, fq := fold(filter.Title), fold(filter.Artist), fold(filter.Query)

	r.s.mu.RLock()
	list := make([]*entity.Item, 0, len(r.s.items))
	for _, it := range r.s.items {
		title, artist := fold(it.Title), fold(it.Artist)
		if ft != "" && !strings.Contains(title, ft) {
			continue
		}
		if fa != "" && !strings.Contains(artist, fa) {
			continue
		}
		if fq != "" && !strings.Contains(title, fq) && !strings.Contains(artist, fq) {
			continue
		}
		list = append(list, cloneItem(it))
	}
	r.s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if ta, tb := fold(a.Title), fold(b.Title); ta != tb {
			return ta < tb
		}
		if aa, ab := fold(a.Artist), fold(b.Artist); aa != ab {
			return aa < ab
		}
		return a.ID < b.ID
	})
	return list, nil
}

// Delete elimina el ítem. Con transacciones asociadas devuelve ErrConflict (equivale a la FK RESTRICT).
func (r *ItemRepo) Delete(_ context.Context, id string) error {
	if r.tx != nil {
		r.tx.deletes[id] = true
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.byItem[id]) > 0 {
		return domain.ErrConflict
	}
	delete(r.s.items, id)
	return nil
}

// Totals agrega el catálogo.
func (r *ItemRepo) Totals(_ context.Context) (repository.CatalogTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var t repository.CatalogTotals
	for _, it := range r.s.items {
		t.ItemCount++
		t.TotalStock = inventory.SaturatingAdd(t.TotalStock, it.Stock)
		if it.Stock == 0 {
			t.OutOfStockItems++
		}
	}
	return t, nil
}
