package memory

import (
	"context"
	"sort"
	"strconv"

	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo ledger en memoria: solo inserción y lectura.
type TransactionRepo struct {
	s  *Store
	tx *txScope
}

// Append valida y agrega la transacción. Dentro de una tx queda pendiente hasta el commit.
func (r *TransactionRepo) Append(_ context.Context, tx *entity.Transaction) error {
	if err := entity.ValidateMovement(tx.ItemID, tx.Type, tx.Quantity); err != nil {
		return err
	}
	if r.tx != nil {
		r.s.mu.RLock()
		exists := r.tx.item(tx.ItemID) != nil
		_, dup := r.s.byID[tx.ID]
		r.s.mu.RUnlock()
		if !exists {
			return domain.ErrNotFound
		}
		if dup {
			return domain.ErrDuplicate
		}
		r.tx.appends = append(r.tx.appends, tx)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[tx.ItemID]; !ok {
		return domain.ErrNotFound
	}
	if _, dup := r.s.byID[tx.ID]; dup {
		return domain.ErrDuplicate
	}
	r.s.appendLocked(tx)
	return nil
}

// GetByID obtiene una transacción por ID.
func (r *TransactionRepo) GetByID(_ context.Context, id string) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(t), nil
}

// SumByItem suma entradas y salidas del ítem, incluyendo las pendientes de la tx.
func (r *TransactionRepo) SumByItem(_ context.Context, itemID string) (inventory.LedgerTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var totals inventory.LedgerTotals
	for _, t := range r.s.byItem[itemID] {
		totals = totals.Add(t)
	}
	if r.tx != nil {
		for _, t := range r.tx.appends {
			if t.ItemID == itemID {
				totals = totals.Add(t)
			}
		}
	}
	return totals, nil
}

// CountByItem cuenta las transacciones del ítem.
func (r *TransactionRepo) CountByItem(_ context.Context, itemID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := int64(len(r.s.byItem[itemID]))
	if r.tx != nil {
		for _, t := range r.tx.appends {
			if t.ItemID == itemID {
				n++
			}
		}
	}
	return n, nil
}

// List filtra, ordena y pagina el ledger sobre la foto Seq <= Snapshot. En memoria la marca
// es el Seq decimal: el commit publica bajo el lock de escritura, así que Seq sigue el orden de commit.
func (r *TransactionRepo) List(_ context.Context, q repository.TransactionQuery) (*repository.TransactionPage, error) {
	requested := int64(-1)
	if q.Snapshot != "" {
		n, err := strconv.ParseInt(q.Snapshot, 10, 64)
		if err != nil || n < 0 {
			return nil, domain.NewValidationError("snapshot", "marca de paginación inválida")
		}
		requested = n
	}

	r.s.mu.RLock()
	snapshot := r.s.seq
	if requested >= 0 && requested < snapshot {
		snapshot = requested
	}
	labels := make(map[string]bool, len(q.Filter.Labels))
	for _, l := range q.Filter.Labels {
		labels[l] = true
	}
	types := make(map[entity.MovementType]bool, len(q.Filter.Types))
	for _, t := range q.Filter.Types {
		types[t] = true
	}

	var matched []repository.TransactionRecord
	for _, t := range r.s.txs {
		if t.Seq > snapshot {
			break
		}
		if q.Filter.ItemID != "" && t.ItemID != q.Filter.ItemID {
			continue
		}
		if len(types) > 0 && !types[t.Type] {
			continue
		}
		if q.Filter.From != nil && t.Date.Before(*q.Filter.From) {
			continue
		}
		if q.Filter.To != nil && t.Date.After(*q.Filter.To) {
			continue
		}
		var ref *repository.ItemRef
		if it, ok := r.s.items[t.ItemID]; ok {
			ref = &repository.ItemRef{ID: it.ID, Title: it.Title, Artist: it.Artist}
		}
		if len(labels) > 0 && (ref == nil || !labels[entity.ItemLabel(ref.Title, ref.Artist)]) {
			continue
		}
		matched = append(matched, repository.TransactionRecord{Transaction: cloneTransaction(t), Item: ref})
	}
	r.s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return less(matched[i].Transaction, matched[j].Transaction, q.Sort, q.Order)
	})

	page := &repository.TransactionPage{Total: int64(len(matched)), Snapshot: strconv.FormatInt(snapshot, 10)}
	start := q.Offset()
	if start >= len(matched) {
		page.Records = []repository.TransactionRecord{}
		return page, nil
	}
	end := start + q.PageSize
	if q.PageSize <= 0 || end > len(matched) {
		end = len(matched)
	}
	page.Records = matched[start:end]
	return page, nil
}

// less ordena por el campo pedido y desempata por (date, id) en la misma dirección.
func less(a, b *entity.Transaction, field repository.SortField, order repository.SortOrder) bool {
	cmp := 0
	switch field {
	case repository.SortByQuantity:
		cmp = compareInt(a.Quantity, b.Quantity)
	case repository.SortByType:
		cmp = compareString(string(a.Type), string(b.Type))
	}
	if cmp == 0 {
		cmp = a.Date.Compare(b.Date)
	}
	if cmp == 0 {
		cmp = compareString(a.ID, b.ID)
	}
	if order == repository.OrderDesc {
		return cmp > 0
	}
	return cmp < 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Totals agrega el ledger completo; los totales se saturan en math.MaxInt64.
func (r *TransactionRepo) Totals(_ context.Context) (repository.LedgerTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var t repository.LedgerTotals
	for _, tx := range r.s.txs {
		t.TransactionCount++
		switch tx.Type {
		case entity.MovementTypeIn:
			t.TotalIn = inventory.SaturatingAdd(t.TotalIn, tx.Quantity)
		case entity.MovementTypeOut:
			t.TotalOut = inventory.SaturatingAdd(t.TotalOut, tx.Quantity)
		}
	}
	return t, nil
}
