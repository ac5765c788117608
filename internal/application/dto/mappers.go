package dto

import (
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

// FromItem convierte la entidad a su representación HTTP.
func FromItem(i *entity.Item) ItemResponse {
	return ItemResponse{
		ID:          i.ID,
		Title:       i.Title,
		Artist:      i.Artist,
		ReleaseYear: i.ReleaseYear,
		Stock:       i.Stock,
		LastUpdated: i.LastUpdated,
		CreatedAt:   i.CreatedAt,
	}
}

// FromTransaction convierte un registro del ledger; ref nil produce la etiqueta de ítem desconocido.
func FromTransaction(t *entity.Transaction, ref *repository.ItemRef) TransactionResponse {
	out := TransactionResponse{
		ID:        t.ID,
		ItemID:    t.ItemID,
		Type:      string(t.Type),
		Quantity:  t.Quantity,
		Date:      t.Date,
		Notes:     t.Notes,
		CreatedBy: t.CreatedBy,
		ItemLabel: entity.UnknownItemLabel,
	}
	if ref != nil {
		out.Item = &TransactionItemDTO{ID: ref.ID, Title: ref.Title, Artist: ref.Artist}
		out.ItemLabel = entity.ItemLabel(ref.Title, ref.Artist)
	}
	return out
}

// FromReconciliation arma el reporte de stock.
func FromReconciliation(itemID string, cached, ledger int64, repaired bool) StockReportResponse {
	return StockReportResponse{
		ItemID:      itemID,
		CachedStock: cached,
		LedgerStock: ledger,
		Drift:       ledger - cached,
		Repaired:    repaired,
	}
}

// FromTransactionWithItem convierte una transacción recién creada junto a su ítem.
func FromTransactionWithItem(t *entity.Transaction, item *entity.Item) TransactionResponse {
	if item == nil {
		return FromTransaction(t, nil)
	}
	return FromTransaction(t, &repository.ItemRef{ID: item.ID, Title: item.Title, Artist: item.Artist})
}
