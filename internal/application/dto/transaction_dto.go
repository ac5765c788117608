package dto

import "time"

// CreateMovementRequest body para POST /api/transactions.
// albumId se acepta como alias de itemId (cliente web de álbumes).
type CreateMovementRequest struct {
	ItemID   string `json:"itemId"`
	AlbumID  string `json:"albumId,omitempty"`
	Type     string `json:"type" validate:"required,oneof=in out"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
	Notes    string `json:"notes" validate:"max=500"`
}

// ResolvedItemID devuelve itemId o, en su defecto, albumId.
func (r CreateMovementRequest) ResolvedItemID() string {
	if r.ItemID != "" {
		return r.ItemID
	}
	return r.AlbumID
}

// TransactionItemDTO ítem resuelto junto a una transacción.
type TransactionItemDTO struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// TransactionResponse salida de un registro del ledger.
// Item es null cuando el ítem referenciado no se resuelve; ItemLabel vale entonces "Unknown item".
type TransactionResponse struct {
	ID        string              `json:"id"`
	ItemID    string              `json:"itemId"`
	Type      string              `json:"type"`
	Quantity  int64               `json:"quantity"`
	Date      time.Time           `json:"date"`
	Notes     string              `json:"notes,omitempty"`
	CreatedBy string              `json:"createdBy,omitempty"`
	Item      *TransactionItemDTO `json:"item"`
	ItemLabel string              `json:"itemLabel"`
}

// MovementResponse salida de POST /api/transactions: transacción, stock resultante e ítem actualizado.
type MovementResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewStock    int64               `json:"newStock"`
	Item        ItemResponse        `json:"item"`
}

// TransactionListQuery parámetros de listado del ledger.
// Types e Items admiten varios valores; From/To aceptan RFC3339 o YYYY-MM-DD.
type TransactionListQuery struct {
	PageRequest
	ItemID   string
	Sort     string
	Order    string
	Types    []string
	Items    []string
	From     string
	To       string
	Snapshot string
}

// TransactionListResponse página del ledger. Snapshot debe reenviarse para paginar de forma estable.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"pageSize"`
	Snapshot     string                `json:"snapshot"`
}

// SummaryResponse agregados para el panel de control.
type SummaryResponse struct {
	ItemCount        int64 `json:"itemCount"`
	TotalStock       int64 `json:"totalStock"`
	OutOfStockItems  int64 `json:"outOfStockItems"`
	TransactionCount int64 `json:"transactionCount"`
	TotalIn          int64 `json:"totalIn"`
	TotalOut         int64 `json:"totalOut"`
}
