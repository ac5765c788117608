package dto

import "time"

// CreateItemRequest body para POST /api/items.
type CreateItemRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Artist      string `json:"artist" validate:"required,max=200"`
	ReleaseYear *int   `json:"releaseYear" validate:"omitempty,min=1000,max=9999"`
}

// UpdateItemRequest body para PUT /api/items/:id (sin stock: se maneja vía movimientos).
type UpdateItemRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Artist      *string `json:"artist" validate:"omitempty,max=200"`
	ReleaseYear *int    `json:"releaseYear" validate:"omitempty,min=1000,max=9999"`
}

// ItemListQuery filtros de GET /api/items.
type ItemListQuery struct {
	Title  string `query:"title"`
	Artist string `query:"artist"`
	Q      string `query:"q"`
}

// ItemResponse salida de un ítem del catálogo.
type ItemResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	ReleaseYear *int      `json:"releaseYear,omitempty"`
	Stock       int64     `json:"stock"`
	LastUpdated time.Time `json:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ItemListResponse lista del catálogo (sin paginación).
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
}

// StockReportResponse comparación entre stock cacheado y ledger.
type StockReportResponse struct {
	ItemID      string `json:"itemId"`
	CachedStock int64  `json:"cachedStock"`
	LedgerStock int64  `json:"ledgerStock"`
	Drift       int64  `json:"drift"`
	Repaired    bool   `json:"repaired"`
}
