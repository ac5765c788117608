// Package analytics contiene el lado de lectura: listados del ledger unidos al catálogo
// y los agregados del panel de control. Ningún caso de uso de este paquete modifica datos.
package analytics

import (
	"context"
	"fmt"

	"github.com/jhoicas/album-ledger-api/internal/application/dto"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

// DashboardUseCase genera los agregados del inventario.
//
// Fuente de datos: ItemRepository y TransactionRepository (consultas read-only).
type DashboardUseCase struct {
	itemRepo repository.ItemRepository
	txRepo   repository.TransactionRepository
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository) *DashboardUseCase {
	return &DashboardUseCase{itemRepo: itemRepo, txRepo: txRepo}
}

// GetSummary construye el SummaryResponse.
//
// Dos llamadas en paralelo:
//  1. ItemRepository.Totals        → ítems distintos, stock total, ítems sin stock
//  2. TransactionRepository.Totals → cantidad de transacciones, Σin, Σout
func (uc *DashboardUseCase) GetSummary(ctx context.Context) (*dto.SummaryResponse, error) {
	type catalogResult struct {
		totals repository.CatalogTotals
		err    error
	}
	type ledgerResult struct {
		totals repository.LedgerTotals
		err    error
	}

	catalogCh := make(chan catalogResult, 1)
	ledgerCh := make(chan ledgerResult, 1)

	go func() {
		t, err := uc.itemRepo.Totals(ctx)
		catalogCh <- catalogResult{t, err}
	}()
	go func() {
		t, err := uc.txRepo.Totals(ctx)
		ledgerCh <- ledgerResult{t, err}
	}()

	catalog := <-catalogCh
	ledger := <-ledgerCh

	if catalog.err != nil {
		return nil, fmt.Errorf("summary: totales del catálogo: %w", catalog.err)
	}
	if ledger.err != nil {
		return nil, fmt.Errorf("summary: totales del ledger: %w", ledger.err)
	}

	return &dto.SummaryResponse{
		ItemCount:        catalog.totals.ItemCount,
		TotalStock:       catalog.totals.TotalStock,
		OutOfStockItems:  catalog.totals.OutOfStockItems,
		TransactionCount: ledger.totals.TransactionCount,
		TotalIn:          ledger.totals.TotalIn,
		TotalOut:         ledger.totals.TotalOut,
	}, nil
}
