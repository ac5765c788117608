package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
	"github.com/jhoicas/album-ledger-api/pkg/logger"
	"github.com/jhoicas/album-ledger-api/pkg/metrics"
)

// StockResolver aplica movimientos de stock de forma transaccional: bloqueo de fila del ítem
// (SELECT FOR UPDATE), inserción en el ledger y actualización del stock cacheado en la misma tx.
// El ledger es la fuente de verdad; Item.Stock es una caché que se reconcilia con RecomputeStock.
type StockResolver struct {
	txRunner      TxRunner
	itemRepo      repository.ItemRepository
	idempotency   IdempotencyStore
	log           *logger.Logger
	metrics       *metrics.Metrics
	verifyOnWrite bool
	now           func() time.Time
}

// NewStockResolver construye el motor. idempotency y m pueden ser nil.
func NewStockResolver(
	txRunner TxRunner,
	itemRepo repository.ItemRepository,
	idempotency IdempotencyStore,
	log *logger.Logger,
	m *metrics.Metrics,
	verifyOnWrite bool,
) *StockResolver {
	if log == nil {
		log = logger.Nop()
	}
	return &StockResolver{
		txRunner:      txRunner,
		itemRepo:      itemRepo,
		idempotency:   idempotency,
		log:           log,
		metrics:       m,
		verifyOnWrite: verifyOnWrite,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// MovementInput entrada para aplicar un movimiento.
type MovementInput struct {
	ItemID         string
	Type           string
	Quantity       int64
	Notes          string
	UserID         string
	IdempotencyKey string
}

// MovementResult transacción creada y estado del ítem tras aplicarla.
type MovementResult struct {
	Transaction *entity.Transaction
	NewStock    int64
	Item        *entity.Item
}

// Reconciliation compara el stock cacheado con el derivado del ledger.
type Reconciliation struct {
	ItemID      string
	CachedStock int64
	LedgerStock int64
	Repaired    bool
}

// Drift diferencia entre ledger y caché (0 = consistente).
func (r Reconciliation) Drift() int64 {
	return r.LedgerStock - r.CachedStock
}

// ApplyMovement valida, bloquea el ítem, verifica que el stock no quede negativo y
// en una sola transacción agrega el registro al ledger y actualiza Item.Stock.
func (uc *StockResolver) ApplyMovement(ctx context.Context, in MovementInput) (res *MovementResult, err error) {
	typ, _ := entity.ParseMovementType(in.Type)
	if err := entity.ValidateMovement(in.ItemID, typ, in.Quantity); err != nil {
		uc.metrics.Rejected("validation")
		return nil, err
	}

	if in.IdempotencyKey != "" && uc.idempotency != nil {
		ok, rerr := uc.idempotency.Reserve(ctx, in.IdempotencyKey)
		if rerr != nil {
			return nil, fmt.Errorf("reservar clave de idempotencia: %w", rerr)
		}
		if !ok {
			uc.metrics.Rejected("duplicate_request")
			return nil, domain.ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := uc.idempotency.Release(context.WithoutCancel(ctx), in.IdempotencyKey); relErr != nil {
				uc.log.Warn().Err(relErr).Str("key", in.IdempotencyKey).Msg("liberar clave de idempotencia")
			}
		}()
	}

	now := uc.now()
	var result MovementResult
	var drift Reconciliation

	err = uc.txRunner.Run(ctx, func(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository) error {
		// Bloquea la fila del ítem para serializar movimientos concurrentes sobre el mismo ítem
		item, err := itemRepo.GetForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if uc.verifyOnWrite {
			totals, err := txRepo.SumByItem(ctx, item.ID)
			if err != nil {
				return err
			}
			if totals.Stock() != item.Stock {
				drift = Reconciliation{ItemID: item.ID, CachedStock: item.Stock, LedgerStock: totals.Stock()}
				return fmt.Errorf("%w: ítem %s cache=%d ledger=%d", domain.ErrConsistency, item.ID, item.Stock, totals.Stock())
			}
		}

		newStock, err := inventory.StockCalculator(item.Stock, typ, in.Quantity)
		if err != nil {
			return err
		}

		tx, err := entity.NewTransaction(item.ID, typ, in.Quantity, in.Notes, in.UserID, now)
		if err != nil {
			return err
		}
		if err := txRepo.Append(ctx, tx); err != nil {
			return err
		}
		updated, err := itemRepo.UpdateStock(ctx, item.ID, newStock, now)
		if err != nil {
			return err
		}
		if !updated {
			drift = Reconciliation{ItemID: item.ID, CachedStock: item.Stock, LedgerStock: newStock}
			return fmt.Errorf("%w: stock del ítem %s no actualizado", domain.ErrConsistency, item.ID)
		}

		item.Stock = newStock
		item.LastUpdated = now
		result = MovementResult{Transaction: tx, NewStock: newStock, Item: item}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConsistency):
			uc.metrics.Inconsistent()
			uc.log.Error().Err(err).
				Str("item_id", in.ItemID).
				Int64("cached_stock", drift.CachedStock).
				Int64("ledger_stock", drift.LedgerStock).
				Msg("inconsistencia ledger/stock; reconciliando")
			if _, rerr := uc.RecomputeStock(context.WithoutCancel(ctx), in.ItemID); rerr != nil {
				uc.log.Error().Err(rerr).Str("item_id", in.ItemID).Msg("reconciliación fallida")
			}
		case errors.Is(err, domain.ErrInsufficientStock):
			uc.metrics.Rejected("insufficient_stock")
		case errors.Is(err, domain.ErrNotFound):
			uc.metrics.Rejected("not_found")
		case errors.Is(err, domain.ErrInvalidInput):
			uc.metrics.Rejected("validation")
		}
		return nil, err
	}

	uc.metrics.Applied(string(typ))
	uc.log.Debug().
		Str("item_id", result.Item.ID).
		Str("transaction_id", result.Transaction.ID).
		Str("type", string(typ)).
		Int64("quantity", in.Quantity).
		Int64("new_stock", result.NewStock).
		Msg("movimiento aplicado")
	return &result, nil
}

// RecomputeStock deriva el stock del ledger (Σin - Σout) con el ítem bloqueado y
// corrige el valor cacheado si difiere. Devuelve el stock según el ledger.
func (uc *StockResolver) RecomputeStock(ctx context.Context, itemID string) (*Reconciliation, error) {
	var rec Reconciliation
	err := uc.txRunner.Run(ctx, func(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository) error {
		item, err := itemRepo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		totals, err := txRepo.SumByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		rec = Reconciliation{ItemID: item.ID, CachedStock: item.Stock, LedgerStock: totals.Stock()}
		if rec.Drift() == 0 {
			return nil
		}
		if rec.LedgerStock < 0 {
			return fmt.Errorf("%w: ledger negativo para ítem %s (%d)", domain.ErrConsistency, item.ID, rec.LedgerStock)
		}
		updated, err := itemRepo.UpdateStock(ctx, item.ID, rec.LedgerStock, uc.now())
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrNotFound
		}
		rec.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.Reconciled(rec.Repaired)
	if rec.Repaired {
		uc.log.Warn().
			Str("item_id", rec.ItemID).
			Int64("cached_stock", rec.CachedStock).
			Int64("ledger_stock", rec.LedgerStock).
			Msg("stock reparado desde el ledger")
	}
	return &rec, nil
}

// VerifyStock compara caché y ledger sin modificar nada.
func (uc *StockResolver) VerifyStock(ctx context.Context, itemID string) (*Reconciliation, error) {
	var rec Reconciliation
	err := uc.txRunner.Run(ctx, func(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository) error {
		item, err := itemRepo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		totals, err := txRepo.SumByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		rec = Reconciliation{ItemID: item.ID, CachedStock: item.Stock, LedgerStock: totals.Stock()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReconcileAll ejecuta RecomputeStock sobre todo el catálogo.
// Los ítems eliminados entre el listado y el recálculo se omiten.
func (uc *StockResolver) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	items, err := uc.itemRepo.List(ctx, repository.ItemFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]Reconciliation, 0, len(items))
	for _, it := range items {
		rec, err := uc.RecomputeStock(ctx, it.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("reconciliar ítem %s: %w", it.ID, err)
		}
		out = append(out, *rec)
	}
	return out, nil
}
