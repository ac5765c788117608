package inventory

import (
	"math"

	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
)

// LedgerTotals sumas de cantidades de un ítem según el ledger.
type LedgerTotals struct {
	In  int64
	Out int64
}

// Stock deriva el stock a partir del ledger: Σentradas - Σsalidas.
// In y Out pueden desbordar por separado; la resta en complemento a dos sigue siendo exacta
// mientras el stock real quepa en int64.
func (t LedgerTotals) Stock() int64 {
	return t.In - t.Out
}

// Add acumula un movimiento en los totales.
func (t LedgerTotals) Add(tx *entity.Transaction) LedgerTotals {
	switch tx.Type {
	case entity.MovementTypeIn:
		t.In += tx.Quantity
	case entity.MovementTypeOut:
		t.Out += tx.Quantity
	}
	return t
}

// StockCalculator aplica un movimiento al stock actual (servicio de dominio).
// NuevoStock = StockActual + delta; falla con ErrInsufficientStock si el resultado es negativo
// y con un error de validación de quantity si una entrada excede el máximo representable.
func StockCalculator(current int64, typ entity.MovementType, quantity int64) (int64, error) {
	if typ == entity.MovementTypeIn && quantity > 0 && current > math.MaxInt64-quantity {
		return current, domain.NewValidationError("quantity", "el stock resultante excede el máximo permitido")
	}
	delta := quantity
	if typ == entity.MovementTypeOut {
		delta = -quantity
	}
	next := current + delta
	if next < 0 {
		return current, domain.ErrInsufficientStock
	}
	return next, nil
}

// SaturatingAdd suma sin desbordar: el resultado se fija en math.MaxInt64.
// Para agregados del panel, donde un total de varios ítems puede exceder int64.
func SaturatingAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
