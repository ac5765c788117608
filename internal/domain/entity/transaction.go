package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/album-ledger-api/internal/domain"
)

// MovementType tipo de movimiento de stock (value object).
type MovementType string

const (
	MovementTypeIn  MovementType = "in"  // entrada
	MovementTypeOut MovementType = "out" // salida
)

// ParseMovementType acepta "in"/"out" sin distinguir mayúsculas.
func ParseMovementType(s string) (MovementType, error) {
	switch MovementType(strings.ToLower(strings.TrimSpace(s))) {
	case MovementTypeIn:
		return MovementTypeIn, nil
	case MovementTypeOut:
		return MovementTypeOut, nil
	}
	return "", domain.NewValidationError("type", "debe ser in u out")
}

// Valid indica si el tipo pertenece al conjunto cerrado {in, out}.
func (t MovementType) Valid() bool {
	return t == MovementTypeIn || t == MovementTypeOut
}

// Transaction es un registro inmutable del ledger. Se crea una sola vez y nunca se modifica ni elimina.
type Transaction struct {
	ID        string
	Seq       int64 // orden de inserción; marca de agua para paginación estable
	ItemID    string
	Type      MovementType
	Quantity  int64
	Date      time.Time
	Notes     string
	CreatedBy string
}

// NewTransaction valida el movimiento y construye el registro con ID y fecha asignados.
func NewTransaction(itemID string, typ MovementType, quantity int64, notes, createdBy string, now time.Time) (*Transaction, error) {
	if err := ValidateMovement(itemID, typ, quantity); err != nil {
		return nil, err
	}
	return &Transaction{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		Type:      typ,
		Quantity:  quantity,
		Date:      now,
		Notes:     strings.TrimSpace(notes),
		CreatedBy: createdBy,
	}, nil
}

// ValidateMovement valida ítem, tipo y cantidad de un movimiento.
func ValidateMovement(itemID string, typ MovementType, quantity int64) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(itemID) == "" {
		verr.Add("itemId", "es requerido")
	}
	if !typ.Valid() {
		verr.Add("type", "debe ser in u out")
	}
	if quantity <= 0 {
		verr.Add("quantity", "debe ser un entero positivo")
	}
	return verr.OrNil()
}

// Delta devuelve el efecto con signo del movimiento sobre el stock.
func (t *Transaction) Delta() int64 {
	if t.Type == MovementTypeOut {
		return -t.Quantity
	}
	return t.Quantity
}
