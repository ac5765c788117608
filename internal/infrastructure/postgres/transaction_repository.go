package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

const transactionColumns = `t.id, t.seq, t.item_id, t.type, t.quantity, t.date, t.notes, t.created_by`

// sortColumns conjunto cerrado de columnas ordenables; nunca se interpola entrada del cliente.
var sortColumns = map[repository.SortField]string{
	repository.SortByDate:     "t.date",
	repository.SortByQuantity: "t.quantity",
	repository.SortByType:     "t.type",
}

// TransactionRepo ledger sobre PostgreSQL: solo INSERT y SELECT.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el repositorio. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

// Append inserta la transacción y asigna Seq.
func (r *TransactionRepo) Append(ctx context.Context, tx *entity.Transaction) error {
	if err := entity.ValidateMovement(tx.ItemID, tx.Type, tx.Quantity); err != nil {
		return err
	}
	if !validID(tx.ItemID) {
		return domain.ErrNotFound
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO transactions (id, item_id, type, quantity, date, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`,
		tx.ID, tx.ItemID, string(tx.Type), tx.Quantity, tx.Date, tx.Notes, tx.CreatedBy,
	).Scan(&tx.Seq)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return domain.ErrNotFound
		case isUniqueViolation(err):
			return domain.ErrDuplicate
		case isCheckViolation(err):
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row, extra ...any) (*entity.Transaction, error) {
	var (
		t   entity.Transaction
		typ string
	)
	dest := append([]any{&t.ID, &t.Seq, &t.ItemID, &typ, &t.Quantity, &t.Date, &t.Notes, &t.CreatedBy}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	t.Type = entity.MovementType(typ)
	return &t, nil
}

// GetByID obtiene una transacción por ID.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	if !validID(id) {
		return nil, nil
	}
	t, err := scanTransaction(r.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// SumByItem suma entradas y salidas del ítem. El neto se calcula en numeric y solo se
// convierte a bigint al final; In se reconstruye como neto + salidas.
func (r *TransactionRepo) SumByItem(ctx context.Context, itemID string) (inventory.LedgerTotals, error) {
	var (
		totals inventory.LedgerTotals
		net    int64
	)
	if !validID(itemID) {
		return totals, nil
	}
	err := r.q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'in' THEN quantity::numeric ELSE -quantity::numeric END), 0)::bigint,
			LEAST(COALESCE(SUM(quantity) FILTER (WHERE type = 'out'), 0), `+maxBigint+`)::bigint
		FROM transactions WHERE item_id = $1`, itemID,
	).Scan(&net, &totals.Out)
	if err != nil {
		return totals, fmt.Errorf("sum transactions by item: %w", err)
	}
	totals.In = net + totals.Out
	return totals, nil
}

// CountByItem cuenta las transacciones del ítem.
func (r *TransactionRepo) CountByItem(ctx context.Context, itemID string) (int64, error) {
	if !validID(itemID) {
		return 0, nil
	}
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE item_id = $1`, itemID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions by item: %w", err)
	}
	return n, nil
}

// List filtra, ordena y pagina el ledger unido al catálogo (LEFT JOIN: el ítem puede no resolverse).
//
// La marca de paginación es un pg_snapshot: una fila pertenece a la foto si la transacción que
// la insertó ya había confirmado cuando se tomó. A diferencia de MAX(seq), un movimiento en vuelo
// con seq menor nunca aparece después dentro de una foto ya emitida.
func (r *TransactionRepo) List(ctx context.Context, q repository.TransactionQuery) (*repository.TransactionPage, error) {
	page := &repository.TransactionPage{Records: []repository.TransactionRecord{}, Snapshot: q.Snapshot}

	if page.Snapshot == "" {
		if err := r.q.QueryRow(ctx, `SELECT pg_current_snapshot()::text`).Scan(&page.Snapshot); err != nil {
			return nil, fmt.Errorf("ledger snapshot: %w", err)
		}
	}
	if q.Filter.ItemID != "" && !validID(q.Filter.ItemID) {
		return page, nil
	}

	where, args := transactionWhere(q.Filter, page.Snapshot)
	from := ` FROM transactions t LEFT JOIN items i ON i.id = t.item_id` + where

	if err := r.q.QueryRow(ctx, `SELECT count(*)`+from, args...).Scan(&page.Total); err != nil {
		if isInvalidText(err) {
			return nil, domain.NewValidationError("snapshot", "marca de paginación inválida")
		}
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	if page.Total == 0 {
		return page, nil
	}

	query := `SELECT ` + transactionColumns + `, i.id, i.title, i.artist` + from + orderBy(q.Sort, q.Order)
	if q.PageSize > 0 {
		args = append(args, q.PageSize, q.Offset())
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var refID, title, artist *string
		t, err := scanTransaction(rows, &refID, &title, &artist)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec := repository.TransactionRecord{Transaction: t}
		if refID != nil {
			rec.Item = &repository.ItemRef{ID: *refID, Title: deref(title), Artist: deref(artist)}
		}
		page.Records = append(page.Records, rec)
	}
	return page, rows.Err()
}

func transactionWhere(f repository.TransactionFilter, snapshot string) (string, []any) {
	args := []any{snapshot}
	conds := []string{`pg_visible_in_snapshot(t.xid, $1::text::pg_snapshot)`}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ItemID != "" {
		conds = append(conds, `t.item_id = `+arg(f.ItemID))
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		conds = append(conds, `t.type = ANY(`+arg(types)+`)`)
	}
	if len(f.Labels) > 0 {
		conds = append(conds, `(i.title || ' - ' || i.artist) = ANY(`+arg(f.Labels)+`)`)
	}
	if f.From != nil {
		conds = append(conds, `t.date >= `+arg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, `t.date <= `+arg(*f.To))
	}
	return ` WHERE ` + strings.Join(conds, " AND "), args
}

// orderBy arma el ORDER BY con desempate (date, id) en la misma dirección.
func orderBy(field repository.SortField, order repository.SortOrder) string {
	dir := "ASC"
	if order == repository.OrderDesc {
		dir = "DESC"
	}
	cols := []string{}
	if col, ok := sortColumns[field]; ok && field != repository.SortByDate {
		cols = append(cols, col+" "+dir)
	}
	cols = append(cols, "t.date "+dir, "t.id "+dir)
	return ` ORDER BY ` + strings.Join(cols, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Totals agrega el ledger completo.
func (r *TransactionRepo) Totals(ctx context.Context) (repository.LedgerTotals, error) {
	var t repository.LedgerTotals
	err := r.q.QueryRow(ctx, `
		SELECT
			count(*),
			LEAST(COALESCE(SUM(quantity) FILTER (WHERE type = 'in'), 0), `+maxBigint+`)::bigint,
			LEAST(COALESCE(SUM(quantity) FILTER (WHERE type = 'out'), 0), `+maxBigint+`)::bigint
		FROM transactions`,
	).Scan(&t.TransactionCount, &t.TotalIn, &t.TotalOut)
	if err != nil {
		return t, fmt.Errorf("ledger totals: %w", err)
	}
	return t, nil
}
