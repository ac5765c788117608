package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/album-ledger-api/internal/application/dto"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

const dateOnlyLayout = "2006-01-02"

// LedgerQueryUseCase listados paginados del ledger con el ítem resuelto.
// Una transacción cuyo ítem no se resuelve se devuelve con item null y etiqueta "Unknown item".
type LedgerQueryUseCase struct {
	txRepo repository.TransactionRepository
}

// NewLedgerQueryUseCase construye el caso de uso.
func NewLedgerQueryUseCase(txRepo repository.TransactionRepository) *LedgerQueryUseCase {
	return &LedgerQueryUseCase{txRepo: txRepo}
}

// ListAll lista todo el ledger.
func (uc *LedgerQueryUseCase) ListAll(ctx context.Context, in dto.TransactionListQuery) (*dto.TransactionListResponse, error) {
	in.ItemID = ""
	return uc.list(ctx, in)
}

// ListByItem lista el ledger de un ítem. Un ítem sin movimientos (o inexistente) devuelve una página vacía.
func (uc *LedgerQueryUseCase) ListByItem(ctx context.Context, itemID string, in dto.TransactionListQuery) (*dto.TransactionListResponse, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, domain.NewValidationError("itemId", "es requerido")
	}
	in.ItemID = itemID
	return uc.list(ctx, in)
}

func (uc *LedgerQueryUseCase) list(ctx context.Context, in dto.TransactionListQuery) (*dto.TransactionListResponse, error) {
	q, err := BuildTransactionQuery(in)
	if err != nil {
		return nil, err
	}
	page, err := uc.txRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := &dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(page.Records)),
		Total:        page.Total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		Snapshot:     page.Snapshot,
	}
	for _, rec := range page.Records {
		out.Transactions = append(out.Transactions, dto.FromTransaction(rec.Transaction, rec.Item))
	}
	return out, nil
}

// BuildTransactionQuery valida los parámetros sueltos contra el conjunto cerrado de
// campos ordenables y predicados. Sin sort se ordena por fecha descendente.
func BuildTransactionQuery(in dto.TransactionListQuery) (repository.TransactionQuery, error) {
	in.PageRequest.DefaultPage()
	verr := &domain.ValidationError{}

	q := repository.TransactionQuery{
		Sort:     repository.SortByDate,
		Order:    repository.OrderDesc,
		Page:     in.Page,
		PageSize: in.PageSize,
		Snapshot: strings.TrimSpace(in.Snapshot),
	}
	q.Filter.ItemID = strings.TrimSpace(in.ItemID)

	if s := strings.TrimSpace(in.Sort); s != "" {
		q.Sort = repository.SortField(strings.ToLower(s))
		if !q.Sort.Valid() {
			verr.Add("sort", "debe ser date, quantity o type")
		}
		// Con sort explícito y sin order, ascendente (como la tabla del cliente).
		q.Order = repository.OrderAsc
	}
	if o := strings.TrimSpace(in.Order); o != "" {
		q.Order = parseOrder(o)
		if !q.Order.Valid() {
			verr.Add("order", "debe ser asc o desc")
		}
	}

	for _, raw := range in.Types {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			typ, err := entity.ParseMovementType(part)
			if err != nil {
				verr.Add("type", "debe ser in u out")
				continue
			}
			q.Filter.Types = append(q.Filter.Types, typ)
		}
	}
	for _, label := range in.Items {
		if label = strings.TrimSpace(label); label != "" {
			q.Filter.Labels = append(q.Filter.Labels, label)
		}
	}

	if in.From != "" {
		t, err := parseDate(in.From, false)
		if err != nil {
			verr.Add("from", "fecha inválida (RFC3339 o YYYY-MM-DD)")
		} else {
			q.Filter.From = &t
		}
	}
	if in.To != "" {
		t, err := parseDate(in.To, true)
		if err != nil {
			verr.Add("to", "fecha inválida (RFC3339 o YYYY-MM-DD)")
		} else {
			q.Filter.To = &t
		}
	}
	if q.Filter.From != nil && q.Filter.To != nil && q.Filter.To.Before(*q.Filter.From) {
		verr.Add("to", "debe ser posterior a from")
	}

	if err := verr.OrNil(); err != nil {
		return repository.TransactionQuery{}, err
	}
	return q, nil
}

// parseOrder acepta asc/desc y los valores ascend/descend de la tabla del cliente.
func parseOrder(s string) repository.SortOrder {
	switch strings.ToLower(s) {
	case "asc", "ascend":
		return repository.OrderAsc
	case "desc", "descend":
		return repository.OrderDesc
	}
	return repository.SortOrder(s)
}

// parseDate admite RFC3339 o fecha sola; con endOfDay la fecha sola cubre el día completo.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t.UTC(), nil
}
