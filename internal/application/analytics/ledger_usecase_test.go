package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/album-ledger-api/internal/application/analytics"
	"github.com/jhoicas/album-ledger-api/internal/application/dto"
	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
	"github.com/jhoicas/album-ledger-api/internal/infrastructure/memory"
)

func TestBuildTransactionQuery_Defaults(t *testing.T) {
	q, err := analytics.BuildTransactionQuery(dto.TransactionListQuery{})
	require.NoError(t, err)
	assert.Equal(t, repository.SortByDate, q.Sort)
	assert.Equal(t, repository.OrderDesc, q.Order)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, dto.DefaultPageSize, q.PageSize)
	assert.Nil(t, q.Filter.From)
	assert.Nil(t, q.Filter.To)
}

func TestBuildTransactionQuery(t *testing.T) {
	q, err := analytics.BuildTransactionQuery(dto.TransactionListQuery{
		PageRequest: dto.PageRequest{Page: 3, PageSize: 500},
		Sort:        "Quantity",
		Types:       []string{"IN,out", ""},
		Items:       []string{" A - B ", ""},
		From:        "2024-01-01",
		To:          "2024-01-31",
		Snapshot:    " 42 ",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.SortByQuantity, q.Sort)
	assert.Equal(t, repository.OrderAsc, q.Order, "sort sin order es ascendente")
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, dto.MaxPageSize, q.PageSize)
	assert.Equal(t, []entity.MovementType{entity.MovementTypeIn, entity.MovementTypeOut}, q.Filter.Types)
	assert.Equal(t, []string{"A - B"}, q.Filter.Labels)
	assert.Equal(t, "42", q.Snapshot)
	require.NotNil(t, q.Filter.From)
	require.NotNil(t, q.Filter.To)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *q.Filter.From)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999000, time.UTC), *q.Filter.To)

	q, err = analytics.BuildTransactionQuery(dto.TransactionListQuery{Sort: "type", Order: "descend"})
	require.NoError(t, err)
	assert.Equal(t, repository.SortByType, q.Sort)
	assert.Equal(t, repository.OrderDesc, q.Order)

	q, err = analytics.BuildTransactionQuery(dto.TransactionListQuery{From: "2024-03-01T10:00:00-05:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), *q.Filter.From)
}

func TestBuildTransactionQuery_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		in    dto.TransactionListQuery
		field string
	}{
		{"sort", dto.TransactionListQuery{Sort: "price"}, "sort"},
		{"order", dto.TransactionListQuery{Order: "sideways"}, "order"},
		{"type", dto.TransactionListQuery{Types: []string{"in,adjust"}}, "type"},
		{"from", dto.TransactionListQuery{From: "ayer"}, "from"},
		{"to", dto.TransactionListQuery{To: "2024-13-01"}, "to"},
		{"range", dto.TransactionListQuery{From: "2024-02-01", To: "2024-01-01"}, "to"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := analytics.BuildTransactionQuery(tc.in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func seed(t *testing.T) (*memory.Store, string, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	resolver := inventory.NewStockResolver(store, store.Items(), nil, nil, nil, true)

	var ids []string
	for _, title := range []string{"A", "C"} {
		it, err := entity.NewItem(title, "B", nil, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.Items().Create(ctx, it))
		ids = append(ids, it.ID)
	}
	moves := []struct {
		id  string
		typ string
		qty int64
	}{
		{ids[0], "in", 10}, {ids[0], "out", 4}, {ids[1], "in", 3}, {ids[1], "in", 2},
	}
	for _, m := range moves {
		_, err := resolver.ApplyMovement(ctx, inventory.MovementInput{ItemID: m.id, Type: m.typ, Quantity: m.qty})
		require.NoError(t, err)
	}
	return store, ids[0], ids[1]
}

func TestLedgerQueryUseCase(t *testing.T) {
	store, a, c := seed(t)
	uc := analytics.NewLedgerQueryUseCase(store.Transactions())
	ctx := context.Background()

	all, err := uc.ListAll(ctx, dto.TransactionListQuery{ItemID: a})
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.Total, "ListAll ignora el itemId")
	assert.Equal(t, "4", all.Snapshot)

	_, err = uc.ListAll(ctx, dto.TransactionListQuery{Snapshot: "not-a-mark"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	byItem, err := uc.ListByItem(ctx, c, dto.TransactionListQuery{Sort: "quantity"})
	require.NoError(t, err)
	require.Len(t, byItem.Transactions, 2)
	assert.EqualValues(t, 2, byItem.Transactions[0].Quantity)
	assert.EqualValues(t, 3, byItem.Transactions[1].Quantity)
	require.NotNil(t, byItem.Transactions[0].Item)
	assert.Equal(t, "C - B", byItem.Transactions[0].ItemLabel)

	byLabel, err := uc.ListAll(ctx, dto.TransactionListQuery{Items: []string{"A - B"}, Types: []string{"out"}})
	require.NoError(t, err)
	require.Len(t, byLabel.Transactions, 1)
	assert.EqualValues(t, 4, byLabel.Transactions[0].Quantity)

	empty, err := uc.ListByItem(ctx, "missing", dto.TransactionListQuery{})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.Transactions)

	_, err = uc.ListByItem(ctx, " ", dto.TransactionListQuery{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFromTransaction_UnknownItem(t *testing.T) {
	tx, err := entity.NewTransaction("gone", entity.MovementTypeIn, 1, "", "", time.Now())
	require.NoError(t, err)

	out := dto.FromTransaction(tx, nil)
	assert.Nil(t, out.Item)
	assert.Equal(t, entity.UnknownItemLabel, out.ItemLabel)
}

func TestDashboardUseCase_GetSummary(t *testing.T) {
	store, _, _ := seed(t)
	ctx := context.Background()
	empty, err := entity.NewItem("Empty", "Shelf", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Items().Create(ctx, empty))

	uc := analytics.NewDashboardUseCase(store.Items(), store.Transactions())
	sum, err := uc.GetSummary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, sum.ItemCount)
	assert.EqualValues(t, 11, sum.TotalStock)
	assert.EqualValues(t, 1, sum.OutOfStockItems)
	assert.EqualValues(t, 4, sum.TransactionCount)
	assert.EqualValues(t, 15, sum.TotalIn)
	assert.EqualValues(t, 4, sum.TotalOut)
}
