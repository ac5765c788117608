package postgres

import (
	"context"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

// newTestPool abre la BD de DATABASE_URL y aplica las migraciones; sin variable se omite el test.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func createTestItem(t *testing.T, repo *ItemRepo) *entity.Item {
	t.Helper()
	item, err := entity.NewItem("Album "+uuid.NewString(), "Artist", nil, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

func TestItemRepo_CreateDuplicateCaseInsensitive(t *testing.T) {
	pool := newTestPool(t)
	repo := NewItemRepository(pool)
	item := createTestItem(t, repo)

	dup, err := entity.NewItem(item.Title, "ARTIST", nil, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(context.Background(), dup), domain.ErrDuplicate)

	found, err := repo.FindByTitleArtist(context.Background(), item.Title, "artist")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, item.ID, found.ID)
}

func TestItemRepo_GetByID_NotFound(t *testing.T) {
	pool := newTestPool(t)
	repo := NewItemRepository(pool)

	got, err := repo.GetByID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByID(context.Background(), "no-es-uuid")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionRepo_AppendUnknownItem(t *testing.T) {
	pool := newTestPool(t)
	repo := NewTransactionRepository(pool)

	tx, err := entity.NewTransaction(uuid.NewString(), entity.MovementTypeIn, 1, "", "", time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Append(context.Background(), tx), domain.ErrNotFound)
}

func TestTxRunner_RollbackLeavesNoTrace(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	item := createTestItem(t, NewItemRepository(pool))
	runner := NewTxRunner(pool)

	err := runner.Run(ctx, func(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository) error {
		tx, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, 5, "", "", time.Now())
		require.NoError(t, err)
		require.NoError(t, txRepo.Append(ctx, tx))
		return domain.ErrConsistency
	})
	require.ErrorIs(t, err, domain.ErrConsistency)

	n, err := NewTransactionRepository(pool).CountByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTxRunner_ConcurrentMovementsSerialize(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	item := createTestItem(t, NewItemRepository(pool))
	runner := NewTxRunner(pool)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := runner.Run(ctx, func(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository) error {
				it, err := itemRepo.GetForUpdate(ctx, item.ID)
				if err != nil {
					return err
				}
				next, err := inventory.StockCalculator(it.Stock, entity.MovementTypeIn, 1)
				if err != nil {
					return err
				}
				tx, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, 1, "", "", time.Now())
				if err != nil {
					return err
				}
				if err := txRepo.Append(ctx, tx); err != nil {
					return err
				}
				_, err = itemRepo.UpdateStock(ctx, item.ID, next, time.Now())
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := NewItemRepository(pool).GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.EqualValues(t, workers, got.Stock)

	sum, err := NewTransactionRepository(pool).SumByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.EqualValues(t, workers, sum.Stock())
}

func TestTransactionRepo_ListSnapshotAndJoin(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	item := createTestItem(t, NewItemRepository(pool))
	repo := NewTransactionRepository(pool)

	for i := 1; i <= 3; i++ {
		tx, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, int64(i), "", "", time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, tx))
	}

	q := repository.TransactionQuery{
		Filter:   repository.TransactionFilter{ItemID: item.ID},
		Sort:     repository.SortByQuantity,
		Order:    repository.OrderDesc,
		Page:     1,
		PageSize: 2,
	}
	page, err := repo.List(ctx, q)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Records, 2)
	assert.EqualValues(t, 3, page.Records[0].Transaction.Quantity)
	require.NotNil(t, page.Records[0].Item)
	assert.Equal(t, item.Title, page.Records[0].Item.Title)

	extra, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, 10, "", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, extra))

	q.Page, q.Snapshot = 2, page.Snapshot
	next, err := repo.List(ctx, q)
	require.NoError(t, err)
	assert.EqualValues(t, 3, next.Total)
	require.Len(t, next.Records, 1)
	assert.EqualValues(t, 1, next.Records[0].Transaction.Quantity)

	labeled, err := repo.List(ctx, repository.TransactionQuery{
		Filter:   repository.TransactionFilter{Labels: []string{item.Label()}},
		Sort:     repository.SortByDate,
		Order:    repository.OrderAsc,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, labeled.Total)
}

func TestTransactionRepo_SnapshotExcludesInFlightMovements(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	item := createTestItem(t, NewItemRepository(pool))
	repo := NewTransactionRepository(pool)
	query := repository.TransactionQuery{
		Filter: repository.TransactionFilter{ItemID: item.ID}, Sort: repository.SortByDate,
		Order: repository.OrderAsc, Page: 1, PageSize: 10,
	}

	committed, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, 1, "", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, committed))

	// Recibe un seq antes de que se emita la marca, pero confirma después.
	inFlight, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = inFlight.Rollback(ctx) }()
	late, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, 2, "", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, NewTransactionRepository(inFlight).Append(ctx, late))

	first, err := repo.List(ctx, query)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Total)
	require.NotEmpty(t, first.Snapshot)

	after, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, 3, "", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, after))
	require.NoError(t, inFlight.Commit(ctx))
	assert.Less(t, late.Seq, after.Seq)

	query.Snapshot = first.Snapshot
	again, err := repo.List(ctx, query)
	require.NoError(t, err)
	assert.EqualValues(t, 1, again.Total)
	require.Len(t, again.Records, 1)
	assert.Equal(t, committed.ID, again.Records[0].Transaction.ID)

	query.Snapshot = ""
	fresh, err := repo.List(ctx, query)
	require.NoError(t, err)
	assert.EqualValues(t, 3, fresh.Total)
}

func TestTransactionRepo_ListInvalidSnapshot(t *testing.T) {
	pool := newTestPool(t)
	_, err := NewTransactionRepository(pool).List(context.Background(), repository.TransactionQuery{
		Page: 1, PageSize: 10, Snapshot: "no-es-una-marca",
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "snapshot")
}

func TestTransactionRepo_SumByItemNearMaxStock(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	item := createTestItem(t, NewItemRepository(pool))
	repo := NewTransactionRepository(pool)

	for _, m := range []struct {
		typ entity.MovementType
		qty int64
	}{
		{entity.MovementTypeIn, math.MaxInt64}, {entity.MovementTypeOut, 10}, {entity.MovementTypeIn, 10},
	} {
		tx, err := entity.NewTransaction(item.ID, m.typ, m.qty, "", "", time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, tx))
	}

	sum, err := repo.SumByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), sum.Stock())

	totals, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), totals.TotalIn)
}

func TestItemRepo_DeleteWithTransactionsConflicts(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	items := NewItemRepository(pool)
	item := createTestItem(t, items)

	tx, err := entity.NewTransaction(item.ID, entity.MovementTypeIn, 1, "", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, NewTransactionRepository(pool).Append(ctx, tx))

	assert.ErrorIs(t, items.Delete(ctx, item.ID), domain.ErrConflict)
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, " ORDER BY t.date DESC, t.id DESC", orderBy(repository.SortByDate, repository.OrderDesc))
	assert.Equal(t, " ORDER BY t.quantity ASC, t.date ASC, t.id ASC", orderBy(repository.SortByQuantity, repository.OrderAsc))
	assert.Equal(t, " ORDER BY t.type DESC, t.date DESC, t.id DESC", orderBy(repository.SortByType, repository.OrderDesc))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
}
