package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

var errAbort = errors.New("abort")

func newItem(t *testing.T, s *Store, title, artist string) *entity.Item {
	t.Helper()
	it, err := entity.NewItem(title, artist, nil, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.Items().Create(context.Background(), it))
	return it
}

func appendTx(t *testing.T, s *Store, itemID string, typ entity.MovementType, qty int64, at time.Time) *entity.Transaction {
	t.Helper()
	tx, err := entity.NewTransaction(itemID, typ, qty, "", "", at)
	require.NoError(t, err)
	require.NoError(t, s.Transactions().Append(context.Background(), tx))
	return tx
}

func TestStore_RunRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	it := newItem(t, s, "Nevermind", "Nirvana")

	err := s.Run(ctx, func(items repository.ItemRepository, txs repository.TransactionRepository) error {
		tx, err := entity.NewTransaction(it.ID, entity.MovementTypeIn, 5, "", "", time.Now())
		require.NoError(t, err)
		require.NoError(t, txs.Append(ctx, tx))
		ok, err := items.UpdateStock(ctx, it.ID, 5, time.Now())
		require.NoError(t, err)
		require.True(t, ok)

		// Dentro de la tx las escrituras pendientes son visibles.
		got, err := items.GetByID(ctx, it.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 5, got.Stock)
		sum, err := txs.SumByItem(ctx, it.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 5, sum.Stock())
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	got, err := s.Items().GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
	n, err := s.Transactions().CountByItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RunRecoversPanic(t *testing.T) {
	s := NewStore()
	err := s.Run(context.Background(), func(repository.ItemRepository, repository.TransactionRepository) error {
		panic("boom")
	})
	assert.Error(t, err)
}

func TestStore_ReadersNeverSeeHalfAppliedMovement(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	it := newItem(t, s, "In Rainbows", "Radiohead")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, _ := s.Items().GetByID(ctx, it.ID)
			sum, _ := s.Transactions().SumByItem(ctx, it.ID)
			// El ítem se lee antes que el ledger: el ledger solo puede ir por delante.
			assert.GreaterOrEqual(t, sum.Stock(), got.Stock)
		}
	}()

	for i := 0; i < 200; i++ {
		err := s.Run(ctx, func(items repository.ItemRepository, txs repository.TransactionRepository) error {
			cur, err := items.GetForUpdate(ctx, it.ID)
			if err != nil {
				return err
			}
			tx, err := entity.NewTransaction(it.ID, entity.MovementTypeIn, 1, "", "", time.Now())
			if err != nil {
				return err
			}
			if err := txs.Append(ctx, tx); err != nil {
				return err
			}
			_, err = items.UpdateStock(ctx, it.ID, cur.Stock+1, time.Now())
			return err
		})
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	got, _ := s.Items().GetByID(ctx, it.ID)
	assert.EqualValues(t, 200, got.Stock)
}

func TestItemRepo_DuplicateIsCaseInsensitive(t *testing.T) {
	s := NewStore()
	newItem(t, s, "Ágætis byrjun", "Sigur Rós")

	dup, err := entity.NewItem("ÁGÆTIS BYRJUN", "sigur rós", nil, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Items().Create(context.Background(), dup), domain.ErrDuplicate)
}

func TestItemRepo_ListFiltersAndOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	newItem(t, s, "Low", "David Bowie")
	newItem(t, s, "Heroes", "David Bowie")
	newItem(t, s, "Remain in Light", "Talking Heads")

	all, err := s.Items().List(ctx, repository.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Heroes", "Low", "Remain in Light"}, []string{all[0].Title, all[1].Title, all[2].Title})

	bowie, err := s.Items().List(ctx, repository.ItemFilter{Artist: "bowie"})
	require.NoError(t, err)
	assert.Len(t, bowie, 2)

	q, err := s.Items().List(ctx, repository.ItemFilter{Query: "HEADS"})
	require.NoError(t, err)
	require.Len(t, q, 1)
	assert.Equal(t, "Remain in Light", q[0].Title)
}

func TestItemRepo_DeleteWithTransactionsConflicts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	it := newItem(t, s, "Station to Station", "David Bowie")
	appendTx(t, s, it.ID, entity.MovementTypeIn, 1, time.Now())

	assert.ErrorIs(t, s.Items().Delete(ctx, it.ID), domain.ErrConflict)

	err := s.Run(ctx, func(items repository.ItemRepository, _ repository.TransactionRepository) error {
		return items.Delete(ctx, it.ID)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Items().GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestTransactionRepo_AppendUnknownItem(t *testing.T) {
	s := NewStore()
	tx, err := entity.NewTransaction("missing", entity.MovementTypeIn, 1, "", "", time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Transactions().Append(context.Background(), tx), domain.ErrNotFound)
}

func TestTransactionRepo_ListSortAndTieBreak(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	it := newItem(t, s, "Closer", "Joy Division")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	appendTx(t, s, it.ID, entity.MovementTypeIn, 3, base.Add(2*time.Hour))
	appendTx(t, s, it.ID, entity.MovementTypeIn, 3, base.Add(1*time.Hour))
	appendTx(t, s, it.ID, entity.MovementTypeOut, 1, base.Add(3*time.Hour))

	page, err := s.Transactions().List(ctx, repository.TransactionQuery{
		Sort: repository.SortByQuantity, Order: repository.OrderDesc, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 3)
	// Igual cantidad: desempata por fecha en la misma dirección.
	assert.Equal(t, base.Add(2*time.Hour), page.Records[0].Transaction.Date)
	assert.Equal(t, base.Add(1*time.Hour), page.Records[1].Transaction.Date)
	assert.EqualValues(t, 1, page.Records[2].Transaction.Quantity)

	byType, err := s.Transactions().List(ctx, repository.TransactionQuery{
		Sort: repository.SortByType, Order: repository.OrderAsc, Page: 1, PageSize: 10,
		Filter: repository.TransactionFilter{Types: []entity.MovementType{entity.MovementTypeOut}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, byType.Total)

	from := base.Add(90 * time.Minute)
	ranged, err := s.Transactions().List(ctx, repository.TransactionQuery{
		Sort: repository.SortByDate, Order: repository.OrderAsc, Page: 1, PageSize: 10,
		Filter: repository.TransactionFilter{From: &from},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, ranged.Total)
}

func TestTransactionRepo_PaginationCompleteness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := newItem(t, s, "Unknown Pleasures", "Joy Division")
	b := newItem(t, s, "Power, Corruption & Lies", "New Order")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 23; i++ {
		id := a.ID
		if i%3 == 0 {
			id = b.ID
		}
		// Fechas repetidas para forzar el desempate por id.
		appendTx(t, s, id, entity.MovementTypeIn, int64(i%4+1), base.Add(time.Duration(i/5)*time.Minute))
	}

	full, err := s.Transactions().List(ctx, repository.TransactionQuery{
		Sort: repository.SortByQuantity, Order: repository.OrderAsc, Page: 1, PageSize: 1000,
	})
	require.NoError(t, err)
	require.Len(t, full.Records, 23)

	for _, size := range []int{1, 4, 7, 10} {
		seen := map[string]bool{}
		var ordered []string
		for page := 1; ; page++ {
			p, err := s.Transactions().List(ctx, repository.TransactionQuery{
				Sort: repository.SortByQuantity, Order: repository.OrderAsc, Page: page, PageSize: size,
				Snapshot: full.Snapshot,
			})
			require.NoError(t, err)
			if len(p.Records) == 0 {
				break
			}
			// Un append entre páginas no altera la foto.
			appendTx(t, s, a.ID, entity.MovementTypeIn, 1, base)
			for _, r := range p.Records {
				assert.False(t, seen[r.Transaction.ID], "duplicado en pageSize=%d", size)
				seen[r.Transaction.ID] = true
				ordered = append(ordered, r.Transaction.ID)
			}
		}
		require.Len(t, ordered, 23, "pageSize=%d", size)
		for i, r := range full.Records {
			assert.Equal(t, r.Transaction.ID, ordered[i])
		}
	}
}

func TestTransactionRepo_UnknownItemJoin(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	it := newItem(t, s, "Marquee Moon", "Television")
	appendTx(t, s, it.ID, entity.MovementTypeIn, 1, time.Now())

	// Simula un ítem que ya no se resuelve (p. ej. datos importados sin catálogo).
	s.mu.Lock()
	delete(s.items, it.ID)
	s.mu.Unlock()

	page, err := s.Transactions().List(ctx, repository.TransactionQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Nil(t, page.Records[0].Item)

	labeled, err := s.Transactions().List(ctx, repository.TransactionQuery{
		Page: 1, PageSize: 10,
		Filter: repository.TransactionFilter{Labels: []string{"Marquee Moon - Television"}},
	})
	require.NoError(t, err)
	assert.Zero(t, labeled.Total)
}

func TestIdempotencyStore(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.Reserve(ctx, "k")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = store.Reserve(ctx, "k")
	assert.True(t, ok, "la clave expirada puede reutilizarse")

	require.NoError(t, store.Release(ctx, "k"))
	ok, _ = store.Reserve(ctx, "k")
	assert.True(t, ok)
}

func TestIdempotencyStore_SweepsExpiredKeys(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		ok, err := store.Reserve(ctx, k)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Len(t, store.keys, 3)

	now = now.Add(2 * time.Minute)
	ok, err := store.Reserve(ctx, "d")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, store.keys, 1)
	assert.Contains(t, store.keys, "d")
}

func TestStore_ItemLocksAreDroppedAfterRelease(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	it := newItem(t, s, "Closer", "Joy Division")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := it.ID
			if i%2 == 0 {
				id = fmt.Sprintf("missing-%d", i)
			}
			_ = s.Run(ctx, func(itemRepo repository.ItemRepository, _ repository.TransactionRepository) error {
				found, err := itemRepo.GetForUpdate(ctx, id)
				if err != nil {
					return err
				}
				if found == nil {
					return domain.ErrNotFound
				}
				return nil
			})
		}(i)
	}
	wg.Wait()
	assert.Zero(t, s.heldLocks())

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, func(itemRepo repository.ItemRepository, _ repository.TransactionRepository) error {
			_, err := itemRepo.GetForUpdate(ctx, it.ID)
			close(held)
			<-done
			return err
		})
	}()
	<-held
	assert.Equal(t, 1, s.heldLocks())
	close(done)
	assert.Eventually(t, func() bool { return s.heldLocks() == 0 }, time.Second, time.Millisecond)
}

func TestTransactionRepo_ListInvalidSnapshot(t *testing.T) {
	s := NewStore()
	for _, snap := range []string{"abc", "-1", "1:2:"} {
		_, err := s.Transactions().List(context.Background(), repository.TransactionQuery{Page: 1, PageSize: 10, Snapshot: snap})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, snap)
		assert.Contains(t, verr.Fields, "snapshot")
	}
}
