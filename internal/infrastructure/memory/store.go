// Package memory implementa los puertos de persistencia en memoria (desarrollo y tests).
//
// Semántica equivalente al adaptador PostgreSQL: GetForUpdate toma un mutex por ítem que se
// mantiene hasta el fin de la transacción, las escrituras de una transacción se acumulan y se
// publican juntas bajo un único lock de escritura, de modo que ningún lector observa un
// movimiento aplicado a medias.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store contiene las dos colecciones lógicas: ítems y transacciones.
type Store struct {
	mu     sync.RWMutex
	items  map[string]*entity.Item
	txs    []*entity.Transaction
	byID   map[string]*entity.Transaction
	byItem map[string][]*entity.Transaction
	seq    int64

	locksMu sync.Mutex
	locks   map[string]*itemLock
}

// itemLock mutex de un ítem; refs cuenta las tx que lo tienen o lo esperan.
// La entrada se borra cuando refs llega a 0, así el mapa solo contiene ítems en uso.
type itemLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		items:  make(map[string]*entity.Item),
		byID:   make(map[string]*entity.Transaction),
		byItem: make(map[string][]*entity.Transaction),
		locks:  make(map[string]*itemLock),
	}
}

// Items devuelve el repositorio de ítems fuera de transacción.
func (s *Store) Items() *ItemRepo {
	return &ItemRepo{s: s}
}

// Transactions devuelve el repositorio del ledger fuera de transacción.
func (s *Store) Transactions() *TransactionRepo {
	return &TransactionRepo{s: s}
}

// Run ejecuta fn con repositorios atados a una transacción; publica las escrituras solo si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	txRepo repository.TransactionRepository,
) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newTxScope(s)
	defer tx.release()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transacción abortada: %v", r)
		}
	}()

	if err := fn(&ItemRepo{s: s, tx: tx}, &TransactionRepo{s: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) lockItem(id string) {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &itemLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
}

func (s *Store) unlockItem(id string) {
	s.locksMu.Lock()
	l := s.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.locksMu.Unlock()

	l.mu.Unlock()
}

// heldLocks cantidad de ítems con mutex tomado o en espera.
func (s *Store) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// stockWrite escritura pendiente del stock cacheado.
type stockWrite struct {
	stock int64
	at    time.Time
}

// txScope acumula las escrituras de una transacción y los mutex de ítem tomados.
type txScope struct {
	s        *Store
	held     map[string]bool
	creates  map[string]*entity.Item
	updates  map[string]*entity.Item
	stocks   map[string]stockWrite
	deletes  map[string]bool
	appends  []*entity.Transaction
	finished bool
}

func newTxScope(s *Store) *txScope {
	return &txScope{
		s:       s,
		held:    make(map[string]bool),
		creates: make(map[string]*entity.Item),
		updates: make(map[string]*entity.Item),
		stocks:  make(map[string]stockWrite),
		deletes: make(map[string]bool),
	}
}

func (t *txScope) lock(id string) {
	if t.held[id] {
		return
	}
	t.s.lockItem(id)
	t.held[id] = true
}

func (t *txScope) release() {
	if t.finished {
		return
	}
	t.finished = true
	for id := range t.held {
		t.s.unlockItem(id)
	}
	t.held = nil
}

// item resuelve un ítem aplicando las escrituras pendientes de la tx. Requiere s.mu tomado (lectura).
func (t *txScope) item(id string) *entity.Item {
	if t.deletes[id] {
		return nil
	}
	var base *entity.Item
	if c, ok := t.creates[id]; ok {
		base = c
	} else if stored, ok := t.s.items[id]; ok {
		base = stored
	} else {
		return nil
	}
	out := cloneItem(base)
	if u, ok := t.updates[id]; ok {
		out.Title, out.Artist, out.ReleaseYear = u.Title, u.Artist, u.ReleaseYear
	}
	if w, ok := t.stocks[id]; ok {
		out.Stock, out.LastUpdated = w.stock, w.at
	}
	return out
}

func (t *txScope) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, it := range t.creates {
		if _, exists := s.items[id]; exists {
			return domain.ErrDuplicate
		}
		if dup := s.findByTitleArtistLocked(it.Title, it.Artist); dup != nil {
			return domain.ErrDuplicate
		}
	}
	for _, tx := range t.appends {
		if t.deletes[tx.ItemID] {
			return domain.ErrConflict
		}
		if _, ok := s.items[tx.ItemID]; !ok {
			if _, ok := t.creates[tx.ItemID]; !ok {
				return domain.ErrNotFound
			}
		}
	}

	for id := range t.deletes {
		if len(s.byItem[id]) > 0 {
			return domain.ErrConflict
		}
	}

	for id, it := range t.creates {
		s.items[id] = cloneItem(it)
	}
	for id, u := range t.updates {
		if stored, ok := s.items[id]; ok {
			stored.Title, stored.Artist, stored.ReleaseYear = u.Title, u.Artist, u.ReleaseYear
		}
	}
	for id, w := range t.stocks {
		if stored, ok := s.items[id]; ok {
			stored.Stock, stored.LastUpdated = w.stock, w.at
		}
	}
	for _, tx := range t.appends {
		s.appendLocked(tx)
	}
	for id := range t.deletes {
		delete(s.items, id)
	}
	return nil
}

// appendLocked asigna Seq y publica la transacción. Requiere s.mu tomado (escritura).
func (s *Store) appendLocked(tx *entity.Transaction) {
	s.seq++
	tx.Seq = s.seq
	stored := cloneTransaction(tx)
	s.txs = append(s.txs, stored)
	s.byID[stored.ID] = stored
	s.byItem[stored.ItemID] = append(s.byItem[stored.ItemID], stored)
}

// findByTitleArtistLocked busca por título y artista sin distinguir mayúsculas. Requiere s.mu tomado.
func (s *Store) findByTitleArtistLocked(title, artist string) *entity.Item {
	ft, fa := fold(title), fold(artist)
	for _, it := range s.items {
		if fold(it.Title) == ft && fold(it.Artist) == fa {
			return it
		}
	}
	return nil
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func cloneItem(i *entity.Item) *entity.Item {
	c := *i
	if i.ReleaseYear != nil {
		y := *i.ReleaseYear
		c.ReleaseYear = &y
	}
	return &c
}

func cloneTransaction(t *entity.Transaction) *entity.Transaction {
	c := *t
	return &c
}
