package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, title, artist, release_year, stock, last_updated, created_at`

// ItemRepo implementación del puerto ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de persistencia para ítems. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	if err := row.Scan(&it.ID, &it.Title, &it.Artist, &it.ReleaseYear, &it.Stock, &it.LastUpdated, &it.CreatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// Create persiste un nuevo ítem. El índice único sobre lower(title), lower(artist) detecta duplicados.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	query := `INSERT INTO items (` + itemColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.Title, item.Artist, item.ReleaseYear, item.Stock, item.LastUpdated, item.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	return r.get(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

// GetForUpdate lee el ítem bloqueando la fila hasta el fin de la transacción.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	return r.get(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
}

func (r *ItemRepo) get(ctx context.Context, query, id string) (*entity.Item, error) {
	if !validID(id) {
		return nil, nil
	}
	it, err := scanItem(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// FindByTitleArtist busca sin distinguir mayúsculas.
func (r *ItemRepo) FindByTitleArtist(ctx context.Context, title, artist string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE lower(title) = lower($1) AND lower(artist) = lower($2)`
	it, err := scanItem(r.q.QueryRow(ctx, query, title, artist))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find item by title/artist: %w", err)
	}
	return it, nil
}

// Update actualiza metadatos. No modifica Stock (se maneja vía movimientos).
func (r *ItemRepo) Update(ctx context.Context, item *entity.Item) error {
	if !validID(item.ID) {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`UPDATE items SET title = $2, artist = $3, release_year = $4 WHERE id = $1`,
		item.ID, item.Title, item.Artist, item.ReleaseYear,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// UpdateStock escribe el stock cacheado (usado por el motor de inventario).
func (r *ItemRepo) UpdateStock(ctx context.Context, id string, stock int64, at time.Time) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	cmd, err := r.q.Exec(ctx,
		`UPDATE items SET stock = $2, last_updated = $3 WHERE id = $1`,
		id, stock, at,
	)
	if err != nil {
		if isCheckViolation(err) {
			return false, domain.ErrInsufficientStock
		}
		return false, fmt.Errorf("update item stock: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// List lista el catálogo ordenado por título, artista e id.
func (r *ItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]*entity.Item, error) {
	var (
		conds []string
		args  []any
	)
	like := func(s string) string {
		args = append(args, "%"+escapeLike(s)+"%")
		return fmt.Sprintf("$%d", len(args))
	}
	if t := strings.TrimSpace(filter.Title); t != "" {
		conds = append(conds, `title ILIKE `+like(t)+` ESCAPE '\'`)
	}
	if a := strings.TrimSpace(filter.Artist); a != "" {
		conds = append(conds, `artist ILIKE `+like(a)+` ESCAPE '\'`)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := like(q)
		conds = append(conds, `(title ILIKE `+p+` ESCAPE '\' OR artist ILIKE `+p+` ESCAPE '\')`)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY lower(title), lower(artist), id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	list := []*entity.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// Delete elimina un ítem. La FK RESTRICT del ledger lo impide si tiene transacciones.
func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	_, err := r.q.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Totals agrega el catálogo.
func (r *ItemRepo) Totals(ctx context.Context) (repository.CatalogTotals, error) {
	var t repository.CatalogTotals
	err := r.q.QueryRow(ctx, `
		SELECT count(*), LEAST(COALESCE(SUM(stock), 0), `+maxBigint+`)::bigint, count(*) FILTER (WHERE stock = 0)
		FROM items`,
	).Scan(&t.ItemCount, &t.TotalStock, &t.OutOfStockItems)
	if err != nil {
		return t, fmt.Errorf("catalog totals: %w", err)
	}
	return t, nil
}
