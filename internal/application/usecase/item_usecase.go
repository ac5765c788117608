package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/album-ledger-api/internal/application/dto"
	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/internal/domain/entity"
	"github.com/jhoicas/album-ledger-api/internal/domain/repository"
)

// ItemUseCase casos de uso del catálogo de álbumes. El stock se maneja vía movimientos.
type ItemUseCase struct {
	repo     repository.ItemRepository
	txRunner inventory.TxRunner
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository, txRunner inventory.TxRunner) *ItemUseCase {
	return &ItemUseCase{repo: repo, txRunner: txRunner}
}

// Create crea un nuevo ítem con stock 0. El par (título, artista) es único sin distinguir mayúsculas.
func (uc *ItemUseCase) Create(ctx context.Context, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	item, err := entity.NewItem(in.Title, in.Artist, in.ReleaseYear, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, err
	}
	existing, err := uc.repo.FindByTitleArtist(ctx, item.Title, item.Artist)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	out := dto.FromItem(item)
	return &out, nil
}

// GetByID obtiene un ítem por ID; domain.ErrNotFound si no existe.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	out := dto.FromItem(item)
	return &out, nil
}

// List lista el catálogo filtrando por subcadena de título y/o artista.
func (uc *ItemUseCase) List(ctx context.Context, q dto.ItemListQuery) (*dto.ItemListResponse, error) {
	list, err := uc.repo.List(ctx, repository.ItemFilter{
		Title:  strings.TrimSpace(q.Title),
		Artist: strings.TrimSpace(q.Artist),
		Query:  strings.TrimSpace(q.Q),
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, dto.FromItem(it))
	}
	return &dto.ItemListResponse{Items: items, Total: len(items)}, nil
}

// Update actualiza metadatos. No permite modificar Stock.
func (uc *ItemUseCase) Update(ctx context.Context, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Artist != nil {
		item.Artist = strings.TrimSpace(*in.Artist)
	}
	if in.ReleaseYear != nil {
		item.ReleaseYear = in.ReleaseYear
	}
	if err := entity.ValidateItemFields(item.Title, item.Artist, item.ReleaseYear); err != nil {
		return nil, err
	}
	existing, err := uc.repo.FindByTitleArtist(ctx, item.Title, item.Artist)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != item.ID {
		return nil, domain.ErrDuplicate
	}
	if err := uc.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	out := dto.FromItem(item)
	return &out, nil
}

// Delete elimina un ítem sin movimientos. Con transacciones asociadas devuelve domain.ErrConflict.
func (uc *ItemUseCase) Delete(ctx context.Context, id string) error {
	return uc.txRunner.Run(ctx, func(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository) error {
		item, err := itemRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		n, err := txRepo.CountByItem(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrConflict
		}
		return itemRepo.Delete(ctx, id)
	})
}
