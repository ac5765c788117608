package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/album-ledger-api/internal/application/dto"
	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/application/usecase"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/pkg/validator"
)

// ItemHandler maneja las peticiones HTTP del catálogo de álbumes.
type ItemHandler struct {
	uc       *usecase.ItemUseCase
	resolver *inventory.StockResolver
}

// NewItemHandler construye el handler.
func NewItemHandler(uc *usecase.ItemUseCase, resolver *inventory.StockResolver) *ItemHandler {
	return &ItemHandler{uc: uc, resolver: resolver}
}

// Create godoc
// @Summary      Crear ítem
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateItemRequest  true  "title, artist, releaseYear"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if fields := validator.Struct(&in); fields != nil {
		return respondError(c, &domain.ValidationError{Fields: fields})
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener ítem por ID
// @Tags         items
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar ítems
// @Tags         items
// @Produce      json
// @Param        title   query  string  false  "Subcadena del título"
// @Param        artist  query  string  false  "Subcadena del artista"
// @Param        q       query  string  false  "Subcadena de título o artista"
// @Success      200     {object}  dto.ItemListResponse
// @Router       /api/items [get]
func (h *ItemHandler) List(c *fiber.Ctx) error {
	var q dto.ItemListQuery
	if err := c.QueryParser(&q); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.List(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar metadatos del ítem
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del ítem"
// @Param        body  body  dto.UpdateItemRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/items/{id} [put]
func (h *ItemHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if fields := validator.Struct(&in); fields != nil {
		return respondError(c, &domain.ValidationError{Fields: fields})
	}
	out, err := h.uc.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar ítem sin movimientos
// @Tags         items
// @Security     Bearer
// @Param        id   path  string  true  "ID del ítem"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [delete]
func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Stock godoc
// @Summary      Comparar stock cacheado con el ledger
// @Tags         items
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.StockReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/stock [get]
func (h *ItemHandler) Stock(c *fiber.Ctx) error {
	rec, err := h.resolver.VerifyStock(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromReconciliation(rec.ItemID, rec.CachedStock, rec.LedgerStock, rec.Repaired))
}

// Reconcile godoc
// @Summary      Recalcular el stock desde el ledger
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.StockReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/reconcile [post]
func (h *ItemHandler) Reconcile(c *fiber.Ctx) error {
	rec, err := h.resolver.RecomputeStock(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromReconciliation(rec.ItemID, rec.CachedStock, rec.LedgerStock, rec.Repaired))
}
