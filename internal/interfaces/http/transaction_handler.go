package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	appanalytics "github.com/jhoicas/album-ledger-api/internal/application/analytics"
	"github.com/jhoicas/album-ledger-api/internal/application/dto"
	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/domain"
	"github.com/jhoicas/album-ledger-api/pkg/validator"
)

// HeaderIdempotencyKey header opcional para no aplicar dos veces el mismo movimiento.
const HeaderIdempotencyKey = "Idempotency-Key"

// TransactionHandler maneja los movimientos de stock y el listado del ledger.
type TransactionHandler struct {
	resolver *inventory.StockResolver
	ledger   *appanalytics.LedgerQueryUseCase
}

// NewTransactionHandler construye el handler.
func NewTransactionHandler(resolver *inventory.StockResolver, ledger *appanalytics.LedgerQueryUseCase) *TransactionHandler {
	return &TransactionHandler{resolver: resolver, ledger: ledger}
}

// Create godoc
// @Summary      Registrar movimiento de stock
// @Tags         transactions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.CreateMovementRequest  true  "itemId, type (in|out), quantity, notes"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/transactions [post]
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	fields := validator.Struct(&in)
	if in.ResolvedItemID() == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["itemId"] = "es requerido"
	}
	if fields != nil {
		return respondError(c, &domain.ValidationError{Fields: fields})
	}

	res, err := h.resolver.ApplyMovement(c.UserContext(), inventory.MovementInput{
		ItemID:         in.ResolvedItemID(),
		Type:           in.Type,
		Quantity:       in.Quantity,
		Notes:          in.Notes,
		UserID:         GetUserID(c),
		IdempotencyKey: strings.TrimSpace(c.Get(HeaderIdempotencyKey)),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementResponse{
		Transaction: dto.FromTransactionWithItem(res.Transaction, res.Item),
		NewStock:    res.NewStock,
		Item:        dto.FromItem(res.Item),
	})
}

// List godoc
// @Summary      Listar el ledger
// @Tags         transactions
// @Produce      json
// @Param        page      query  int     false  "Página (1-based)"  default(1)
// @Param        pageSize  query  int     false  "Tamaño de página (máx 100)"  default(10)
// @Param        limit     query  int     false  "Alias de pageSize"
// @Param        sort      query  string  false  "date | quantity | type"
// @Param        order     query  string  false  "asc | desc"
// @Param        type      query  string  false  "in | out (repetible)"
// @Param        item      query  string  false  "Etiqueta 'título - artista' (repetible)"
// @Param        itemId    query  string  false  "ID del ítem"
// @Param        from      query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to        query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        snapshot  query  string  false  "Marca opaca devuelta por la primera página"
// @Success      200  {object}  dto.TransactionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	q, err := parseTransactionListQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	var out *dto.TransactionListResponse
	if q.ItemID != "" {
		out, err = h.ledger.ListByItem(c.UserContext(), q.ItemID, q)
	} else {
		out, err = h.ledger.ListAll(c.UserContext(), q)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ListByItem godoc
// @Summary      Listar el ledger de un ítem
// @Tags         transactions
// @Produce      json
// @Param        itemId  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.TransactionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transactions/item/{itemId} [get]
func (h *TransactionHandler) ListByItem(c *fiber.Ctx) error {
	q, err := parseTransactionListQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.ledger.ListByItem(c.UserContext(), c.Params("itemId"), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// parseTransactionListQuery lee los parámetros sueltos; type e item admiten repetición.
// limit se acepta como alias de pageSize (cliente web de álbumes).
func parseTransactionListQuery(c *fiber.Ctx) (dto.TransactionListQuery, error) {
	verr := &domain.ValidationError{}
	q := dto.TransactionListQuery{
		ItemID:   strings.TrimSpace(c.Query("itemId")),
		Sort:     c.Query("sort"),
		Order:    c.Query("order"),
		From:     strings.TrimSpace(c.Query("from")),
		To:       strings.TrimSpace(c.Query("to")),
		Snapshot: strings.TrimSpace(c.Query("snapshot")),
	}
	q.Page = positiveInt(c.Query("page"), "page", verr)
	if raw := c.Query("pageSize"); raw != "" {
		q.PageSize = positiveInt(raw, "pageSize", verr)
	} else {
		q.PageSize = positiveInt(c.Query("limit"), "limit", verr)
	}

	args := c.Context().QueryArgs()
	for _, v := range args.PeekMulti("type") {
		q.Types = append(q.Types, string(v))
	}
	for _, v := range args.PeekMulti("item") {
		q.Items = append(q.Items, string(v))
	}
	return q, verr.OrNil()
}

func positiveInt(raw, field string, verr *domain.ValidationError) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		verr.Add(field, "debe ser un entero mayor o igual a 1")
		return 0
	}
	return n
}
