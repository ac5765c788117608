package http

import (
	"github.com/gofiber/fiber/v2"
	appanalytics "github.com/jhoicas/album-ledger-api/internal/application/analytics"
)

// SummaryHandler expone los agregados del inventario.
type SummaryHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewSummaryHandler construye el handler.
func NewSummaryHandler(uc *appanalytics.DashboardUseCase) *SummaryHandler {
	return &SummaryHandler{uc: uc}
}

// GetSummary devuelve ítems distintos, stock total y cantidad de transacciones.
// GET /api/summary
func (h *SummaryHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.uc.GetSummary(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
