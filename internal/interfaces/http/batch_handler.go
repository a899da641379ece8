package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// BatchHandler consultas de lotes (protegido).
type BatchHandler struct {
	batchRepo repository.BatchRepository
}

// NewBatchHandler construye el handler.
func NewBatchHandler(batchRepo repository.BatchRepository) *BatchHandler {
	return &BatchHandler{batchRepo: batchRepo}
}

// Expiring godoc
// @Summary      Lotes próximos a vencer
// @Description  Lotes con stock cuyo vencimiento cae dentro de los próximos N días.
//
//	Lotes sin fecha de vencimiento quedan excluidos.
//
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "Horizonte en días (default 30)"
// @Success      200   {object}  map[string]interface{}
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/batches/expiring [get]
func (h *BatchHandler) Expiring(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "days debe ser >= 0", Field: "days"})
	}
	before := time.Now().UTC().AddDate(0, 0, days)
	batches, err := h.batchRepo.ListExpiring(before)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":   len(batches),
		"batches": batches,
	})
}
