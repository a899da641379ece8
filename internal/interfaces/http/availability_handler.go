package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/availability"
	"github.com/jhoicas/Reservas-api/internal/application/dto"
)

// AvailabilityHandler consulta de disponibilidad multi-artículo (protegido).
type AvailabilityHandler struct {
	uc *availability.AvailabilityUseCase
}

// NewAvailabilityHandler construye el handler.
func NewAvailabilityHandler(uc *availability.AvailabilityUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{uc: uc}
}

// ForItems godoc
// @Summary      Disponibilidad efectiva de varios artículos
// @Description  físico, reservado y disponible por artículo; consultas en grupos concurrentes.
// @Tags         availability
// @Security     Bearer
// @Produce      json
// @Param        item_ids  query  string  true  "IDs separados por coma"
// @Success      200  {object}  map[string]availability.ItemAvailability
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/availability [get]
func (h *AvailabilityHandler) ForItems(c *fiber.Ctx) error {
	raw := c.Query("item_ids")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_ids requerido", Field: "item_ids"})
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	result, err := h.uc.ForItems(c.Context(), ids)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(result)
}
