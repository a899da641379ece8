package http

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/application/stocktaking"
)

// StocktakingHandler maneja el cierre y los informes de conteos físicos (protegido).
type StocktakingHandler struct {
	uc *stocktaking.StocktakingUseCase
}

// NewStocktakingHandler construye el handler.
func NewStocktakingHandler(uc *stocktaking.StocktakingUseCase) *StocktakingHandler {
	return &StocktakingHandler{uc: uc}
}

// Complete godoc
// @Summary      Completar un conteo físico
// @Description  Cierra el conteo: ajusta cantidades si adjust_inventory=true y cancela
//
//	las reservas que excedan el stock contado (las más antiguas primero).
//
// @Tags         stocktakings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID del conteo"
// @Param        body  body  dto.CompleteStocktakingRequest  true  "adjust_inventory"
// @Success      200   {object}  stocktaking.CompleteResult
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stocktakings/{id}/complete [post]
func (h *StocktakingHandler) Complete(c *fiber.Ctx) error {
	var in dto.CompleteStocktakingRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.Complete(c.Context(), c.Params("id"), in.AdjustInventory, GetUserID(c))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(result)
}

// Reopen godoc
// @Summary      Reabrir un conteo completado para corrección
// @Tags         stocktakings
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del conteo"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocktakings/{id}/reopen [post]
func (h *StocktakingHandler) Reopen(c *fiber.Ctx) error {
	if err := h.uc.ReopenForCorrection(c.Context(), c.Params("id"), GetUserID(c)); err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "conteo reabierto para corrección"})
}

// CompleteCorrection godoc
// @Summary      Completar la corrección de un conteo reabierto
// @Description  Igual que complete, pero conserva la fecha de cierre original.
// @Tags         stocktakings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID del conteo"
// @Param        body  body  dto.CompleteStocktakingRequest  true  "adjust_inventory"
// @Success      200   {object}  stocktaking.CompleteResult
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stocktakings/{id}/complete-correction [post]
func (h *StocktakingHandler) CompleteCorrection(c *fiber.Ctx) error {
	var in dto.CompleteStocktakingRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.CompleteCorrected(c.Context(), c.Params("id"), in.AdjustInventory, GetUserID(c))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(result)
}

// Report godoc
// @Summary      Informe de resultados de un conteo
// @Description  Totales, discrepancias por línea y reservas canceladas.
// @Tags         stocktakings
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del conteo"
// @Success      200  {object}  stocktaking.Report
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocktakings/{id}/report [get]
func (h *StocktakingHandler) Report(c *fiber.Ctx) error {
	report, err := h.uc.BuildReport(c.Context(), c.Params("id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(report)
}

// ReportCSV godoc
// @Summary      Informe de conteo en CSV
// @Tags         stocktakings
// @Security     Bearer
// @Produce      text/csv
// @Param        id  path  string  true  "ID del conteo"
// @Success      200  {string}  string
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocktakings/{id}/report.csv [get]
func (h *StocktakingHandler) ReportCSV(c *fiber.Ctx) error {
	id := c.Params("id")
	report, err := h.uc.BuildReport(c.Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	var buf bytes.Buffer
	if err := stocktaking.WriteCSV(&buf, report); err != nil {
		return domainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="conteo-%s.csv"`, id))
	return c.Send(buf.Bytes())
}
