package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/domain/allocation"
)

// ReservationHandler maneja las peticiones HTTP del motor de reservas (protegido).
type ReservationHandler struct {
	uc *reservation.ReservationUseCase
}

// NewReservationHandler construye el handler.
func NewReservationHandler(uc *reservation.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

// Reserve godoc
// @Summary      Reservar stock para una orden de trabajo
// @Description  Reserva contra lotes por FIFO/FEFO/MANUAL. La reserva parcial es un
//
//	resultado de primera clase: success=true con is_partial=true.
//
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "item_id, quantity, reference_id, method, batch_id (solo MANUAL)"
// @Success      200   {object}  reservation.ReserveResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	method := in.Method
	if method == "" {
		method = allocation.MethodFEFO
	}
	result, err := h.uc.Reserve(c.Context(), reservation.ReserveInput{
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		ReferenceID: in.ReferenceID,
		Method:      method,
		BatchID:     in.BatchID,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(result)
}

// Cancel godoc
// @Summary      Cancelar la reserva de una referencia sobre un artículo
// @Description  Cancelación completa por compensación (booking_cancel). Idempotente.
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        itemId  path  string  true  "ID del artículo"
// @Param        refId   path  string  true  "ID de la referencia consumidora"
// @Success      200  {object}  reservation.CancelResult
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{itemId}/{refId} [delete]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	result, err := h.uc.Cancel(c.Context(), c.Params("itemId"), c.Params("refId"), GetUserID(c))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(result)
}

// ByReference godoc
// @Summary      Reservas vivas de una orden
// @Description  Reservas netas (reserva − compensaciones) de una referencia, desglosadas por artículo y lote.
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        refId  path  string  true  "ID de la referencia (orden)"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      500    {object}  dto.ErrorResponse
// @Router       /api/reservations/reference/{refId} [get]
func (h *ReservationHandler) ByReference(c *fiber.Ctx) error {
	bookings, err := h.uc.ActiveByReference(c.Context(), c.Params("refId"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"reference_id": c.Params("refId"), "total": len(bookings), "bookings": bookings})
}

// Update godoc
// @Summary      Modificar una reserva existente
// @Description  Cambia cantidad y/o lote. new_quantity <= 0 cancela la reserva.
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID de la reserva (entrada del libro)"
// @Param        body  body  dto.UpdateReservationRequest  true  "item_id, new_quantity, new_batch_id"
// @Success      200   {object}  reservation.UpdateResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id} [put]
func (h *ReservationHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.UpdateReservation(c.Context(), reservation.UpdateInput{
		ReservationID: c.Params("id"),
		ItemID:        in.ItemID,
		NewQuantity:   in.NewQuantity,
		NewBatchID:    in.NewBatchID,
		UserID:        GetUserID(c),
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(result)
}
