package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/application/movement"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// MovementHandler maneja recepciones, salidas e historial de movimientos (protegido).
type MovementHandler struct {
	uc         *movement.MovementUseCase
	ledgerRepo repository.LedgerRepository
}

// NewMovementHandler construye el handler.
func NewMovementHandler(uc *movement.MovementUseCase, ledgerRepo repository.LedgerRepository) *MovementHandler {
	return &MovementHandler{uc: uc, ledgerRepo: ledgerRepo}
}

// Receive godoc
// @Summary      Registrar recepción de mercancía
// @Description  Crea un lote nuevo, escribe la entrada RECEIVE y actualiza el agregado del artículo.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveRequest  true  "item_id, warehouse_id, batch_number, quantity, unit_price, expiry_date"
// @Success      201   {object}  entity.Batch
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/movements/receive [post]
func (h *MovementHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	receivedDate := time.Now().UTC()
	if in.ReceivedDate != nil {
		receivedDate = *in.ReceivedDate
	}
	batch, err := h.uc.Receive(c.Context(), movement.ReceiveInput{
		ItemID:       in.ItemID,
		WarehouseID:  in.WarehouseID,
		BatchNumber:  in.BatchNumber,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		ExpiryDate:   in.ExpiryDate,
		ReceivedDate: receivedDate,
		Reference:    in.Reference,
		UserID:       GetUserID(c),
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(batch)
}

// Issue godoc
// @Summary      Registrar salida por consumo
// @Description  Decrementa lotes en orden FIFO/FEFO y escribe entradas ISSUE.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueRequest  true  "item_id, quantity, method, reference_id"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements/issue [post]
func (h *MovementHandler) Issue(c *fiber.Ctx) error {
	var in dto.IssueRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	err := h.uc.Issue(c.Context(), movement.IssueInput{
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		Method:      in.Method,
		ReferenceID: in.ReferenceID,
		Reference:   in.Reference,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "salida registrada"})
}

// History godoc
// @Summary      Historial de movimientos de un artículo
// @Description  Libro mayor completo del artículo en orden cronológico: recepciones, salidas, reservas, compensaciones, traslados y ajustes.
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        itemId  path  string  true  "ID del artículo"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /api/movements/{itemId} [get]
func (h *MovementHandler) History(c *fiber.Ctx) error {
	itemID := c.Params("itemId")
	if itemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "itemId requerido", Field: "itemId"})
	}
	entries, err := h.ledgerRepo.ListByItem(itemID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error consultando movimientos"})
	}
	return c.JSON(fiber.Map{"item_id": itemID, "total": len(entries), "movements": entries})
}
