package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/dto"
	"github.com/jhoicas/Reservas-api/internal/application/transfer"
)

// TransferHandler maneja las peticiones HTTP del motor de traslados (protegido).
type TransferHandler struct {
	uc *transfer.TransferUseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *transfer.TransferUseCase) *TransferHandler {
	return &TransferHandler{uc: uc}
}

// Transfer godoc
// @Summary      Trasladar reservas entre lotes
// @Description  Re-apunta reservas del lote origen al destino. Cada re-apuntado es
//
//	su propio paso atómico; los fallos de sincronización de snapshots se
//	reportan en errors sin deshacer los movimientos confirmados.
//
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "source_batch_id, target_batch_id, transfer_quantity, source_remaining_quantity, selection, mode"
// @Success      200   {object}  transfer.TransferResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.TransferBatch(c.Context(), transfer.TransferInput{
		SourceBatchID:           in.SourceBatchID,
		TargetBatchID:           in.TargetBatchID,
		TransferQuantity:        in.TransferQuantity,
		SourceRemainingQuantity: in.SourceRemainingQuantity,
		Selection:               in.Selection,
		Mode:                    in.Mode,
		UserID:                  GetUserID(c),
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(result)
}
