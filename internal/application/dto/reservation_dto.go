package dto

import "github.com/shopspring/decimal"

// ReserveRequest body para POST /api/reservations.
// Method: FIFO | FEFO | MANUAL. BatchID es obligatorio solo con MANUAL.
type ReserveRequest struct {
	ItemID      string          `json:"item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	ReferenceID string          `json:"reference_id"`
	Method      string          `json:"method,omitempty"`
	BatchID     string          `json:"batch_id,omitempty"`
}

// UpdateReservationRequest body para PUT /api/reservations/:id.
// NewQuantity <= 0 equivale a cancelar; NewBatchID re-apunta la reserva a otro lote.
type UpdateReservationRequest struct {
	ItemID      string          `json:"item_id"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	NewBatchID  string          `json:"new_batch_id,omitempty"`
}
