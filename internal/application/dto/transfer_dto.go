package dto

import "github.com/shopspring/decimal"

// TransferRequest body para POST /api/transfers.
// Selection: "free" o un reference_id concreto. Mode: partial | full | merge.
// El motor solo re-apunta reservas; mover la cantidad física es trabajo del caller.
type TransferRequest struct {
	SourceBatchID           string          `json:"source_batch_id"`
	TargetBatchID           string          `json:"target_batch_id"`
	TransferQuantity        decimal.Decimal `json:"transfer_quantity"`
	SourceRemainingQuantity decimal.Decimal `json:"source_remaining_quantity"`
	Selection               string          `json:"selection"`
	Mode                    string          `json:"mode"`
}
