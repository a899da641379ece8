package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveRequest body para POST /api/movements/receive (recepción de mercancía).
type ReceiveRequest struct {
	ItemID       string          `json:"item_id"`
	WarehouseID  string          `json:"warehouse_id"`
	BatchNumber  string          `json:"batch_number"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	ReceivedDate *time.Time      `json:"received_date,omitempty"` // default: ahora
	Reference    string          `json:"reference,omitempty"`
}

// IssueRequest body para POST /api/movements/issue (salida por consumo).
type IssueRequest struct {
	ItemID      string          `json:"item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Method      string          `json:"method,omitempty"` // FIFO | FEFO
	ReferenceID string          `json:"reference_id,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}
