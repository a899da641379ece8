package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch representa un lote físicamente distinto de un artículo: su propia fecha de
// vencimiento, precio y fecha de recepción. Quantity es existencia física restante;
// solo la decrementa una salida (ISSUE), un ajuste o un traslado, nunca una reserva.
// Un lote en cero no se borra: deja de ser elegible para asignación.
type Batch struct {
	ID           string
	ItemID       string
	WarehouseID  string
	BatchNumber  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	ExpiryDate   *time.Time // nil = sin vencimiento; excluido de FEFO y de consultas de vencimiento
	ReceivedDate time.Time
	CreatedAt    time.Time
}

// HasExpiry indica si el lote tiene fecha de vencimiento válida.
// Los documentos heredados guardaban un valor centinela en vez de null; el repositorio
// lo normaliza a nil, así que aquí basta comprobar el puntero.
func (b *Batch) HasExpiry() bool {
	return b.ExpiryDate != nil && !b.ExpiryDate.IsZero()
}

// IsSelectable indica si el lote puede participar en una asignación automática.
func (b *Batch) IsSelectable() bool {
	return b.Quantity.GreaterThan(decimal.Zero)
}
