package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un artículo de inventario (SKU lógico).
// Quantity y BookedQuantity son agregados materializados: Quantity = Σ lotes.Quantity,
// BookedQuantity = Σ reservas activas en el libro de movimientos. Siempre deben poder
// recomputarse desde Batch/LedgerEntry; la invariante BookedQuantity <= Quantity es
// blanda durante reservas parciales pero debe cumplirse al terminar cada operación.
type Item struct {
	ID             string
	Name           string
	Category       string
	Unit           string
	UnitPrice      decimal.Decimal
	Quantity       decimal.Decimal // suma de lotes (cache)
	BookedQuantity decimal.Decimal // suma de reservas activas (cache)
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AvailableQuantity devuelve la disponibilidad efectiva (físico - reservado).
func (i *Item) AvailableQuantity() decimal.Decimal {
	return i.Quantity.Sub(i.BookedQuantity)
}
