package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Acciones del evento inventory-updated.
const (
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionBooking          = "booking"
	ActionBookingCancelled = "booking-cancelled"
)

// InventoryUpdated evento de dominio emitido tras cada operación que altera
// cantidades o reservas. Entrega al menos una vez, sin garantía de orden:
// los consumidores (caches, UI) deben tolerar duplicados.
type InventoryUpdated struct {
	ItemID     string
	Action     string
	Quantity   *decimal.Decimal // opcional según la acción
	OccurredAt time.Time
}

// Publisher puerto de publicación de eventos de dominio. El núcleo no conoce
// el bus concreto; los fallos de publicación se registran y no abortan la operación.
type Publisher interface {
	Publish(evt InventoryUpdated)
}
