package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transacción del libro de movimientos. Toda alteración de cantidades pasa
// por aquí: los agregados de Item/Batch son caches sobre este registro inmutable.
const (
	LedgerTypeReceive          = "RECEIVE"            // entrada por recepción de mercancía
	LedgerTypeIssue            = "ISSUE"              // salida por consumo
	LedgerTypeBooking          = "booking"            // reserva contra un lote
	LedgerTypeBookingCancel    = "booking_cancel"     // compensación de una reserva (nunca se muta la original)
	LedgerTypeAdjustmentAdd    = "adjustment-add"     // ajuste positivo (conteo físico)
	LedgerTypeAdjustmentRemove = "adjustment-remove"  // ajuste negativo (conteo físico)
	LedgerTypeTransfer         = "TRANSFER"           // traslado entre lotes/bodegas
	LedgerTypeStocktaking      = "stocktaking"        // auditoría de conteo completado
	LedgerTypeStocktakingOpen  = "stocktaking-reopen" // auditoría de reapertura para corrección
)

// Estados de una reserva (entrada booking).
const (
	BookingStatusActive    = "active"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// LedgerEntry es un registro inmutable de un evento que afecta cantidades.
// Para booking/booking_cancel, ReferenceID identifica al consumidor (orden de trabajo);
// la cantidad reservada efectiva de un par (lote, referencia) es
// Σ booking − Σ booking_cancel, nunca negativa.
type LedgerEntry struct {
	ID          string
	ItemID      string
	BatchID     string
	BatchNumber string
	ReferenceID string // id del consumidor (orden de trabajo / tarea); vacío para movimientos físicos
	Type        string
	Quantity    decimal.Decimal
	Status      string // solo para booking: active | cancelled | completed
	Reference   string // referencia legible (factura, orden, nota)
	Notes       string
	CreatedAt   time.Time
	CreatedBy   string
}

// IsActiveBooking indica si la entrada es una reserva vigente.
func (e *LedgerEntry) IsActiveBooking() bool {
	return e.Type == LedgerTypeBooking && e.Status == BookingStatusActive
}

// EffectiveBooked calcula, para un conjunto de entradas de un mismo artículo, la cantidad
// reservada efectiva por par (batchID, referenceID): Σ booking activas − Σ booking_cancel,
// con piso en cero. Es el pliegue puro sobre el libro que usa el Pase de Conciliación.
func EffectiveBooked(entries []*LedgerEntry) map[BookingKey]decimal.Decimal {
	out := make(map[BookingKey]decimal.Decimal)
	for _, e := range entries {
		key := BookingKey{BatchID: e.BatchID, ReferenceID: e.ReferenceID}
		switch {
		case e.IsActiveBooking():
			out[key] = out[key].Add(e.Quantity)
		case e.Type == LedgerTypeBookingCancel:
			out[key] = out[key].Sub(e.Quantity)
		}
	}
	for key, qty := range out {
		if qty.LessThanOrEqual(decimal.Zero) {
			delete(out, key)
		}
	}
	return out
}

// BookingKey identifica una reserva lógica: un consumidor contra un lote.
type BookingKey struct {
	BatchID     string
	ReferenceID string
}
