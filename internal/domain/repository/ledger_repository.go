package repository

import "github.com/jhoicas/Reservas-api/internal/domain/entity"

// LedgerRepository define el puerto del libro de movimientos (append-only).
// Las entradas nunca se mutan salvo dos excepciones acotadas: la actualización
// aditiva de una reserva existente del mismo par (lote, referencia) y el cambio
// de estado/lote de una reserva. Las cancelaciones son entradas nuevas que
// compensan, no modificaciones.
type LedgerRepository interface {
	Create(entry *entity.LedgerEntry) error
	CreateAll(entries []*entity.LedgerEntry) error
	GetByID(id string) (*entity.LedgerEntry, error)
	ListByItem(itemID string) ([]*entity.LedgerEntry, error)
	// ListBookingsByItem devuelve entradas booking y booking_cancel del artículo.
	ListBookingsByItem(itemID string) ([]*entity.LedgerEntry, error)
	ListBookingsByBatch(batchID string) ([]*entity.LedgerEntry, error)
	ListByReference(referenceID string) ([]*entity.LedgerEntry, error)
	// UpdateBooking persiste cantidad/estado/lote de una reserva existente.
	UpdateBooking(entry *entity.LedgerEntry) error
	// DeleteBookings borra físicamente las reservas de una referencia sobre un artículo.
	// Solo cuando el consumidor ya no existe y no queda valor de auditoría.
	DeleteBookings(itemID, referenceID string) error
}
