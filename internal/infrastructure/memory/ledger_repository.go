package memory

import (
	"sort"
	"sync"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación en memoria del libro de movimientos (append-only).
type LedgerRepo struct {
	mu      sync.RWMutex
	entries []*entity.LedgerEntry
}

// NewLedgerRepository construye el libro en memoria.
func NewLedgerRepository() *LedgerRepo {
	return &LedgerRepo{}
}

// Create agrega una entrada.
func (r *LedgerRepo) Create(entry *entity.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

// CreateAll agrega varias entradas.
func (r *LedgerRepo) CreateAll(entries []*entity.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		cp := *e
		r.entries = append(r.entries, &cp)
	}
	return nil
}

// GetByID devuelve la entrada o nil si no existe.
func (r *LedgerRepo) GetByID(id string) (*entity.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

// ListByItem entradas de un artículo en orden de creación.
func (r *LedgerRepo) ListByItem(itemID string) ([]*entity.LedgerEntry, error) {
	return r.list(func(e *entity.LedgerEntry) bool { return e.ItemID == itemID })
}

// ListBookingsByItem entradas booking y booking_cancel de un artículo.
func (r *LedgerRepo) ListBookingsByItem(itemID string) ([]*entity.LedgerEntry, error) {
	return r.list(func(e *entity.LedgerEntry) bool {
		return e.ItemID == itemID && (e.Type == entity.LedgerTypeBooking || e.Type == entity.LedgerTypeBookingCancel)
	})
}

// ListBookingsByBatch entradas booking y booking_cancel de un lote.
func (r *LedgerRepo) ListBookingsByBatch(batchID string) ([]*entity.LedgerEntry, error) {
	return r.list(func(e *entity.LedgerEntry) bool {
		return e.BatchID == batchID && (e.Type == entity.LedgerTypeBooking || e.Type == entity.LedgerTypeBookingCancel)
	})
}

// ListByReference entradas de una referencia de consumidor.
func (r *LedgerRepo) ListByReference(referenceID string) ([]*entity.LedgerEntry, error) {
	return r.list(func(e *entity.LedgerEntry) bool { return e.ReferenceID == referenceID })
}

func (r *LedgerRepo) list(keep func(*entity.LedgerEntry) bool) ([]*entity.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.LedgerEntry
	for _, e := range r.entries {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateBooking sobrescribe cantidad/estado/lote de una reserva existente.
func (r *LedgerRepo) UpdateBooking(entry *entity.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == entry.ID {
			cp := *entry
			r.entries[i] = &cp
			return nil
		}
	}
	return nil
}

// DeleteBookings borra físicamente las reservas de una referencia sobre un artículo.
func (r *LedgerRepo) DeleteBookings(itemID, referenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		isBooking := e.Type == entity.LedgerTypeBooking || e.Type == entity.LedgerTypeBookingCancel
		if isBooking && e.ItemID == itemID && e.ReferenceID == referenceID {
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return nil
}
