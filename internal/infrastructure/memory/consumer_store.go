package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/application/reservation"
)

var _ reservation.ConsumerStore = (*ConsumerStore)(nil)

// Snapshot última notificación recibida para un par (referencia, lote).
type Snapshot struct {
	ReferenceID string
	ItemID      string
	BatchID     string
	BatchNumber string
	Quantity    decimal.Decimal
}

// ConsumerStore doble en memoria del almacén de órdenes de trabajo. Registra los
// snapshots notificados y permite simular referencias borradas o fallos del
// colaborador.
type ConsumerStore struct {
	mu        sync.Mutex
	deleted   map[string]bool
	FailWith  error // si no es nil, OnReservationChanged devuelve este error
	Snapshots []Snapshot
}

// NewConsumerStore construye el doble.
func NewConsumerStore() *ConsumerStore {
	return &ConsumerStore{deleted: make(map[string]bool)}
}

// MarkDeleted simula que el consumidor fue borrado.
func (s *ConsumerStore) MarkDeleted(referenceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[referenceID] = true
}

// Exists indica si la referencia sigue existiendo.
func (s *ConsumerStore) Exists(ctx context.Context, referenceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.deleted[referenceID], nil
}

// OnReservationChanged registra el snapshot notificado.
func (s *ConsumerStore) OnReservationChanged(ctx context.Context, referenceID, itemID, batchID string, quantity decimal.Decimal, batchNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.Snapshots = append(s.Snapshots, Snapshot{
		ReferenceID: referenceID,
		ItemID:      itemID,
		BatchID:     batchID,
		BatchNumber: batchNumber,
		Quantity:    quantity,
	})
	return nil
}
