package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Reservas-api/internal/application/reservation"
)

var _ reservation.ConsumerStore = (*ConsumerStore)(nil)

// ConsumerStore adaptador del almacén de consumidores (órdenes de trabajo) sobre
// PostgreSQL. Mantiene en work_orders el snapshot desnormalizado "qué lotes
// satisfacen mi necesidad" que la UI de órdenes lee sin tocar el libro.
type ConsumerStore struct {
	q Querier
}

// NewConsumerStore construye el adaptador. Pasar pool o tx (Querier).
func NewConsumerStore(q Querier) *ConsumerStore {
	return &ConsumerStore{q: q}
}

// Exists indica si la orden de trabajo sigue existiendo.
func (s *ConsumerStore) Exists(ctx context.Context, referenceID string) (bool, error) {
	var id string
	err := s.q.QueryRow(ctx, `SELECT id FROM work_orders WHERE id = $1`, referenceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check work order: %w", err)
	}
	return true, nil
}

// reservedBatch una línea del snapshot de reservas de la orden.
type reservedBatch struct {
	ItemID      string          `json:"item_id"`
	BatchID     string          `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OnReservationChanged reescribe la línea (item, lote) del snapshot de la orden.
// Cantidad cero elimina la línea. El snapshot es un cache de lectura: el libro
// sigue siendo la fuente de verdad, y un fallo aquí no debe abortar al motor.
func (s *ConsumerStore) OnReservationChanged(ctx context.Context, referenceID, itemID, batchID string, quantity decimal.Decimal, batchNumber string) error {
	var raw []byte
	err := s.q.QueryRow(ctx,
		`SELECT reserved_batches FROM work_orders WHERE id = $1 FOR UPDATE`,
		referenceID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // orden borrada entre tanto: nada que sincronizar
		}
		return fmt.Errorf("load work order snapshot: %w", err)
	}

	var lines []reservedBatch
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &lines); err != nil {
			return fmt.Errorf("unmarshal work order snapshot: %w", err)
		}
	}

	kept := lines[:0]
	for _, l := range lines {
		if l.ItemID == itemID && l.BatchID == batchID {
			continue
		}
		kept = append(kept, l)
	}
	if quantity.GreaterThan(decimal.Zero) {
		kept = append(kept, reservedBatch{
			ItemID:      itemID,
			BatchID:     batchID,
			BatchNumber: batchNumber,
			Quantity:    quantity,
			UpdatedAt:   time.Now().UTC(),
		})
	}

	updated, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("marshal work order snapshot: %w", err)
	}
	_, err = s.q.Exec(ctx,
		`UPDATE work_orders SET reserved_batches = $2, updated_at = now() WHERE id = $1`,
		referenceID, updated,
	)
	if err != nil {
		return fmt.Errorf("update work order snapshot: %w", err)
	}
	return nil
}
