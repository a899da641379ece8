package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/event"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// CancelResult resultado de la cancelación de una reserva.
type CancelResult struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message"`
	CancelledQuantity decimal.Decimal `json:"cancelled_quantity"`
}

// Cancel cancela la reserva activa completa de una referencia contra un artículo
// (no parcial). Las reservas originales no se mutan: se compensan con entradas
// booking_cancel espejo por cada lote, y BookedQuantity se decrementa con piso
// en cero. Si el consumidor ya no existe, las reservas se borran físicamente
// (no queda valor de auditoría). Idempotente: cancelar una referencia ya
// cancelada es un no-op exitoso.
func (uc *ReservationUseCase) Cancel(ctx context.Context, itemID, referenceID, userID string) (*CancelResult, error) {
	if itemID == "" {
		return nil, domain.NewValidationError("itemId", "requerido")
	}
	if referenceID == "" {
		return nil, domain.NewValidationError("referenceId", "requerido")
	}

	uc.locks.Lock(itemID)
	defer uc.locks.Unlock(itemID)

	item, err := uc.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, fmt.Errorf("cargar artículo: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	entries, err := uc.ledgerRepo.ListBookingsByItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("cargar reservas: %w", err)
	}
	effective := entity.EffectiveBooked(entries)

	// Cantidad efectiva por lote para esta referencia
	perBatch := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for key, qty := range effective {
		if key.ReferenceID == referenceID {
			perBatch[key.BatchID] = qty
			total = total.Add(qty)
		}
	}
	if total.IsZero() {
		return &CancelResult{Success: true, Message: "sin reserva activa para la referencia"}, nil
	}

	consumerExists, err := uc.consumers.Exists(ctx, referenceID)
	if err != nil {
		// Colaborador externo caído: asumir que existe y conservar auditoría
		uc.log.Warn().Err(err).Str("reference_id", referenceID).Msg("consulta al almacén de consumidores falló")
		consumerExists = true
	}

	now := time.Now()
	batchNumbers := batchNumbersByID(entries)

	err = uc.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
	) error {
		if !consumerExists {
			// El consumidor fue borrado: compensar no aporta auditoría, solo ruido
			if err := ledgerRepo.DeleteBookings(itemID, referenceID); err != nil {
				return err
			}
		} else {
			for batchID, qty := range perBatch {
				cancel := &entity.LedgerEntry{
					ID:          uuid.New().String(),
					ItemID:      itemID,
					BatchID:     batchID,
					BatchNumber: batchNumbers[batchID],
					ReferenceID: referenceID,
					Type:        entity.LedgerTypeBookingCancel,
					Quantity:    qty,
					Reference:   referenceID,
					CreatedAt:   now,
					CreatedBy:   userID,
				}
				if err := ledgerRepo.Create(cancel); err != nil {
					return err
				}
			}
			// Entrada de auditoría resumen de la liberación
			audit := &entity.LedgerEntry{
				ID:        uuid.New().String(),
				ItemID:    itemID,
				Type:      entity.LedgerTypeAdjustmentRemove,
				Quantity:  total,
				Reference: referenceID,
				Notes:     "liberación de reserva",
				CreatedAt: now,
				CreatedBy: userID,
			}
			if err := ledgerRepo.Create(audit); err != nil {
				return err
			}
		}
		current, err := itemRepo.GetForUpdate(itemID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		booked := current.BookedQuantity.Sub(total)
		if booked.IsNegative() {
			booked = decimal.Zero
		}
		return itemRepo.UpdateBookedQuantity(itemID, booked)
	})
	if err != nil {
		return nil, err
	}

	uc.events.Publish(event.InventoryUpdated{
		ItemID:     itemID,
		Action:     event.ActionBookingCancelled,
		Quantity:   &total,
		OccurredAt: now,
	})
	if consumerExists {
		for batchID := range perBatch {
			if err := uc.consumers.OnReservationChanged(ctx, referenceID, itemID, batchID, decimal.Zero, batchNumbers[batchID]); err != nil {
				uc.log.Warn().Err(err).
					Str("reference_id", referenceID).
					Str("batch_id", batchID).
					Msg("actualización de snapshot del consumidor falló")
			}
		}
	}

	return &CancelResult{
		Success:           true,
		Message:           "reserva cancelada",
		CancelledQuantity: total,
	}, nil
}

// batchNumbersByID indexa el número de lote de cada entrada conocida.
func batchNumbersByID(entries []*entity.LedgerEntry) map[string]string {
	out := make(map[string]string)
	for _, e := range entries {
		if e.BatchID != "" && e.BatchNumber != "" {
			out[e.BatchID] = e.BatchNumber
		}
	}
	return out
}
