package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/event"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// UpdateInput entrada para modificar una reserva existente.
type UpdateInput struct {
	ReservationID string
	ItemID        string
	NewQuantity   decimal.Decimal
	NewBatchID    string
	UserID        string
}

// UpdateResult resultado de la modificación de una reserva.
type UpdateResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Quantity decimal.Decimal `json:"quantity"`
}

// UpdateReservation recalcula el delta entre cantidad vieja y nueva. Un delta
// positivo revalida la disponibilidad efectiva (InsufficientQuantity si no alcanza);
// NewQuantity <= 0 delega en Cancel. Cambiar de lote re-apunta la entrada del libro
// y el snapshot del consumidor, pero no mueve cantidad física: eso es trabajo del
// motor de traslados.
func (uc *ReservationUseCase) UpdateReservation(ctx context.Context, in UpdateInput) (*UpdateResult, error) {
	if in.ReservationID == "" {
		return nil, domain.NewValidationError("reservationId", "requerido")
	}
	if in.ItemID == "" {
		return nil, domain.NewValidationError("itemId", "requerido")
	}

	booking, err := uc.ledgerRepo.GetByID(in.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("cargar reserva: %w", err)
	}
	if booking == nil || booking.Type != entity.LedgerTypeBooking || booking.ItemID != in.ItemID {
		return nil, domain.ErrNotFound
	}

	if in.NewQuantity.LessThanOrEqual(decimal.Zero) {
		cancel, err := uc.Cancel(ctx, in.ItemID, booking.ReferenceID, in.UserID)
		if err != nil {
			return nil, err
		}
		return &UpdateResult{Success: cancel.Success, Message: cancel.Message}, nil
	}

	uc.locks.Lock(in.ItemID)
	defer uc.locks.Unlock(in.ItemID)

	item, err := uc.itemRepo.GetByID(in.ItemID)
	if err != nil {
		return nil, fmt.Errorf("cargar artículo: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	delta := in.NewQuantity.Sub(booking.Quantity)
	if delta.IsPositive() {
		batches, err := uc.batchRepo.ListByItem(in.ItemID)
		if err != nil {
			return nil, fmt.Errorf("cargar lotes: %w", err)
		}
		physical := decimal.Zero
		for _, b := range batches {
			physical = physical.Add(b.Quantity)
		}
		available := physical.Sub(item.BookedQuantity)
		if available.LessThan(delta) {
			return nil, &domain.InsufficientQuantityError{
				BatchID:   booking.BatchID,
				Requested: delta,
				Available: available,
			}
		}
	}

	newBatchNumber := booking.BatchNumber
	if in.NewBatchID != "" && in.NewBatchID != booking.BatchID {
		batch, err := uc.batchRepo.GetByID(in.NewBatchID)
		if err != nil {
			return nil, fmt.Errorf("cargar lote destino: %w", err)
		}
		if batch == nil || batch.ItemID != in.ItemID {
			return nil, domain.ErrNotFound
		}
		newBatchNumber = batch.BatchNumber
	}

	now := time.Now()
	err = uc.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
	) error {
		booking.Quantity = in.NewQuantity
		if in.NewBatchID != "" {
			booking.BatchID = in.NewBatchID
			booking.BatchNumber = newBatchNumber
		}
		if err := ledgerRepo.UpdateBooking(booking); err != nil {
			return err
		}
		current, err := itemRepo.GetForUpdate(in.ItemID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		booked := current.BookedQuantity.Add(delta)
		if booked.IsNegative() {
			booked = decimal.Zero
		}
		return itemRepo.UpdateBookedQuantity(in.ItemID, booked)
	})
	if err != nil {
		return nil, err
	}

	uc.events.Publish(event.InventoryUpdated{
		ItemID:     in.ItemID,
		Action:     event.ActionBooking,
		Quantity:   &in.NewQuantity,
		OccurredAt: now,
	})
	if err := uc.consumers.OnReservationChanged(ctx, booking.ReferenceID, in.ItemID, booking.BatchID, in.NewQuantity, booking.BatchNumber); err != nil {
		uc.log.Warn().Err(err).
			Str("reference_id", booking.ReferenceID).
			Str("batch_id", booking.BatchID).
			Msg("actualización de snapshot del consumidor falló")
	}

	return &UpdateResult{Success: true, Message: "reserva actualizada", Quantity: in.NewQuantity}, nil
}
