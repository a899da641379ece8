package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/allocation"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/event"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	"github.com/jhoicas/Reservas-api/pkg/lock"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

// MovementUseCase registra los movimientos físicos del libro: entradas por
// recepción de mercancía (RECEIVE) y salidas por consumo (ISSUE). Es el único
// lugar donde la cantidad física de un lote se decrementa por consumo; la
// reserva nunca toca el físico.
type MovementUseCase struct {
	txRunner   reservation.TxRunner
	itemRepo   repository.ItemRepository
	batchRepo  repository.BatchRepository
	ledgerRepo repository.LedgerRepository
	events     event.Publisher
	locks      *lock.Keyed
	log        *logger.Logger
}

// NewMovementUseCase construye el caso de uso de movimientos físicos.
func NewMovementUseCase(
	txRunner reservation.TxRunner,
	itemRepo repository.ItemRepository,
	batchRepo repository.BatchRepository,
	ledgerRepo repository.LedgerRepository,
	events event.Publisher,
	locks *lock.Keyed,
	log *logger.Logger,
) *MovementUseCase {
	return &MovementUseCase{
		txRunner:   txRunner,
		itemRepo:   itemRepo,
		batchRepo:  batchRepo,
		ledgerRepo: ledgerRepo,
		events:     events,
		locks:      locks,
		log:        log.Component("movement"),
	}
}

// ReceiveInput entrada de mercancía: crea un lote nuevo.
type ReceiveInput struct {
	ItemID       string
	WarehouseID  string
	BatchNumber  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	ExpiryDate   *time.Time
	ReceivedDate time.Time
	Reference    string
	UserID       string
}

// Receive registra una recepción: lote nuevo + entrada RECEIVE + incremento del
// agregado Quantity del artículo, en un solo commit atómico.
func (uc *MovementUseCase) Receive(ctx context.Context, in ReceiveInput) (*entity.Batch, error) {
	if in.ItemID == "" {
		return nil, domain.NewValidationError("itemId", "requerido")
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	if in.UnitPrice.IsNegative() {
		return nil, domain.NewValidationError("unitPrice", "no puede ser negativo")
	}
	if in.ReceivedDate.IsZero() {
		in.ReceivedDate = time.Now()
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

	now := time.Now()
	batch := &entity.Batch{
		ID:           uuid.New().String(),
		ItemID:       in.ItemID,
		WarehouseID:  in.WarehouseID,
		BatchNumber:  in.BatchNumber,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		ExpiryDate:   in.ExpiryDate,
		ReceivedDate: in.ReceivedDate,
		CreatedAt:    now,
	}

	err = uc.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
	) error {
		if err := batchRepo.Create(batch); err != nil {
			return err
		}
		entry := &entity.LedgerEntry{
			ID:          uuid.New().String(),
			ItemID:      in.ItemID,
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Type:        entity.LedgerTypeReceive,
			Quantity:    in.Quantity,
			Reference:   in.Reference,
			CreatedAt:   now,
			CreatedBy:   in.UserID,
		}
		if err := ledgerRepo.Create(entry); err != nil {
			return err
		}
		current, err := itemRepo.GetForUpdate(in.ItemID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		return itemRepo.UpdateQuantity(in.ItemID, current.Quantity.Add(in.Quantity))
	})
	if err != nil {
		return nil, err
	}

	uc.events.Publish(event.InventoryUpdated{
		ItemID:     in.ItemID,
		Action:     event.ActionUpdate,
		Quantity:   &in.Quantity,
		OccurredAt: now,
	})
	return batch, nil
}

// IssueInput salida por consumo.
type IssueInput struct {
	ItemID      string
	Quantity    decimal.Decimal
	Method      string // allocation.MethodFIFO | MethodFEFO
	ReferenceID string // orden de trabajo consumidora (opcional)
	Reference   string
	UserID      string
}

// Issue registra una salida por consumo: decrementa lotes en orden FIFO/FEFO,
// escribe una entrada ISSUE por lote tocado y decrementa el agregado Quantity.
// Una salida que dejaría el físico por debajo de lo reservado por otras órdenes
// se rechaza con stock insuficiente. La reserva viva de la orden consumidora se
// da por cumplida: se compensa con booking_cancel en el mismo commit y el
// agregado BookedQuantity baja en lo consumido.
func (uc *MovementUseCase) Issue(ctx context.Context, in IssueInput) error {
	if in.ItemID == "" {
		return domain.NewValidationError("itemId", "requerido")
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	method := in.Method
	if method == "" {
		method = allocation.MethodFIFO
	}
	if method != allocation.MethodFIFO && method != allocation.MethodFEFO {
		return domain.NewValidationError("method", "debe ser FIFO o FEFO")
	}

	uc.locks.Lock(in.ItemID)
	defer uc.locks.Unlock(in.ItemID)

	item, err := uc.itemRepo.GetByID(in.ItemID)
	if err != nil {
		return fmt.Errorf("cargar artículo: %w", err)
	}
	if item == nil {
		return domain.ErrNotFound
	}

	batches, err := uc.batchRepo.ListByItem(in.ItemID)
	if err != nil {
		return fmt.Errorf("cargar lotes: %w", err)
	}
	physical := decimal.Zero
	for _, b := range batches {
		physical = physical.Add(b.Quantity)
	}
	if physical.LessThan(in.Quantity) {
		return domain.ErrInsufficientStock
	}

	// La salida no puede dejar el físico por debajo de lo reservado por otras
	// órdenes; la reserva propia de la orden consumidora sí puede consumirse.
	entries, err := uc.ledgerRepo.ListBookingsByItem(in.ItemID)
	if err != nil {
		return fmt.Errorf("cargar reservas: %w", err)
	}
	effective := entity.EffectiveBooked(entries)
	otherBooked := decimal.Zero
	ownByBatch := make(map[string]decimal.Decimal)
	for key, qty := range effective {
		if in.ReferenceID != "" && key.ReferenceID == in.ReferenceID {
			ownByBatch[key.BatchID] = ownByBatch[key.BatchID].Add(qty)
			continue
		}
		otherBooked = otherBooked.Add(qty)
	}
	if physical.Sub(in.Quantity).LessThan(otherBooked) {
		return domain.ErrInsufficientStock
	}

	// Reservas vivas de la orden consumidora, en orden de antigüedad: la salida
	// las da por consumidas y las compensa en el mismo commit.
	var ownBookings []*entity.LedgerEntry
	seen := make(map[string]bool)
	for _, e := range entries {
		if !e.IsActiveBooking() || e.ReferenceID != in.ReferenceID || seen[e.BatchID] {
			continue
		}
		if ownByBatch[e.BatchID].GreaterThan(decimal.Zero) {
			ownBookings = append(ownBookings, e)
			seen[e.BatchID] = true
		}
	}

	sorted := allocation.Sort(batches, method)
	takes := allocation.Select(sorted, in.Quantity)
	now := time.Now()

	quantityByBatch := make(map[string]decimal.Decimal, len(batches))
	for _, b := range batches {
		quantityByBatch[b.ID] = b.Quantity
	}

	err = uc.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
	) error {
		for _, take := range takes {
			remaining := quantityByBatch[take.BatchID].Sub(take.Quantity)
			if err := batchRepo.UpdateQuantity(take.BatchID, remaining); err != nil {
				return err
			}
			entry := &entity.LedgerEntry{
				ID:          uuid.New().String(),
				ItemID:      in.ItemID,
				BatchID:     take.BatchID,
				BatchNumber: take.BatchNumber,
				ReferenceID: in.ReferenceID,
				Type:        entity.LedgerTypeIssue,
				Quantity:    take.Quantity,
				Reference:   in.Reference,
				CreatedAt:   now,
				CreatedBy:   in.UserID,
			}
			if err := ledgerRepo.Create(entry); err != nil {
				return err
			}
		}
		remaining := in.Quantity
		consumed := decimal.Zero
		for _, booking := range ownBookings {
			if !remaining.GreaterThan(decimal.Zero) {
				break
			}
			cancel := decimal.Min(ownByBatch[booking.BatchID], remaining)
			entry := &entity.LedgerEntry{
				ID:          uuid.New().String(),
				ItemID:      in.ItemID,
				BatchID:     booking.BatchID,
				BatchNumber: booking.BatchNumber,
				ReferenceID: in.ReferenceID,
				Type:        entity.LedgerTypeBookingCancel,
				Quantity:    cancel,
				Reference:   in.Reference,
				Notes:       "reserva consumida por salida",
				CreatedAt:   now,
				CreatedBy:   in.UserID,
			}
			if err := ledgerRepo.Create(entry); err != nil {
				return err
			}
			remaining = remaining.Sub(cancel)
			consumed = consumed.Add(cancel)
		}
		current, err := itemRepo.GetForUpdate(in.ItemID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if err := itemRepo.UpdateQuantity(in.ItemID, current.Quantity.Sub(in.Quantity)); err != nil {
			return err
		}
		if consumed.GreaterThan(decimal.Zero) {
			booked := current.BookedQuantity.Sub(consumed)
			if booked.IsNegative() {
				booked = decimal.Zero
			}
			return itemRepo.UpdateBookedQuantity(in.ItemID, booked)
		}
		return nil
	})
	if err != nil {
		return err
	}

	uc.events.Publish(event.InventoryUpdated{
		ItemID:     in.ItemID,
		Action:     event.ActionUpdate,
		Quantity:   &in.Quantity,
		OccurredAt: now,
	})
	return nil
}
