package stocktaking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/event"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

// StocktakingUseCase es el motor de conteo físico: calcula discrepancias entre
// cantidad del sistema y cantidad contada, aplica correcciones a los lotes y
// cancela las reservas que el stock contado ya no alcanza a cubrir.
type StocktakingUseCase struct {
	txRunner        TxRunner
	stocktakingRepo repository.StocktakingRepository
	ledgerRepo      repository.LedgerRepository
	consumers       reservation.ConsumerStore
	events          event.Publisher
	log             *logger.Logger
}

// NewStocktakingUseCase construye el motor de conteo físico.
func NewStocktakingUseCase(
	txRunner TxRunner,
	stocktakingRepo repository.StocktakingRepository,
	ledgerRepo repository.LedgerRepository,
	consumers reservation.ConsumerStore,
	events event.Publisher,
	log *logger.Logger,
) *StocktakingUseCase {
	return &StocktakingUseCase{
		txRunner:        txRunner,
		stocktakingRepo: stocktakingRepo,
		ledgerRepo:      ledgerRepo,
		consumers:       consumers,
		events:          events,
		log:             log.Component("stocktaking"),
	}
}

// CompleteResult resultado del cierre de un conteo.
type CompleteResult struct {
	Success               bool                          `json:"success"`
	Message               string                        `json:"message"`
	ItemsCount            int                           `json:"items_count"`
	DiscrepanciesCount    int                           `json:"discrepancies_count"`
	TotalValue            decimal.Decimal               `json:"total_value"`
	CancelledReservations []entity.CancelledReservation `json:"cancelled_reservations"`
}

// Complete cierra un conteo físico:
//  1. prohibido si ya está Completed,
//  2. calcula la discrepancia de cada línea contada,
//  3. con adjustInventory, emite adjustment-add/remove y fija la cantidad física
//     del lote en la cantidad contada,
//  4. cancela reservas (las más antiguas primero) en todo lote cuyo stock contado
//     quedó por debajo de sus reservas activas, dejando auditoría en
//     CancelledReservations,
//  5. transiciona a Completed con estadísticas agregadas,
//  6. emite una entrada de auditoría en el libro.
func (uc *StocktakingUseCase) Complete(ctx context.Context, stocktakingID string, adjustInventory bool, userID string) (*CompleteResult, error) {
	return uc.complete(ctx, stocktakingID, adjustInventory, userID, false)
}

// CompleteCorrected re-cierra un conteo reabierto para corrección. Requiere estado
// In correction y preserva el CompletedAt original para la historia.
func (uc *StocktakingUseCase) CompleteCorrected(ctx context.Context, stocktakingID string, adjustInventory bool, userID string) (*CompleteResult, error) {
	return uc.complete(ctx, stocktakingID, adjustInventory, userID, true)
}

func (uc *StocktakingUseCase) complete(ctx context.Context, stocktakingID string, adjustInventory bool, userID string, corrected bool) (*CompleteResult, error) {
	if stocktakingID == "" {
		return nil, domain.NewValidationError("stocktakingId", "requerido")
	}

	st, err := uc.stocktakingRepo.GetByID(stocktakingID)
	if err != nil {
		return nil, fmt.Errorf("cargar conteo: %w", err)
	}
	if st == nil {
		return nil, domain.ErrNotFound
	}
	if corrected {
		if st.Status != entity.StocktakingInCorrection {
			return nil, &domain.InvalidStateTransitionError{From: st.Status, To: entity.StocktakingCompleted}
		}
	} else {
		if st.Status == entity.StocktakingCompleted {
			return nil, &domain.InvalidStateTransitionError{From: st.Status, To: entity.StocktakingCompleted}
		}
		if !st.CanTransitionTo(entity.StocktakingCompleted) {
			return nil, &domain.InvalidStateTransitionError{From: st.Status, To: entity.StocktakingCompleted}
		}
	}

	now := time.Now()
	var cancelled []entity.CancelledReservation
	var adjustedItems []string
	var notifications []snapshotNotification

	err = uc.txRunner.RunStocktaking(ctx, func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
		stocktakingRepo repository.StocktakingRepository,
	) error {
		cancelled = cancelled[:0]
		adjustedItems = adjustedItems[:0]
		notifications = notifications[:0]

		quantityDelta := make(map[string]decimal.Decimal) // ajuste físico por artículo
		bookedDelta := make(map[string]decimal.Decimal)   // reservas canceladas por artículo
		discrepancies := 0
		totalValue := decimal.Zero

		for i := range st.Items {
			line := &st.Items[i]
			disc := line.Discrepancy()
			totalValue = totalValue.Add(line.CountedQuantity.Mul(line.UnitPrice))
			if !disc.IsZero() {
				discrepancies++
			}

			if adjustInventory && !disc.IsZero() {
				entryType := entity.LedgerTypeAdjustmentAdd
				if disc.IsNegative() {
					entryType = entity.LedgerTypeAdjustmentRemove
				}
				adj := &entity.LedgerEntry{
					ID:          uuid.New().String(),
					ItemID:      line.ItemID,
					BatchID:     line.BatchID,
					BatchNumber: line.LotNumber,
					Type:        entryType,
					Quantity:    disc.Abs(),
					Reference:   st.ID,
					Notes:       "corrección por conteo físico",
					CreatedAt:   now,
					CreatedBy:   userID,
				}
				if err := ledgerRepo.Create(adj); err != nil {
					return err
				}
				if err := batchRepo.UpdateQuantity(line.BatchID, line.CountedQuantity); err != nil {
					return err
				}
				quantityDelta[line.ItemID] = quantityDelta[line.ItemID].Add(disc)
			}

			// Reservas que el stock contado ya no cubre: cancelar solo el exceso,
			// las más antiguas primero
			excessCancelled, notes, err := uc.cancelExcess(ledgerRepo, line, now, userID)
			if err != nil {
				return err
			}
			for _, c := range excessCancelled {
				cancelled = append(cancelled, c)
				bookedDelta[line.ItemID] = bookedDelta[line.ItemID].Add(c.Quantity)
			}
			notifications = append(notifications, notes...)
		}

		// Aplicar deltas acumulados a los agregados de cada artículo
		for itemID, delta := range quantityDelta {
			item, err := itemRepo.GetForUpdate(itemID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrNotFound
			}
			if err := itemRepo.UpdateQuantity(itemID, item.Quantity.Add(delta)); err != nil {
				return err
			}
			adjustedItems = append(adjustedItems, itemID)
		}
		for itemID, delta := range bookedDelta {
			item, err := itemRepo.GetForUpdate(itemID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrNotFound
			}
			booked := item.BookedQuantity.Sub(delta)
			if booked.IsNegative() {
				booked = decimal.Zero
			}
			if err := itemRepo.UpdateBookedQuantity(itemID, booked); err != nil {
				return err
			}
		}

		st.Status = entity.StocktakingCompleted
		st.CancelledReservations = append(st.CancelledReservations, cancelled...)
		st.ItemsCount = len(st.Items)
		st.DiscrepanciesCount = discrepancies
		st.TotalValue = totalValue
		if st.CompletedAt == nil {
			// La re-completación tras corrección preserva el CompletedAt original
			st.CompletedAt = &now
		}
		st.CompletedBy = userID
		if err := stocktakingRepo.Update(st); err != nil {
			return err
		}

		audit := &entity.LedgerEntry{
			ID:        uuid.New().String(),
			Type:      entity.LedgerTypeStocktaking,
			Reference: st.ID,
			Notes:     fmt.Sprintf("conteo físico completado: %d líneas, %d discrepancias", len(st.Items), discrepancies),
			CreatedAt: now,
			CreatedBy: userID,
		}
		return ledgerRepo.Create(audit)
	})
	if err != nil {
		return nil, err
	}

	for _, itemID := range adjustedItems {
		uc.events.Publish(event.InventoryUpdated{
			ItemID:     itemID,
			Action:     event.ActionUpdate,
			OccurredAt: now,
		})
	}
	for _, n := range notifications {
		if err := uc.consumers.OnReservationChanged(ctx, n.ReferenceID, n.ItemID, n.BatchID, n.Remaining, n.BatchNumber); err != nil {
			uc.log.Warn().Err(err).
				Str("reference_id", n.ReferenceID).
				Str("batch_id", n.BatchID).
				Msg("actualización de snapshot del consumidor falló")
		}
	}

	return &CompleteResult{
		Success:               true,
		Message:               "conteo completado",
		ItemsCount:            st.ItemsCount,
		DiscrepanciesCount:    st.DiscrepanciesCount,
		TotalValue:            st.TotalValue,
		CancelledReservations: cancelled,
	}, nil
}

type snapshotNotification struct {
	ReferenceID string
	ItemID      string
	BatchID     string
	BatchNumber string
	Remaining   decimal.Decimal
}

// cancelExcess cancela reservas del lote hasta que reservado <= contado,
// eligiendo las más antiguas primero y permitiendo cancelación parcial de la última.
func (uc *StocktakingUseCase) cancelExcess(
	ledgerRepo repository.LedgerRepository,
	line *entity.StocktakingItem,
	now time.Time,
	userID string,
) ([]entity.CancelledReservation, []snapshotNotification, error) {
	entries, err := ledgerRepo.ListBookingsByBatch(line.BatchID)
	if err != nil {
		return nil, nil, err
	}
	effective := make(map[string]decimal.Decimal)
	oldest := make(map[string]time.Time)
	for key, qty := range entity.EffectiveBooked(entries) {
		effective[key.ReferenceID] = qty
	}
	for _, e := range entries {
		if !e.IsActiveBooking() {
			continue
		}
		if t, ok := oldest[e.ReferenceID]; !ok || e.CreatedAt.Before(t) {
			oldest[e.ReferenceID] = e.CreatedAt
		}
	}

	totalReserved := decimal.Zero
	for _, qty := range effective {
		totalReserved = totalReserved.Add(qty)
	}
	excess := totalReserved.Sub(line.CountedQuantity)
	if excess.LessThanOrEqual(decimal.Zero) {
		return nil, nil, nil
	}

	refs := make([]string, 0, len(effective))
	for ref := range effective {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		ti, tj := oldest[refs[i]], oldest[refs[j]]
		if ti.Equal(tj) {
			return refs[i] < refs[j]
		}
		return ti.Before(tj)
	})

	var cancelled []entity.CancelledReservation
	var notes []snapshotNotification
	for _, ref := range refs {
		if excess.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := decimal.Min(effective[ref], excess)
		cancel := &entity.LedgerEntry{
			ID:          uuid.New().String(),
			ItemID:      line.ItemID,
			BatchID:     line.BatchID,
			BatchNumber: line.LotNumber,
			ReferenceID: ref,
			Type:        entity.LedgerTypeBookingCancel,
			Quantity:    take,
			Reference:   ref,
			Notes:       "cancelada por conteo físico: stock contado insuficiente",
			CreatedAt:   now,
			CreatedBy:   userID,
		}
		if err := ledgerRepo.Create(cancel); err != nil {
			return nil, nil, err
		}
		cancelled = append(cancelled, entity.CancelledReservation{
			BatchID:      line.BatchID,
			BatchNumber:  line.LotNumber,
			ReferenceID:  ref,
			Quantity:     take,
			MaterialName: line.Name,
			CancelledAt:  now,
		})
		notes = append(notes, snapshotNotification{
			ReferenceID: ref,
			ItemID:      line.ItemID,
			BatchID:     line.BatchID,
			BatchNumber: line.LotNumber,
			Remaining:   effective[ref].Sub(take),
		})
		excess = excess.Sub(take)
	}
	return cancelled, notes, nil
}

// ReopenForCorrection reabre un conteo completado para corrección. Solo es válido
// desde Completed; deja auditoría en el libro y conserva el CompletedAt original.
func (uc *StocktakingUseCase) ReopenForCorrection(ctx context.Context, stocktakingID, userID string) error {
	if stocktakingID == "" {
		return domain.NewValidationError("stocktakingId", "requerido")
	}
	st, err := uc.stocktakingRepo.GetByID(stocktakingID)
	if err != nil {
		return fmt.Errorf("cargar conteo: %w", err)
	}
	if st == nil {
		return domain.ErrNotFound
	}
	if !st.CanTransitionTo(entity.StocktakingInCorrection) {
		return &domain.InvalidStateTransitionError{From: st.Status, To: entity.StocktakingInCorrection}
	}

	st.Status = entity.StocktakingInCorrection
	if err := uc.stocktakingRepo.Update(st); err != nil {
		return fmt.Errorf("reabrir conteo: %w", err)
	}

	audit := &entity.LedgerEntry{
		ID:        uuid.New().String(),
		Type:      entity.LedgerTypeStocktakingOpen,
		Reference: st.ID,
		Notes:     "conteo reabierto para corrección",
		CreatedAt: time.Now(),
		CreatedBy: userID,
	}
	if err := uc.ledgerRepo.Create(audit); err != nil {
		uc.log.Warn().Err(err).Str("stocktaking_id", st.ID).Msg("auditoría de reapertura falló")
	}
	return nil
}

// Cancel cancela un conteo no completado.
func (uc *StocktakingUseCase) Cancel(ctx context.Context, stocktakingID, userID string) error {
	if stocktakingID == "" {
		return domain.NewValidationError("stocktakingId", "requerido")
	}
	st, err := uc.stocktakingRepo.GetByID(stocktakingID)
	if err != nil {
		return fmt.Errorf("cargar conteo: %w", err)
	}
	if st == nil {
		return domain.ErrNotFound
	}
	if !st.CanTransitionTo(entity.StocktakingCancelled) {
		return &domain.InvalidStateTransitionError{From: st.Status, To: entity.StocktakingCancelled}
	}
	st.Status = entity.StocktakingCancelled
	return uc.stocktakingRepo.Update(st)
}
