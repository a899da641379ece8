package transfer

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
	"github.com/jhoicas/Reservas-api/pkg/lock"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

// Modos de traslado.
const (
	ModePartial = "partial" // mueve una parte; el lote origen sobrevive
	ModeFull    = "full"    // el lote origen se retira completo
	ModeMerge   = "merge"   // el lote origen se fusiona en uno existente
)

// SelectionFree mueve la porción libre (no reservada) del lote origen.
// Cualquier otro valor de Selection se interpreta como referencia de consumidor:
// se mueve exactamente la reserva de ese consumidor.
const SelectionFree = "free"

// TransferUseCase es el motor de traslados: re-apunta reservas de un lote a otro
// manteniendo la invariante Σ(reservas de un lote) <= existencia física del lote.
// Las cantidades físicas las ajusta el colaborador que recibe/reubica el stock;
// este motor responde por la consistencia de reservas y snapshots, no por el
// conteo físico.
type TransferUseCase struct {
	txRunner   reservation.TxRunner
	itemRepo   repository.ItemRepository
	batchRepo  repository.BatchRepository
	ledgerRepo repository.LedgerRepository
	consumers  reservation.ConsumerStore
	events     event.Publisher
	locks      *lock.Keyed
	log        *logger.Logger
}

// NewTransferUseCase construye el motor de traslados.
func NewTransferUseCase(
	txRunner reservation.TxRunner,
	itemRepo repository.ItemRepository,
	batchRepo repository.BatchRepository,
	ledgerRepo repository.LedgerRepository,
	consumers reservation.ConsumerStore,
	events event.Publisher,
	locks *lock.Keyed,
	log *logger.Logger,
) *TransferUseCase {
	return &TransferUseCase{
		txRunner:   txRunner,
		itemRepo:   itemRepo,
		batchRepo:  batchRepo,
		ledgerRepo: ledgerRepo,
		consumers:  consumers,
		events:     events,
		locks:      locks,
		log:        log.Component("transfer"),
	}
}

// TransferInput entrada para un traslado entre lotes.
type TransferInput struct {
	SourceBatchID           string
	TargetBatchID           string
	TransferQuantity        decimal.Decimal
	SourceRemainingQuantity decimal.Decimal
	Selection               string // "free" o una referencia de consumidor
	Mode                    string // partial | full | merge
	UserID                  string
}

// Move una reserva re-apuntada de origen a destino.
type Move struct {
	ReferenceID string          `json:"reference_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	FromBatchID string          `json:"from_batch_id"`
	ToBatchID   string          `json:"to_batch_id"`
}

// TransferResult resultado estructurado. Cada re-apuntado es su propio paso
// atómico: los fallos posteriores no deshacen los ya confirmados, se reportan
// en Errors (éxito parcial de primera clase, no excepción).
type TransferResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Moves   []Move   `json:"moves"`
	Errors  []string `json:"errors,omitempty"`
}

// TransferBatch re-apunta reservas del lote origen al destino según Selection y Mode.
//  1. Selection = referencia: mueve exactamente la reserva de ese consumidor por
//     TransferQuantity unidades; las demás referencias no se tocan.
//  2. Selection = "free": la porción libre viaja primero (sin re-apuntar nada);
//     en full/merge, o cuando el parcial excede la porción libre, las reservas se
//     re-apuntan (completas en full/merge, las más antiguas primero en parcial).
//
// Cada re-apuntado escribe: booking_cancel en origen + booking en destino +
// entrada TRANSFER de auditoría, en un commit atómico propio, y luego notifica el
// snapshot del consumidor (fallo registrado en Errors, nunca aborta).
func (uc *TransferUseCase) TransferBatch(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.SourceBatchID == "" {
		return nil, domain.NewValidationError("sourceBatchId", "requerido")
	}
	if in.TargetBatchID == "" {
		return nil, domain.NewValidationError("targetBatchId", "requerido")
	}
	if in.SourceBatchID == in.TargetBatchID {
		return nil, domain.NewValidationError("targetBatchId", "origen y destino deben ser distintos")
	}
	if in.Mode != ModePartial && in.Mode != ModeFull && in.Mode != ModeMerge {
		return nil, domain.ErrInvalidTransfer
	}
	if in.Mode == ModePartial && !in.TransferQuantity.GreaterThan(decimal.Zero) {
		return nil, domain.NewValidationError("transferQuantity", "debe ser mayor que cero")
	}
	if in.Selection == "" {
		return nil, domain.NewValidationError("selection", "requerido: \"free\" o una referencia")
	}

	source, err := uc.batchRepo.GetByID(in.SourceBatchID)
	if err != nil {
		return nil, fmt.Errorf("cargar lote origen: %w", err)
	}
	if source == nil {
		return nil, domain.ErrNotFound
	}
	target, err := uc.batchRepo.GetByID(in.TargetBatchID)
	if err != nil {
		return nil, fmt.Errorf("cargar lote destino: %w", err)
	}
	if target == nil {
		return nil, domain.ErrNotFound
	}
	if target.ItemID != source.ItemID {
		return nil, domain.NewValidationError("targetBatchId", "los lotes deben pertenecer al mismo artículo")
	}

	uc.locks.Lock(source.ItemID)
	defer uc.locks.Unlock(source.ItemID)

	entries, err := uc.ledgerRepo.ListBookingsByBatch(in.SourceBatchID)
	if err != nil {
		return nil, fmt.Errorf("cargar reservas del origen: %w", err)
	}
	reserved := effectiveByReference(entries)

	moves, err := uc.planMoves(in, source, reserved, entries)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{Success: true, Moves: make([]Move, 0, len(moves))}
	now := time.Now()

	for _, mv := range moves {
		err := uc.repoint(ctx, source, target, mv.ReferenceID, mv.Quantity, in.UserID, now)
		if err != nil {
			// El re-apuntado no confirmado se reporta; los ya confirmados quedan
			result.Errors = append(result.Errors,
				fmt.Sprintf("reserva %s: %v", mv.ReferenceID, err))
			continue
		}
		result.Moves = append(result.Moves, mv)
		if err := uc.consumers.OnReservationChanged(ctx, mv.ReferenceID, source.ItemID, target.ID, mv.Quantity, target.BatchNumber); err != nil {
			uc.log.Warn().Err(err).
				Str("reference_id", mv.ReferenceID).
				Str("target_batch_id", target.ID).
				Msg("actualización de snapshot del consumidor falló")
			result.Errors = append(result.Errors,
				fmt.Sprintf("snapshot de %s: %v", mv.ReferenceID, err))
		}
	}

	uc.events.Publish(event.InventoryUpdated{
		ItemID:     source.ItemID,
		Action:     event.ActionUpdate,
		OccurredAt: now,
	})

	if len(result.Errors) > 0 {
		result.Message = fmt.Sprintf("traslado con %d error(es)", len(result.Errors))
	} else {
		result.Message = "traslado completado"
	}
	return result, nil
}

// planMoves decide qué reservas se re-apuntan y por cuánto.
func (uc *TransferUseCase) planMoves(
	in TransferInput,
	source *entity.Batch,
	reserved map[string]decimal.Decimal,
	entries []*entity.LedgerEntry,
) ([]Move, error) {
	if in.Selection != SelectionFree {
		// Referencia específica: mover exactamente esa reserva
		qty, ok := reserved[in.Selection]
		if !ok || qty.IsZero() {
			return nil, domain.ErrNotFound
		}
		moveQty := in.TransferQuantity
		if in.Mode != ModePartial || moveQty.IsZero() || moveQty.GreaterThan(qty) {
			moveQty = qty
		}
		return []Move{{
			ReferenceID: in.Selection,
			Quantity:    moveQty,
			FromBatchID: in.SourceBatchID,
			ToBatchID:   in.TargetBatchID,
		}}, nil
	}

	totalReserved := decimal.Zero
	for _, qty := range reserved {
		totalReserved = totalReserved.Add(qty)
	}
	free := source.Quantity.Sub(totalReserved)
	if free.IsNegative() {
		free = decimal.Zero
	}

	switch in.Mode {
	case ModeFull, ModeMerge:
		// El origen se retira: toda reserva viaja al destino
		moves := make([]Move, 0, len(reserved))
		for _, ref := range referencesOldestFirst(entries, reserved) {
			moves = append(moves, Move{
				ReferenceID: ref,
				Quantity:    reserved[ref],
				FromBatchID: in.SourceBatchID,
				ToBatchID:   in.TargetBatchID,
			})
		}
		return moves, nil
	default:
		// Parcial: la porción libre viaja primero y no re-apunta nada;
		// solo el excedente obliga a mover reservas, las más antiguas primero
		excess := in.TransferQuantity.Sub(free)
		if excess.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
		var moves []Move
		for _, ref := range referencesOldestFirst(entries, reserved) {
			if excess.LessThanOrEqual(decimal.Zero) {
				break
			}
			take := decimal.Min(reserved[ref], excess)
			moves = append(moves, Move{
				ReferenceID: ref,
				Quantity:    take,
				FromBatchID: in.SourceBatchID,
				ToBatchID:   in.TargetBatchID,
			})
			excess = excess.Sub(take)
		}
		return moves, nil
	}
}

// repoint ejecuta un re-apuntado como su propio paso atómico:
// compensación en origen, reserva (aditiva) en destino y auditoría TRANSFER.
func (uc *TransferUseCase) repoint(
	ctx context.Context,
	source, target *entity.Batch,
	referenceID string,
	quantity decimal.Decimal,
	userID string,
	now time.Time,
) error {
	return uc.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
	) error {
		cancel := &entity.LedgerEntry{
			ID:          uuid.New().String(),
			ItemID:      source.ItemID,
			BatchID:     source.ID,
			BatchNumber: source.BatchNumber,
			ReferenceID: referenceID,
			Type:        entity.LedgerTypeBookingCancel,
			Quantity:    quantity,
			Reference:   referenceID,
			Notes:       fmt.Sprintf("traslado a lote %s", target.BatchNumber),
			CreatedAt:   now,
			CreatedBy:   userID,
		}
		if err := ledgerRepo.Create(cancel); err != nil {
			return err
		}

		existing, err := ledgerRepo.ListBookingsByItem(source.ItemID)
		if err != nil {
			return err
		}
		// La reserva re-apuntada conserva la antigüedad de la original: el
		// orden FIFO de cancelación por excedente no debe cambiar por trasladar.
		var prev *entity.LedgerEntry
		createdAt := now
		for _, e := range existing {
			if !e.IsActiveBooking() || e.ReferenceID != referenceID {
				continue
			}
			if e.BatchID == target.ID && prev == nil {
				prev = e
			}
			if e.BatchID == source.ID && e.CreatedAt.Before(createdAt) {
				createdAt = e.CreatedAt
			}
		}
		if prev != nil {
			prev.Quantity = prev.Quantity.Add(quantity)
			if err := ledgerRepo.UpdateBooking(prev); err != nil {
				return err
			}
		} else {
			booking := &entity.LedgerEntry{
				ID:          uuid.New().String(),
				ItemID:      source.ItemID,
				BatchID:     target.ID,
				BatchNumber: target.BatchNumber,
				ReferenceID: referenceID,
				Type:        entity.LedgerTypeBooking,
				Quantity:    quantity,
				Status:      entity.BookingStatusActive,
				Reference:   referenceID,
				Notes:       fmt.Sprintf("traslado desde lote %s", source.BatchNumber),
				CreatedAt:   createdAt,
				CreatedBy:   userID,
			}
			if err := ledgerRepo.Create(booking); err != nil {
				return err
			}
		}

		audit := &entity.LedgerEntry{
			ID:          uuid.New().String(),
			ItemID:      source.ItemID,
			BatchID:     target.ID,
			BatchNumber: target.BatchNumber,
			ReferenceID: referenceID,
			Type:        entity.LedgerTypeTransfer,
			Quantity:    quantity,
			Reference:   referenceID,
			Notes:       fmt.Sprintf("re-apuntado de reserva %s -> %s", source.BatchNumber, target.BatchNumber),
			CreatedAt:   now,
			CreatedBy:   userID,
		}
		return ledgerRepo.Create(audit)
	})
}

// effectiveByReference neteo booking − booking_cancel por referencia para un lote.
func effectiveByReference(entries []*entity.LedgerEntry) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for key, qty := range entity.EffectiveBooked(entries) {
		out[key.ReferenceID] = out[key.ReferenceID].Add(qty)
	}
	return out
}

// referencesOldestFirst ordena las referencias con reserva efectiva por fecha de
// creación de su reserva más antigua.
func referencesOldestFirst(entries []*entity.LedgerEntry, reserved map[string]decimal.Decimal) []string {
	oldest := make(map[string]time.Time)
	for _, e := range entries {
		if !e.IsActiveBooking() {
			continue
		}
		if t, ok := oldest[e.ReferenceID]; !ok || e.CreatedAt.Before(t) {
			oldest[e.ReferenceID] = e.CreatedAt
		}
	}
	refs := make([]string, 0, len(reserved))
	for ref := range reserved {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		ti, tj := oldest[refs[i]], oldest[refs[j]]
		if ti.Equal(tj) {
			return refs[i] < refs[j]
		}
		return ti.Before(tj)
	})
	return refs
}
