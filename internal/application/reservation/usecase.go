package reservation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/allocation"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/event"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	"github.com/jhoicas/Reservas-api/pkg/lock"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

// ReservationUseCase es el motor de reservas: selecciona lotes (FIFO/FEFO/manual),
// crea/actualiza/cancela reservas en el libro de movimientos y mantiene consistente
// el agregado BookedQuantity del artículo. Toda secuencia leer-decidir-escribir se
// ejecuta bajo el candado por artículo; el Pase de Conciliación es la segunda línea
// de defensa, no un sustituto de la serialización.
type ReservationUseCase struct {
	txRunner   TxRunner
	itemRepo   repository.ItemRepository
	batchRepo  repository.BatchRepository
	ledgerRepo repository.LedgerRepository
	consumers  ConsumerStore
	events     event.Publisher
	locks      *lock.Keyed
	log        *logger.Logger
}

// NewReservationUseCase construye el motor de reservas.
func NewReservationUseCase(
	txRunner TxRunner,
	itemRepo repository.ItemRepository,
	batchRepo repository.BatchRepository,
	ledgerRepo repository.LedgerRepository,
	consumers ConsumerStore,
	events event.Publisher,
	locks *lock.Keyed,
	log *logger.Logger,
) *ReservationUseCase {
	return &ReservationUseCase{
		txRunner:   txRunner,
		itemRepo:   itemRepo,
		batchRepo:  batchRepo,
		ledgerRepo: ledgerRepo,
		consumers:  consumers,
		events:     events,
		locks:      locks,
		log:        log.Component("reservation"),
	}
}

// ReserveInput entrada para reservar stock contra una orden de trabajo.
// Quantity == 0 significa "eliminar la reserva" (delega en Cancel).
// BatchID no vacío fuerza el contrato manual: todo sale de ese lote o falla.
type ReserveInput struct {
	ItemID      string
	Quantity    decimal.Decimal
	ReferenceID string
	Method      string // allocation.MethodFIFO | MethodFEFO | MethodManual
	BatchID     string
	UserID      string
}

// ReserveResult resultado estructurado de una reserva. La reserva parcial es un
// resultado de primera clase, no un error: el caller decide cómo reaccionar
// (ej. encolar una reserva sobre orden de compra).
type ReserveResult struct {
	Success           bool                    `json:"success"`
	Message           string                  `json:"message"`
	IsPartial         bool                    `json:"is_partial"`
	RequestedQuantity decimal.Decimal         `json:"requested_quantity"`
	ReservedQuantity  decimal.Decimal         `json:"reserved_quantity"`
	Allocations       []allocation.Allocation `json:"allocations"`
}

// Reserve implementa la reserva de stock:
//  1. concilia BookedQuantity desde el libro (advisory: un fallo solo se registra),
//  2. calcula disponibilidad efectiva (físico − reservado),
//  3. lote explícito: todo de la porción libre de ese lote o InsufficientQuantity,
//     sin fallback parcial,
//  4. automático: reserva parcial si no alcanza (NoStockAvailable si no hay nada),
//  5. ordena la porción libre de los lotes elegibles por política y consume
//     codiciosamente,
//  6. reservas existentes del mismo (lote, referencia) se actualizan de forma aditiva,
//  7. commit atómico: entradas booking + incremento de BookedQuantity. La cantidad
//     física del lote no se toca: eso ocurre en la salida (ISSUE), no en la reserva.
//
// Un artículo inexistente devuelve {Success,false} sin error: los callers pueden
// referenciar artículos borrados concurrentemente.
func (uc *ReservationUseCase) Reserve(ctx context.Context, in ReserveInput) (*ReserveResult, error) {
	if in.ItemID == "" {
		return nil, domain.NewValidationError("itemId", "requerido")
	}
	if in.ReferenceID == "" {
		return nil, domain.NewValidationError("referenceId", "requerido")
	}
	if in.Quantity.IsNegative() {
		return nil, domain.NewValidationError("quantity", "no puede ser negativa")
	}
	if in.Quantity.IsZero() {
		// Cantidad cero = eliminar la reserva existente
		cancel, err := uc.Cancel(ctx, in.ItemID, in.ReferenceID, in.UserID)
		if err != nil {
			return nil, err
		}
		return &ReserveResult{Success: cancel.Success, Message: cancel.Message}, nil
	}
	method := in.Method
	if in.BatchID != "" {
		method = allocation.MethodManual
	}
	if method == "" {
		method = allocation.MethodFIFO
	}
	if !allocation.ValidMethod(method) {
		return nil, domain.NewValidationError("method", "debe ser FIFO, FEFO o MANUAL")
	}
	if method == allocation.MethodManual && in.BatchID == "" {
		return nil, domain.NewValidationError("batchId", "requerido para selección manual")
	}

	uc.locks.Lock(in.ItemID)
	defer uc.locks.Unlock(in.ItemID)

	item, err := uc.itemRepo.GetByID(in.ItemID)
	if err != nil {
		return nil, fmt.Errorf("cargar artículo: %w", err)
	}
	if item == nil {
		// Fallo blando: el artículo pudo ser borrado por otro caller
		return &ReserveResult{Success: false, Message: "artículo no encontrado"}, nil
	}

	// Pase de Conciliación: autorrepara la deriva dejada por fallos parciales previos.
	// Advisory: si falla, se registra y se continúa con el valor cacheado.
	item.BookedQuantity = uc.ReconcileBookedQuantity(ctx, in.ItemID)

	batches, err := uc.batchRepo.ListByItem(in.ItemID)
	if err != nil {
		return nil, fmt.Errorf("cargar lotes: %w", err)
	}

	availablePhysical := decimal.Zero
	for _, b := range batches {
		availablePhysical = availablePhysical.Add(b.Quantity)
	}
	effectivelyAvailable := availablePhysical.Sub(item.BookedQuantity)

	var allocs []allocation.Allocation
	target := in.Quantity
	isPartial := false

	// La selección (manual o automática) solo puede tomar de la porción aún no
	// reservada de cada lote; de lo contrario, reservas repetidas sobre el mismo
	// lote dejarían BookedQuantity por encima del físico.
	bookings, err := uc.ledgerRepo.ListBookingsByItem(in.ItemID)
	if err != nil {
		return nil, fmt.Errorf("cargar reservas: %w", err)
	}
	reservable := reservableBatches(batches, bookings)

	if method == allocation.MethodManual {
		// Contrato manual: la reserva sale completa de la porción libre del lote
		// indicado o falla.
		batch := findBatch(reservable, in.BatchID)
		if batch == nil {
			return nil, domain.ErrNotFound
		}
		allocs, err = allocation.SelectFromBatch(batch, target)
		if err != nil {
			return nil, err
		}
	} else {
		if effectivelyAvailable.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrNoStockAvailable
		}
		if effectivelyAvailable.LessThan(in.Quantity) {
			// Reserva parcial en vez de fallo: el caller recibe cantidades y decide.
			target = effectivelyAvailable
			isPartial = true
		}
		sorted := allocation.Sort(reservable, method)
		allocs = allocation.Select(sorted, target)
	}

	total := allocation.Total(allocs)
	now := time.Now()

	err = uc.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
	) error {
		existing, err := ledgerRepo.ListBookingsByItem(in.ItemID)
		if err != nil {
			return err
		}
		var created []*entity.LedgerEntry
		for _, alloc := range allocs {
			if prev := findActiveBooking(existing, alloc.BatchID, in.ReferenceID); prev != nil {
				// Ya hay reserva para (lote, referencia): actualización aditiva, sin duplicar
				prev.Quantity = prev.Quantity.Add(alloc.Quantity)
				if err := ledgerRepo.UpdateBooking(prev); err != nil {
					return err
				}
				continue
			}
			created = append(created, &entity.LedgerEntry{
				ID:          uuid.New().String(),
				ItemID:      in.ItemID,
				BatchID:     alloc.BatchID,
				BatchNumber: alloc.BatchNumber,
				ReferenceID: in.ReferenceID,
				Type:        entity.LedgerTypeBooking,
				Quantity:    alloc.Quantity,
				Status:      entity.BookingStatusActive,
				Reference:   in.ReferenceID,
				CreatedAt:   now,
				CreatedBy:   in.UserID,
			})
		}
		if len(created) > 0 {
			if err := ledgerRepo.CreateAll(created); err != nil {
				return err
			}
		}
		current, err := itemRepo.GetForUpdate(in.ItemID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		return itemRepo.UpdateBookedQuantity(in.ItemID, current.BookedQuantity.Add(total))
	})
	if err != nil {
		return nil, err
	}

	uc.events.Publish(event.InventoryUpdated{
		ItemID:     in.ItemID,
		Action:     event.ActionBooking,
		Quantity:   &total,
		OccurredAt: now,
	})
	// Snapshot del consumidor: colaborador externo, fallo no fatal
	for _, alloc := range allocs {
		if err := uc.consumers.OnReservationChanged(ctx, in.ReferenceID, in.ItemID, alloc.BatchID, alloc.Quantity, alloc.BatchNumber); err != nil {
			uc.log.Warn().Err(err).
				Str("reference_id", in.ReferenceID).
				Str("batch_id", alloc.BatchID).
				Msg("actualización de snapshot del consumidor falló")
		}
	}

	msg := "reserva completa"
	if isPartial {
		msg = fmt.Sprintf("reserva parcial: %s de %s", total, in.Quantity)
	}
	return &ReserveResult{
		Success:           true,
		Message:           msg,
		IsPartial:         isPartial,
		RequestedQuantity: in.Quantity,
		ReservedQuantity:  total,
		Allocations:       allocs,
	}, nil
}

// ReferenceBooking reserva efectiva de una referencia consumidora sobre un lote.
type ReferenceBooking struct {
	ItemID      string          `json:"item_id"`
	BatchID     string          `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ActiveByReference devuelve las reservas efectivas de una referencia consumidora,
// neteadas por lote a partir del libro.
func (uc *ReservationUseCase) ActiveByReference(ctx context.Context, referenceID string) ([]ReferenceBooking, error) {
	if referenceID == "" {
		return nil, domain.NewValidationError("referenceId", "requerido")
	}
	entries, err := uc.ledgerRepo.ListByReference(referenceID)
	if err != nil {
		return nil, fmt.Errorf("cargar reservas: %w", err)
	}
	byBatch := make(map[string]*entity.LedgerEntry)
	for _, e := range entries {
		if e.IsActiveBooking() {
			if _, ok := byBatch[e.BatchID]; !ok {
				byBatch[e.BatchID] = e
			}
		}
	}
	out := make([]ReferenceBooking, 0, len(byBatch))
	for key, qty := range entity.EffectiveBooked(entries) {
		src, ok := byBatch[key.BatchID]
		if !ok {
			continue
		}
		out = append(out, ReferenceBooking{
			ItemID:      src.ItemID,
			BatchID:     key.BatchID,
			BatchNumber: src.BatchNumber,
			Quantity:    qty,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out, nil
}

// findActiveBooking busca la reserva activa de un par (lote, referencia).
func findActiveBooking(entries []*entity.LedgerEntry, batchID, referenceID string) *entity.LedgerEntry {
	for _, e := range entries {
		if e.IsActiveBooking() && e.BatchID == batchID && e.ReferenceID == referenceID {
			return e
		}
	}
	return nil
}

// reservableBatches devuelve copias de los lotes cuya cantidad es la porción aún
// no reservada (físico − reservas efectivas del lote), con piso en cero.
func reservableBatches(batches []*entity.Batch, bookings []*entity.LedgerEntry) []*entity.Batch {
	bookedByBatch := make(map[string]decimal.Decimal)
	for key, qty := range entity.EffectiveBooked(bookings) {
		bookedByBatch[key.BatchID] = bookedByBatch[key.BatchID].Add(qty)
	}
	out := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		cp := *b
		cp.Quantity = b.Quantity.Sub(bookedByBatch[b.ID])
		if cp.Quantity.IsNegative() {
			cp.Quantity = decimal.Zero
		}
		out = append(out, &cp)
	}
	return out
}

func findBatch(batches []*entity.Batch, id string) *entity.Batch {
	for _, b := range batches {
		if b.ID == id {
			return b
		}
	}
	return nil
}
