package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/application/transfer"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/events"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Reservas-api/pkg/lock"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Harness
// ──────────────────────────────────────────────────────────────────────────────

type harness struct {
	uc        *transfer.TransferUseCase
	items     *memory.ItemRepo
	batches   *memory.BatchRepo
	ledger    *memory.LedgerRepo
	consumers *memory.ConsumerStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	items := memory.NewItemRepository()
	batches := memory.NewBatchRepository()
	ledger := memory.NewLedgerRepository()
	st := memory.NewStocktakingRepository()
	tx := memory.NewTxRunner(ledger, batches, items, st)
	consumers := memory.NewConsumerStore()
	uc := transfer.NewTransferUseCase(
		tx, items, batches, ledger, consumers,
		events.NewBus(logger.Nop()), lock.NewKeyed(), logger.Nop(),
	)
	return &harness{uc: uc, items: items, batches: batches, ledger: ledger, consumers: consumers}
}

func (h *harness) seedItem(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, h.items.Create(&entity.Item{
		ID:        id,
		Name:      "Rodamiento 6204",
		Unit:      "und",
		UnitPrice: decimal.NewFromInt(25),
		CreatedAt: time.Now(),
	}))
}

func (h *harness) seedBatch(t *testing.T, id, itemID string, qty int64) {
	t.Helper()
	require.NoError(t, h.batches.Create(&entity.Batch{
		ID:           id,
		ItemID:       itemID,
		BatchNumber:  "L-" + id,
		Quantity:     decimal.NewFromInt(qty),
		UnitPrice:    decimal.NewFromInt(25),
		ReceivedDate: time.Now(),
	}))
}

// seedBooking escribe una reserva activa directamente en el libro, con fecha
// controlada para poder afirmar el orden "más antiguas primero".
func (h *harness) seedBooking(t *testing.T, itemID, batchID, referenceID string, qty int64, createdAt time.Time) {
	t.Helper()
	require.NoError(t, h.ledger.Create(&entity.LedgerEntry{
		ID:          uuid.New().String(),
		ItemID:      itemID,
		BatchID:     batchID,
		BatchNumber: "L-" + batchID,
		ReferenceID: referenceID,
		Type:        entity.LedgerTypeBooking,
		Quantity:    decimal.NewFromInt(qty),
		Status:      entity.BookingStatusActive,
		Reference:   referenceID,
		CreatedAt:   createdAt,
		CreatedBy:   "u1",
	}))
}

// effectiveOn netea el libro de un lote por referencia.
func (h *harness) effectiveOn(t *testing.T, batchID string) map[string]decimal.Decimal {
	t.Helper()
	entries, err := h.ledger.ListBookingsByBatch(batchID)
	require.NoError(t, err)
	out := make(map[string]decimal.Decimal)
	for key, qty := range entity.EffectiveBooked(entries) {
		out[key.ReferenceID] = out[key.ReferenceID].Add(qty)
	}
	return out
}

func eqDec(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.NewFromInt(expected)),
		"esperado %d, obtuvo %s", expected, actual)
}

// ──────────────────────────────────────────────────────────────────────────────
// Selección por referencia específica
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_ReferenciaEspecificaMueveCompleta(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	h.seedBooking(t, "item-1", "a", "orden-1", 5, time.Now())
	h.seedBooking(t, "item-1", "a", "orden-2", 3, time.Now())

	result, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a",
		TargetBatchID: "b",
		Selection:     "orden-1",
		Mode:          transfer.ModeFull,
		UserID:        "u1",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Moves, 1)
	assert.Equal(t, "orden-1", result.Moves[0].ReferenceID)
	eqDec(t, 5, result.Moves[0].Quantity)

	// orden-1 quedó re-apuntada; orden-2 no se tocó
	onA := h.effectiveOn(t, "a")
	onB := h.effectiveOn(t, "b")
	assert.NotContains(t, onA, "orden-1")
	eqDec(t, 3, onA["orden-2"])
	eqDec(t, 5, onB["orden-1"])

	// El consumidor recibió el snapshot apuntando al lote destino
	require.Len(t, h.consumers.Snapshots, 1)
	assert.Equal(t, "b", h.consumers.Snapshots[0].BatchID)
}

func TestTransfer_ReferenciaEspecificaParcial(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	h.seedBooking(t, "item-1", "a", "orden-1", 5, time.Now())

	result, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID:    "a",
		TargetBatchID:    "b",
		Selection:        "orden-1",
		Mode:             transfer.ModePartial,
		TransferQuantity: decimal.NewFromInt(2),
		UserID:           "u1",
	})

	require.NoError(t, err)
	require.Len(t, result.Moves, 1)
	eqDec(t, 2, result.Moves[0].Quantity)
	eqDec(t, 3, h.effectiveOn(t, "a")["orden-1"])
	eqDec(t, 2, h.effectiveOn(t, "b")["orden-1"])
}

func TestTransfer_ReferenciaSinReservaActiva(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)

	_, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a",
		TargetBatchID: "b",
		Selection:     "orden-fantasma",
		Mode:          transfer.ModeFull,
		UserID:        "u1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Re-apuntar no rejuvenece la reserva: la entrada creada en el lote destino
// conserva la fecha de la reserva original, de modo que el orden "más antiguas
// primero" (traslados, cancelación por excedente) no cambia por trasladar.
func TestTransfer_ConservaLaAntiguedadDeLaReserva(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	nacimiento := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	h.seedBooking(t, "item-1", "a", "orden-1", 5, nacimiento)

	_, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a",
		TargetBatchID: "b",
		Selection:     "orden-1",
		Mode:          transfer.ModeFull,
		UserID:        "u1",
	})
	require.NoError(t, err)

	entries, err := h.ledger.ListBookingsByBatch("b")
	require.NoError(t, err)
	var moved *entity.LedgerEntry
	for _, e := range entries {
		if e.IsActiveBooking() && e.ReferenceID == "orden-1" {
			moved = e
			break
		}
	}
	require.NotNil(t, moved)
	assert.True(t, moved.CreatedAt.Equal(nacimiento),
		"esperaba la fecha original %s, obtuvo %s", nacimiento, moved.CreatedAt)
}

// ──────────────────────────────────────────────────────────────────────────────
// Selección "free"
// ──────────────────────────────────────────────────────────────────────────────

// En full el lote origen se retira completo: toda reserva viaja, las más
// antiguas primero.
func TestTransfer_LibreFullMueveTodasLasReservas(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	h.seedBooking(t, "item-1", "a", "orden-2", 3, base.Add(time.Hour))
	h.seedBooking(t, "item-1", "a", "orden-1", 4, base)

	result, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a",
		TargetBatchID: "b",
		Selection:     transfer.SelectionFree,
		Mode:          transfer.ModeFull,
		UserID:        "u1",
	})

	require.NoError(t, err)
	require.Len(t, result.Moves, 2)
	assert.Equal(t, "orden-1", result.Moves[0].ReferenceID, "la más antigua primero")
	assert.Equal(t, "orden-2", result.Moves[1].ReferenceID)
	assert.Empty(t, h.effectiveOn(t, "a"))
	onB := h.effectiveOn(t, "b")
	eqDec(t, 4, onB["orden-1"])
	eqDec(t, 3, onB["orden-2"])
}

// Un parcial que cabe en la porción libre no re-apunta ninguna reserva.
func TestTransfer_LibreParcialDentroDeLaPorcionLibre(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	h.seedBooking(t, "item-1", "a", "orden-1", 4, time.Now())

	result, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID:    "a",
		TargetBatchID:    "b",
		Selection:        transfer.SelectionFree,
		Mode:             transfer.ModePartial,
		TransferQuantity: decimal.NewFromInt(6), // libre = 10 - 4 = 6
		UserID:           "u1",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Moves)
	eqDec(t, 4, h.effectiveOn(t, "a")["orden-1"])
}

// Cuando el parcial excede la porción libre, solo el excedente re-apunta
// reservas, tomando de las más antiguas primero (parcial en la última).
func TestTransfer_LibreParcialExcedenteMueveLasMasAntiguas(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	h.seedBooking(t, "item-1", "a", "orden-A", 4, base)
	h.seedBooking(t, "item-1", "a", "orden-B", 3, base.Add(time.Hour))
	// libre = 10 - 7 = 3; trasladar 5 obliga a mover 2 de orden-A

	result, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID:    "a",
		TargetBatchID:    "b",
		Selection:        transfer.SelectionFree,
		Mode:             transfer.ModePartial,
		TransferQuantity: decimal.NewFromInt(5),
		UserID:           "u1",
	})

	require.NoError(t, err)
	require.Len(t, result.Moves, 1)
	assert.Equal(t, "orden-A", result.Moves[0].ReferenceID)
	eqDec(t, 2, result.Moves[0].Quantity)

	onA := h.effectiveOn(t, "a")
	eqDec(t, 2, onA["orden-A"])
	eqDec(t, 3, onA["orden-B"])
	eqDec(t, 2, h.effectiveOn(t, "b")["orden-A"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Éxito parcial y validación
// ──────────────────────────────────────────────────────────────────────────────

// Un fallo del snapshot del consumidor no revierte el re-apuntado ya confirmado:
// se reporta en Errors y el traslado sigue siendo exitoso.
func TestTransfer_FalloDeSnapshotNoRevierte(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	h.seedBooking(t, "item-1", "a", "orden-1", 5, time.Now())
	h.consumers.FailWith = errors.New("work order bloqueada")

	result, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a",
		TargetBatchID: "b",
		Selection:     "orden-1",
		Mode:          transfer.ModeFull,
		UserID:        "u1",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Moves, 1)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "orden-1")

	// El libro refleja el traslado a pesar del error de snapshot
	eqDec(t, 5, h.effectiveOn(t, "b")["orden-1"])
}

// El re-apuntado conserva el total reservado del artículo: solo cambia el lote.
func TestTransfer_ConservaElTotalReservado(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-1", 10)
	h.seedBooking(t, "item-1", "a", "orden-1", 4, time.Now())
	h.seedBooking(t, "item-1", "b", "orden-1", 2, time.Now())

	_, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a",
		TargetBatchID: "b",
		Selection:     "orden-1",
		Mode:          transfer.ModeMerge,
		UserID:        "u1",
	})
	require.NoError(t, err)

	// La reserva existente en destino se acumula en una única entrada
	entries, err := h.ledger.ListBookingsByBatch("b")
	require.NoError(t, err)
	var active []*entity.LedgerEntry
	for _, e := range entries {
		if e.IsActiveBooking() {
			active = append(active, e)
		}
	}
	require.Len(t, active, 1)
	eqDec(t, 6, active[0].Quantity)

	total := decimal.Zero
	for _, qty := range h.effectiveOn(t, "b") {
		total = total.Add(qty)
	}
	eqDec(t, 6, total)
	assert.Empty(t, h.effectiveOn(t, "a"))
}

func TestTransfer_ValidaEntrada(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedItem(t, "item-2")
	h.seedBatch(t, "a", "item-1", 10)
	h.seedBatch(t, "b", "item-2", 10)

	_, err := h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a", TargetBatchID: "b", Selection: "orden-1", Mode: "teleport", UserID: "u1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransfer)

	_, err = h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a", TargetBatchID: "a", Selection: "orden-1", Mode: transfer.ModeFull, UserID: "u1",
	})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)

	// Lotes de artículos distintos no se trasladan entre sí
	_, err = h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a", TargetBatchID: "b", Selection: "orden-1", Mode: transfer.ModeFull, UserID: "u1",
	})
	assert.ErrorAs(t, err, &vErr)

	_, err = h.uc.TransferBatch(context.Background(), transfer.TransferInput{
		SourceBatchID: "a", TargetBatchID: "no-existe", Selection: "orden-1", Mode: transfer.ModeFull, UserID: "u1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
