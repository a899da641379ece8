package stocktaking_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/application/stocktaking"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/events"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Harness
// ──────────────────────────────────────────────────────────────────────────────

type harness struct {
	uc        *stocktaking.StocktakingUseCase
	items     *memory.ItemRepo
	batches   *memory.BatchRepo
	ledger    *memory.LedgerRepo
	counts    *memory.StocktakingRepo
	consumers *memory.ConsumerStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	items := memory.NewItemRepository()
	batches := memory.NewBatchRepository()
	ledger := memory.NewLedgerRepository()
	counts := memory.NewStocktakingRepository()
	tx := memory.NewTxRunner(ledger, batches, items, counts)
	consumers := memory.NewConsumerStore()
	uc := stocktaking.NewStocktakingUseCase(
		tx, counts, ledger, consumers,
		events.NewBus(logger.Nop()), logger.Nop(),
	)
	return &harness{uc: uc, items: items, batches: batches, ledger: ledger, counts: counts, consumers: consumers}
}

func (h *harness) seedItem(t *testing.T, id string, qty, booked int64) {
	t.Helper()
	require.NoError(t, h.items.Create(&entity.Item{
		ID:             id,
		Name:           "Chapa galvanizada",
		Unit:           "und",
		UnitPrice:      decimal.NewFromInt(10),
		Quantity:       decimal.NewFromInt(qty),
		BookedQuantity: decimal.NewFromInt(booked),
		CreatedAt:      time.Now(),
	}))
}

func (h *harness) seedBatch(t *testing.T, id, itemID string, qty int64) {
	t.Helper()
	require.NoError(t, h.batches.Create(&entity.Batch{
		ID:           id,
		ItemID:       itemID,
		BatchNumber:  "L-" + id,
		Quantity:     decimal.NewFromInt(qty),
		UnitPrice:    decimal.NewFromInt(10),
		ReceivedDate: time.Now(),
	}))
}

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

func (h *harness) seedCount(t *testing.T, id, status string, lines ...entity.StocktakingItem) {
	t.Helper()
	require.NoError(t, h.counts.Create(&entity.Stocktaking{
		ID:        id,
		Status:    status,
		Items:     lines,
		CreatedAt: time.Now(),
		CreatedBy: "u1",
	}))
}

func line(itemID, batchID string, system, counted int64) entity.StocktakingItem {
	return entity.StocktakingItem{
		ItemID:          itemID,
		BatchID:         batchID,
		Name:            "Chapa galvanizada",
		Category:        "Materia prima",
		LotNumber:       "L-" + batchID,
		SystemQuantity:  decimal.NewFromInt(system),
		CountedQuantity: decimal.NewFromInt(counted),
		UnitPrice:       decimal.NewFromInt(10),
		Accepted:        true,
	}
}

func eqDec(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.NewFromInt(expected)),
		"esperado %d, obtuvo %s", expected, actual)
}

// ──────────────────────────────────────────────────────────────────────────────
// Complete
// ──────────────────────────────────────────────────────────────────────────────

// Cierre con ajuste: las discrepancias generan entradas de ajuste, el lote queda
// en la cantidad contada y el agregado del artículo absorbe el delta.
func TestComplete_ConAjusteCorrigeLotesYAgregados(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 18, 0)
	h.seedBatch(t, "b1", "item-1", 10)
	h.seedBatch(t, "b2", "item-1", 8)
	h.seedCount(t, "st-1", entity.StocktakingInProgress,
		line("item-1", "b1", 10, 7), // faltante de 3
		line("item-1", "b2", 8, 8),  // cuadra
	)

	result, err := h.uc.Complete(context.Background(), "st-1", true, "u1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ItemsCount)
	assert.Equal(t, 1, result.DiscrepanciesCount)
	eqDec(t, 150, result.TotalValue) // (7 + 8) * 10

	batch, err := h.batches.GetByID("b1")
	require.NoError(t, err)
	eqDec(t, 7, batch.Quantity)

	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 15, item.Quantity) // 18 - 3

	// Una entrada adjustment-remove por el faltante de b1
	entries, err := h.ledger.ListByItem("item-1")
	require.NoError(t, err)
	var removes int
	for _, e := range entries {
		if e.Type == entity.LedgerTypeAdjustmentRemove {
			removes++
			eqDec(t, 3, e.Quantity)
		}
	}
	assert.Equal(t, 1, removes)

	st, err := h.counts.GetByID("st-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakingCompleted, st.Status)
	require.NotNil(t, st.CompletedAt)
}

// Las reservas que el stock contado ya no cubre se cancelan por el exceso
// exacto, las más antiguas primero (parcial en la última tomada) — incluso sin
// ajuste de inventario.
func TestComplete_CancelaSoloElExcesoDeReservas(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 10, 7)
	h.seedBatch(t, "b1", "item-1", 10)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	h.seedBooking(t, "item-1", "b1", "orden-vieja", 4, base)
	h.seedBooking(t, "item-1", "b1", "orden-nueva", 3, base.Add(time.Hour))
	// contado 4: exceso = 7 - 4 = 3 -> cancelar 3 de orden-vieja, orden-nueva intacta
	h.seedCount(t, "st-1", entity.StocktakingInProgress, line("item-1", "b1", 10, 4))

	result, err := h.uc.Complete(context.Background(), "st-1", false, "u1")
	require.NoError(t, err)
	require.Len(t, result.CancelledReservations, 1)
	assert.Equal(t, "orden-vieja", result.CancelledReservations[0].ReferenceID)
	eqDec(t, 3, result.CancelledReservations[0].Quantity)

	entries, err := h.ledger.ListBookingsByBatch("b1")
	require.NoError(t, err)
	effective := entity.EffectiveBooked(entries)
	remaining := decimal.Zero
	for _, qty := range effective {
		remaining = remaining.Add(qty)
	}
	eqDec(t, 4, remaining) // 1 de orden-vieja + 3 de orden-nueva

	// Sin ajuste, la cantidad física del lote no se toca
	batch, err := h.batches.GetByID("b1")
	require.NoError(t, err)
	eqDec(t, 10, batch.Quantity)

	// El agregado de reservas absorbe la cancelación
	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 4, item.BookedQuantity)

	// El consumidor recibe el snapshot con la cantidad restante
	require.Len(t, h.consumers.Snapshots, 1)
	assert.Equal(t, "orden-vieja", h.consumers.Snapshots[0].ReferenceID)
	eqDec(t, 1, h.consumers.Snapshots[0].Quantity)
}

func TestComplete_SinDiscrepanciasNiExcesoEsNeutro(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 10, 2)
	h.seedBatch(t, "b1", "item-1", 10)
	h.seedBooking(t, "item-1", "b1", "orden-1", 2, time.Now())
	h.seedCount(t, "st-1", entity.StocktakingOpen, line("item-1", "b1", 10, 10))

	result, err := h.uc.Complete(context.Background(), "st-1", true, "u1")
	require.NoError(t, err)
	assert.Zero(t, result.DiscrepanciesCount)
	assert.Empty(t, result.CancelledReservations)

	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 10, item.Quantity)
	eqDec(t, 2, item.BookedQuantity)
}

func TestComplete_RechazaEstadosInvalidos(t *testing.T) {
	h := newHarness(t)
	h.seedCount(t, "st-done", entity.StocktakingCompleted)
	h.seedCount(t, "st-cancelled", entity.StocktakingCancelled)

	var stateErr *domain.InvalidStateTransitionError

	_, err := h.uc.Complete(context.Background(), "st-done", false, "u1")
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.StocktakingCompleted, stateErr.From)

	_, err = h.uc.Complete(context.Background(), "st-cancelled", false, "u1")
	assert.ErrorAs(t, err, &stateErr)

	_, err = h.uc.Complete(context.Background(), "no-existe", false, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reapertura y corrección
// ──────────────────────────────────────────────────────────────────────────────

func TestReopen_SoloDesdeCompletadoYPreservaCompletedAt(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1", 10, 0)
	h.seedBatch(t, "b1", "item-1", 10)
	h.seedCount(t, "st-1", entity.StocktakingInProgress, line("item-1", "b1", 10, 10))

	// Reabrir un conteo aún abierto es inválido
	err := h.uc.ReopenForCorrection(context.Background(), "st-1", "u1")
	var stateErr *domain.InvalidStateTransitionError
	require.ErrorAs(t, err, &stateErr)

	_, err = h.uc.Complete(context.Background(), "st-1", false, "u1")
	require.NoError(t, err)
	st, err := h.counts.GetByID("st-1")
	require.NoError(t, err)
	firstCompletedAt := *st.CompletedAt

	require.NoError(t, h.uc.ReopenForCorrection(context.Background(), "st-1", "u1"))
	st, err = h.counts.GetByID("st-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakingInCorrection, st.Status)

	// CompleteCorrected exige In correction y conserva la fecha original
	_, err = h.uc.CompleteCorrected(context.Background(), "st-1", false, "u1")
	require.NoError(t, err)
	st, err = h.counts.GetByID("st-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakingCompleted, st.Status)
	require.NotNil(t, st.CompletedAt)
	assert.True(t, st.CompletedAt.Equal(firstCompletedAt), "la corrección no reescribe CompletedAt")

	// CompleteCorrected fuera de In correction es inválido
	_, err = h.uc.CompleteCorrected(context.Background(), "st-1", false, "u1")
	assert.ErrorAs(t, err, &stateErr)
}

func TestCancel_SoloConteosNoCompletados(t *testing.T) {
	h := newHarness(t)
	h.seedCount(t, "st-open", entity.StocktakingOpen)
	h.seedCount(t, "st-done", entity.StocktakingCompleted)

	require.NoError(t, h.uc.Cancel(context.Background(), "st-open", "u1"))
	st, err := h.counts.GetByID("st-open")
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakingCancelled, st.Status)

	var stateErr *domain.InvalidStateTransitionError
	err = h.uc.Cancel(context.Background(), "st-done", "u1")
	assert.ErrorAs(t, err, &stateErr)
}

// ──────────────────────────────────────────────────────────────────────────────
// Informe
// ──────────────────────────────────────────────────────────────────────────────

func TestBuildReport_ClasificaYValora(t *testing.T) {
	h := newHarness(t)
	h.seedCount(t, "st-1", entity.StocktakingCompleted,
		line("item-1", "b1", 10, 10), // cuadra
		line("item-2", "b2", 5, 8),   // sobrante de 3
		line("item-3", "b3", 6, 2),   // faltante de 4
	)

	report, err := h.uc.BuildReport(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalItems)
	assert.Equal(t, 1, report.MatchingItems)
	assert.Equal(t, 1, report.SurplusItems)
	assert.Equal(t, 1, report.DeficitItems)
	eqDec(t, 210, report.TotalSystemValue)     // (10+5+6) * 10
	eqDec(t, 200, report.TotalCountedValue)    // (10+8+2) * 10
	eqDec(t, -10, report.TotalDifferenceValue) // 200 - 210
	require.Len(t, report.Rows, 3)
	eqDec(t, -4, report.Rows[2].Discrepancy)

	_, err = h.uc.BuildReport(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWriteCSV_CabeceraYFilas(t *testing.T) {
	h := newHarness(t)
	h.seedCount(t, "st-1", entity.StocktakingCompleted,
		line("item-1", "b1", 5, 3),
	)
	report, err := h.uc.BuildReport(context.Background(), "st-1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, stocktaking.WriteCSV(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "name,category,lot,expiry,system_qty,counted_qty,discrepancy,value_diff")
	assert.Contains(t, out, "Chapa galvanizada,Materia prima,L-b1,,5,3,-2,-20")
}
