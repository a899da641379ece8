package movement_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/application/movement"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/allocation"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/events"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Reservas-api/pkg/lock"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

type harness struct {
	uc      *movement.MovementUseCase
	items   *memory.ItemRepo
	batches *memory.BatchRepo
	ledger  *memory.LedgerRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	items := memory.NewItemRepository()
	batches := memory.NewBatchRepository()
	ledger := memory.NewLedgerRepository()
	st := memory.NewStocktakingRepository()
	tx := memory.NewTxRunner(ledger, batches, items, st)
	uc := movement.NewMovementUseCase(
		tx, items, batches, ledger,
		events.NewBus(logger.Nop()), lock.NewKeyed(), logger.Nop(),
	)
	return &harness{uc: uc, items: items, batches: batches, ledger: ledger}
}

func (h *harness) seedItem(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, h.items.Create(&entity.Item{
		ID:        id,
		Name:      "Lámina de acero",
		Unit:      "und",
		UnitPrice: decimal.NewFromInt(40),
		CreatedAt: time.Now(),
	}))
}

func (h *harness) seedBatch(t *testing.T, id, itemID string, qty int64, received time.Time) {
	t.Helper()
	require.NoError(t, h.batches.Create(&entity.Batch{
		ID:           id,
		ItemID:       itemID,
		BatchNumber:  "L-" + id,
		Quantity:     decimal.NewFromInt(qty),
		UnitPrice:    decimal.NewFromInt(40),
		ReceivedDate: received,
	}))
	item, err := h.items.GetByID(itemID)
	require.NoError(t, err)
	require.NoError(t, h.items.UpdateQuantity(itemID, item.Quantity.Add(decimal.NewFromInt(qty))))
}

func eqDec(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.NewFromInt(expected)),
		"esperado %d, obtuvo %s", expected, actual)
}

// ──────────────────────────────────────────────────────────────────────────────
// Receive
// ──────────────────────────────────────────────────────────────────────────────

// Una recepción crea el lote, escribe la entrada RECEIVE y sube el agregado.
func TestReceive_CreaLoteYActualizaAgregado(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")

	batch, err := h.uc.Receive(context.Background(), movement.ReceiveInput{
		ItemID:      "item-1",
		BatchNumber: "L-2026-001",
		Quantity:    decimal.NewFromInt(12),
		UnitPrice:   decimal.NewFromInt(40),
		Reference:   "oc-77",
		UserID:      "u1",
	})

	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.NotEmpty(t, batch.ID)
	assert.False(t, batch.ReceivedDate.IsZero(), "sin fecha explícita se usa ahora")

	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 12, item.Quantity)

	entries, err := h.ledger.ListByItem("item-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entity.LedgerTypeReceive, entries[0].Type)
	assert.Equal(t, "oc-77", entries[0].Reference)
}

func TestReceive_ValidaEntrada(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")

	var vErr *domain.ValidationError
	_, err := h.uc.Receive(context.Background(), movement.ReceiveInput{
		ItemID: "item-1", Quantity: decimal.Zero, UserID: "u1",
	})
	assert.ErrorAs(t, err, &vErr)

	_, err = h.uc.Receive(context.Background(), movement.ReceiveInput{
		ItemID: "no-existe", Quantity: decimal.NewFromInt(1), UserID: "u1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Issue
// ──────────────────────────────────────────────────────────────────────────────

// La salida FIFO consume el lote más antiguo primero y deja una entrada ISSUE
// por cada lote tocado.
func TestIssue_FIFOConsumeElMasAntiguoPrimero(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	h.seedBatch(t, "viejo", "item-1", 5, base)
	h.seedBatch(t, "nuevo", "item-1", 5, base.AddDate(0, 1, 0))

	err := h.uc.Issue(context.Background(), movement.IssueInput{
		ItemID:   "item-1",
		Quantity: decimal.NewFromInt(7),
		Method:   allocation.MethodFIFO,
		UserID:   "u1",
	})
	require.NoError(t, err)

	viejo, err := h.batches.GetByID("viejo")
	require.NoError(t, err)
	eqDec(t, 0, viejo.Quantity)
	nuevo, err := h.batches.GetByID("nuevo")
	require.NoError(t, err)
	eqDec(t, 3, nuevo.Quantity)

	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 3, item.Quantity)

	entries, err := h.ledger.ListByItem("item-1")
	require.NoError(t, err)
	var issues int
	for _, e := range entries {
		if e.Type == entity.LedgerTypeIssue {
			issues++
		}
	}
	assert.Equal(t, 2, issues, "una entrada ISSUE por lote tocado")
}

// La salida no puede comerse el stock reservado por otras órdenes, pero la
// orden consumidora sí puede consumir su propia reserva.
func TestIssue_RespetaReservasDeOtrasOrdenes(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "b1", "item-1", 10, time.Now())
	require.NoError(t, h.ledger.Create(&entity.LedgerEntry{
		ID:          "res-1",
		ItemID:      "item-1",
		BatchID:     "b1",
		BatchNumber: "L-b1",
		ReferenceID: "orden-1",
		Type:        entity.LedgerTypeBooking,
		Quantity:    decimal.NewFromInt(6),
		Status:      entity.BookingStatusActive,
		CreatedAt:   time.Now(),
		CreatedBy:   "u1",
	}))

	// Sin referencia: solo 4 unidades están libres
	err := h.uc.Issue(context.Background(), movement.IssueInput{
		ItemID:   "item-1",
		Quantity: decimal.NewFromInt(5),
		UserID:   "u1",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// La propia orden-1 consume contra su reserva
	err = h.uc.Issue(context.Background(), movement.IssueInput{
		ItemID:      "item-1",
		Quantity:    decimal.NewFromInt(5),
		ReferenceID: "orden-1",
		UserID:      "u1",
	})
	require.NoError(t, err)

	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 5, item.Quantity)
}

// Consumir contra la propia reserva la cumple: la salida compensa la reserva
// en el mismo commit y el agregado BookedQuantity baja en lo consumido. Sin
// esto el artículo quedaría con más reservado que existente para siempre.
func TestIssue_CompensaLaReservaConsumida(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "b1", "item-1", 10, time.Now())
	require.NoError(t, h.ledger.Create(&entity.LedgerEntry{
		ID:          "res-1",
		ItemID:      "item-1",
		BatchID:     "b1",
		BatchNumber: "L-b1",
		ReferenceID: "orden-1",
		Type:        entity.LedgerTypeBooking,
		Quantity:    decimal.NewFromInt(5),
		Status:      entity.BookingStatusActive,
		CreatedAt:   time.Now(),
		CreatedBy:   "u1",
	}))
	require.NoError(t, h.items.UpdateBookedQuantity("item-1", decimal.NewFromInt(5)))

	err := h.uc.Issue(context.Background(), movement.IssueInput{
		ItemID:      "item-1",
		Quantity:    decimal.NewFromInt(10),
		ReferenceID: "orden-1",
		UserID:      "u1",
	})
	require.NoError(t, err)

	// Sin stock ni reserva colgante: ambos agregados quedan en cero
	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 0, item.Quantity)
	eqDec(t, 0, item.BookedQuantity)

	// El libro registra la compensación y el neto de la orden es cero
	entries, err := h.ledger.ListBookingsByItem("item-1")
	require.NoError(t, err)
	var cancelled decimal.Decimal
	for _, e := range entries {
		if e.Type == entity.LedgerTypeBookingCancel && e.ReferenceID == "orden-1" {
			cancelled = cancelled.Add(e.Quantity)
		}
	}
	eqDec(t, 5, cancelled)
	assert.Empty(t, entity.EffectiveBooked(entries))
}

// Una salida menor que la reserva la consume solo en parte: el neto restante
// sigue vivo en el libro.
func TestIssue_ConsumoParcialDeLaReserva(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "b1", "item-1", 10, time.Now())
	require.NoError(t, h.ledger.Create(&entity.LedgerEntry{
		ID:          "res-1",
		ItemID:      "item-1",
		BatchID:     "b1",
		BatchNumber: "L-b1",
		ReferenceID: "orden-1",
		Type:        entity.LedgerTypeBooking,
		Quantity:    decimal.NewFromInt(5),
		Status:      entity.BookingStatusActive,
		CreatedAt:   time.Now(),
		CreatedBy:   "u1",
	}))
	require.NoError(t, h.items.UpdateBookedQuantity("item-1", decimal.NewFromInt(5)))

	err := h.uc.Issue(context.Background(), movement.IssueInput{
		ItemID:      "item-1",
		Quantity:    decimal.NewFromInt(3),
		ReferenceID: "orden-1",
		UserID:      "u1",
	})
	require.NoError(t, err)

	item, err := h.items.GetByID("item-1")
	require.NoError(t, err)
	eqDec(t, 7, item.Quantity)
	eqDec(t, 2, item.BookedQuantity)

	entries, err := h.ledger.ListBookingsByItem("item-1")
	require.NoError(t, err)
	effective := entity.EffectiveBooked(entries)
	require.Len(t, effective, 1)
	eqDec(t, 2, effective[entity.BookingKey{BatchID: "b1", ReferenceID: "orden-1"}])
}

func TestIssue_StockInsuficiente(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "item-1")
	h.seedBatch(t, "b1", "item-1", 3, time.Now())

	err := h.uc.Issue(context.Background(), movement.IssueInput{
		ItemID:   "item-1",
		Quantity: decimal.NewFromInt(5),
		UserID:   "u1",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Nada se consumió
	b, err := h.batches.GetByID("b1")
	require.NoError(t, err)
	eqDec(t, 3, b.Quantity)
}
