package allocation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/allocation"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func mkBatch(id string, qty int64, expiry *time.Time, received time.Time) *entity.Batch {
	return &entity.Batch{
		ID:           id,
		ItemID:       "item-1",
		BatchNumber:  "L-" + id,
		Quantity:     decimal.NewFromInt(qty),
		UnitPrice:    decimal.NewFromInt(10),
		ExpiryDate:   expiry,
		ReceivedDate: received,
	}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// ──────────────────────────────────────────────────────────────────────────────
// Sort
// ──────────────────────────────────────────────────────────────────────────────

// FEFO: vencimiento ascendente; los lotes sin vencimiento van al final.
func TestSortFEFO_VencimientoAscendenteSinFechaAlFinal(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	batches := []*entity.Batch{
		mkBatch("sin-fecha", 5, nil, base),
		mkBatch("vence-tarde", 5, datePtr(2026, 12, 1), base.AddDate(0, 0, 1)),
		mkBatch("vence-pronto", 5, datePtr(2026, 3, 1), base.AddDate(0, 0, 2)),
	}

	sorted := allocation.Sort(batches, allocation.MethodFEFO)

	require.Len(t, sorted, 3)
	assert.Equal(t, "vence-pronto", sorted[0].ID)
	assert.Equal(t, "vence-tarde", sorted[1].ID)
	assert.Equal(t, "sin-fecha", sorted[2].ID)
}

// FIFO: fecha de recepción ascendente, sin importar vencimientos.
func TestSortFIFO_RecepcionAscendente(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	batches := []*entity.Batch{
		mkBatch("reciente", 5, datePtr(2026, 2, 1), base.AddDate(0, 0, 10)),
		mkBatch("antiguo", 5, nil, base),
	}

	sorted := allocation.Sort(batches, allocation.MethodFIFO)

	require.Len(t, sorted, 2)
	assert.Equal(t, "antiguo", sorted[0].ID)
	assert.Equal(t, "reciente", sorted[1].ID)
}

// Los lotes en cero no son elegibles para asignación.
func TestSort_ExcluyeLotesEnCero(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	batches := []*entity.Batch{
		mkBatch("vacio", 0, nil, base),
		mkBatch("con-stock", 5, nil, base),
	}

	sorted := allocation.Sort(batches, allocation.MethodFIFO)

	require.Len(t, sorted, 1)
	assert.Equal(t, "con-stock", sorted[0].ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Select
// ──────────────────────────────────────────────────────────────────────────────

// Tres lotes de 5 con vencimientos escalonados; reservar 7 debe tomar 5 del que
// vence primero y 2 del siguiente sin tocar el tercero.
func TestSelect_FEFO_TresLotesDeCinco_Reserva7(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	batches := []*entity.Batch{
		mkBatch("c", 5, datePtr(2026, 9, 1), base),
		mkBatch("a", 5, datePtr(2026, 3, 1), base),
		mkBatch("b", 5, datePtr(2026, 6, 1), base),
	}

	sorted := allocation.Sort(batches, allocation.MethodFEFO)
	allocs := allocation.Select(sorted, decimal.NewFromInt(7))

	require.Len(t, allocs, 2)
	assert.Equal(t, "a", allocs[0].BatchID)
	assert.True(t, allocs[0].Quantity.Equal(decimal.NewFromInt(5)), "del primero salen 5, obtuvo %s", allocs[0].Quantity)
	assert.Equal(t, "b", allocs[1].BatchID)
	assert.True(t, allocs[1].Quantity.Equal(decimal.NewFromInt(2)), "del segundo salen 2, obtuvo %s", allocs[1].Quantity)
	assert.True(t, allocation.Total(allocs).Equal(decimal.NewFromInt(7)))
}

// Si el stock no alcanza, Select devuelve lo que alcanzó: el caller decide si
// la reserva parcial es aceptable.
func TestSelect_StockInsuficiente_DevuelveLoDisponible(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sorted := allocation.Sort([]*entity.Batch{mkBatch("a", 4, nil, base)}, allocation.MethodFIFO)

	allocs := allocation.Select(sorted, decimal.NewFromInt(10))

	require.Len(t, allocs, 1)
	assert.True(t, allocation.Total(allocs).Equal(decimal.NewFromInt(4)))
}

// ──────────────────────────────────────────────────────────────────────────────
// SelectFromBatch (contrato manual)
// ──────────────────────────────────────────────────────────────────────────────

func TestSelectFromBatch_TodoONada(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := mkBatch("unico", 5, nil, base)

	// Cabe completo: una sola toma
	allocs, err := allocation.SelectFromBatch(batch, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.True(t, allocs[0].Quantity.Equal(decimal.NewFromInt(5)))

	// No cabe: error estructurado, sin fallback parcial
	_, err = allocation.SelectFromBatch(batch, decimal.NewFromInt(8))
	var insufficientErr *domain.InsufficientQuantityError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "unico", insufficientErr.BatchID)
	assert.True(t, insufficientErr.Available.Equal(decimal.NewFromInt(5)))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
}
