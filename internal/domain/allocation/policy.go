package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// Métodos de selección de lotes.
const (
	MethodFIFO   = "FIFO"   // primero en entrar, primero en salir (ReceivedDate ascendente)
	MethodFEFO   = "FEFO"   // primero en vencer, primero en salir (ExpiryDate ascendente)
	MethodManual = "MANUAL" // un lote explícito elegido por el usuario
)

// ValidMethod indica si el método de selección es conocido.
func ValidMethod(m string) bool {
	return m == MethodFIFO || m == MethodFEFO || m == MethodManual
}

// Allocation una toma parcial de un lote: el resultado de la selección codiciosa.
type Allocation struct {
	BatchID     string
	BatchNumber string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Sort ordena los lotes elegibles según el método (servicio de dominio puro).
// FEFO: vencimiento ascendente, lotes sin vencimiento al final (desempate por recepción).
// FIFO: fecha de recepción ascendente. Los lotes en cero no participan.
func Sort(batches []*entity.Batch, method string) []*entity.Batch {
	eligible := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if b.IsSelectable() {
			eligible = append(eligible, b)
		}
	}
	switch method {
	case MethodFEFO:
		sort.SliceStable(eligible, func(i, j int) bool {
			bi, bj := eligible[i], eligible[j]
			switch {
			case bi.HasExpiry() && !bj.HasExpiry():
				return true
			case !bi.HasExpiry() && bj.HasExpiry():
				return false
			case bi.HasExpiry() && bj.HasExpiry() && !bi.ExpiryDate.Equal(*bj.ExpiryDate):
				return bi.ExpiryDate.Before(*bj.ExpiryDate)
			default:
				return bi.ReceivedDate.Before(bj.ReceivedDate)
			}
		})
	case MethodFIFO:
		sort.SliceStable(eligible, func(i, j int) bool {
			return eligible[i].ReceivedDate.Before(eligible[j].ReceivedDate)
		})
	}
	return eligible
}

// Select consume lotes en orden hasta cubrir target y devuelve las tomas por lote.
// Si el stock físico no alcanza, devuelve lo que alcanzó: el caller decide si la
// reserva parcial es aceptable (automática) o un error (manual).
func Select(sorted []*entity.Batch, target decimal.Decimal) []Allocation {
	var out []Allocation
	remaining := target
	for _, b := range sorted {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := decimal.Min(b.Quantity, remaining)
		if take.LessThanOrEqual(decimal.Zero) {
			continue
		}
		out = append(out, Allocation{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
			UnitPrice:   b.UnitPrice,
		})
		remaining = remaining.Sub(take)
	}
	return out
}

// SelectFromBatch contrato manual: la reserva debe salir completa del lote indicado.
func SelectFromBatch(batch *entity.Batch, target decimal.Decimal) ([]Allocation, error) {
	if batch.Quantity.LessThan(target) {
		return nil, &domain.InsufficientQuantityError{
			BatchID:   batch.ID,
			Requested: target,
			Available: batch.Quantity,
		}
	}
	return []Allocation{{
		BatchID:     batch.ID,
		BatchNumber: batch.BatchNumber,
		Quantity:    target,
		UnitPrice:   batch.UnitPrice,
	}}, nil
}

// Total suma las cantidades tomadas.
func Total(allocs []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Quantity)
	}
	return total
}
