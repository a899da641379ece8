package reservation

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// ReconcileBookedQuantity recomputa BookedQuantity del artículo como pliegue puro
// sobre las entradas booking/booking_cancel del libro y sobrescribe el cache si
// difiere. Idempotente y seguro de ejecutar de forma concurrente y repetida.
// Nunca devuelve error: ante un fallo registra y devuelve el valor previo para
// que el caller continúe de forma optimista.
func (uc *ReservationUseCase) ReconcileBookedQuantity(ctx context.Context, itemID string) decimal.Decimal {
	item, err := uc.itemRepo.GetByID(itemID)
	if err != nil || item == nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Msg("conciliación: no se pudo cargar el artículo")
		return decimal.Zero
	}
	prior := item.BookedQuantity

	entries, err := uc.ledgerRepo.ListBookingsByItem(itemID)
	if err != nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Msg("conciliación: no se pudo leer el libro")
		return prior
	}

	computed := decimal.Zero
	for _, qty := range entity.EffectiveBooked(entries) {
		computed = computed.Add(qty)
	}

	if computed.Equal(prior) {
		return prior
	}

	if err := uc.itemRepo.UpdateBookedQuantity(itemID, computed); err != nil {
		uc.log.Warn().Err(err).
			Str("item_id", itemID).
			Str("prior", prior.String()).
			Str("computed", computed.String()).
			Msg("conciliación: no se pudo sobrescribir el agregado")
		return prior
	}

	uc.log.Info().
		Str("item_id", itemID).
		Str("prior", prior.String()).
		Str("computed", computed.String()).
		Msg("BookedQuantity conciliado desde el libro")
	return computed
}
