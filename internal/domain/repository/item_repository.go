package repository

import (
	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para Item (DIP).
// Los agregados Quantity/BookedQuantity solo los mutan los motores de
// reserva/traslado/conteo, siempre dentro de una transacción que incluya
// la entrada correspondiente del libro de movimientos.
type ItemRepository interface {
	Create(item *entity.Item) error
	GetByID(id string) (*entity.Item, error)
	ListByIDs(ids []string) ([]*entity.Item, error)
	Update(item *entity.Item) error
	UpdateBookedQuantity(itemID string, booked decimal.Decimal) error
	UpdateQuantity(itemID string, quantity decimal.Decimal) error
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE) donde el adaptador lo soporte.
	GetForUpdate(id string) (*entity.Item, error)
}
