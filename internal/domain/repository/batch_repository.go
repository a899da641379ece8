package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// BatchRepository define el puerto de persistencia para lotes físicos.
type BatchRepository interface {
	Create(batch *entity.Batch) error
	GetByID(id string) (*entity.Batch, error)
	ListByItem(itemID string) ([]*entity.Batch, error)
	ListByItems(itemIDs []string) ([]*entity.Batch, error)
	UpdateQuantity(batchID string, quantity decimal.Decimal) error
	// ListExpiring devuelve lotes con stock cuyo vencimiento es anterior a before.
	// Lotes sin fecha de vencimiento quedan excluidos.
	ListExpiring(before time.Time) ([]*entity.Batch, error)
}
