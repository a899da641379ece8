package reservation

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de un commit atómico multi-registro del
// almacén, pasando repositorios atados a esa transacción. Garantiza que las
// entradas del libro y los agregados de Item/Batch se escriban juntos o no se
// escriban.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
	) error) error
}

// ConsumerStore colaborador externo: el almacén de órdenes de trabajo que consume
// reservas. OnReservationChanged mantiene sincronizado su snapshot desnormalizado
// de "qué lotes satisfacen mi necesidad"; sus fallos se registran, no abortan la
// operación del núcleo.
type ConsumerStore interface {
	Exists(ctx context.Context, referenceID string) (bool, error)
	OnReservationChanged(ctx context.Context, referenceID, itemID, batchID string, quantity decimal.Decimal, batchNumber string) error
}
