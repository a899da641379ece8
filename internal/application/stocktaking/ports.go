package stocktaking

import (
	"context"

	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de un commit atómico que incluye el
// repositorio de conteos, además de libro, lotes y artículos.
type TxRunner interface {
	RunStocktaking(ctx context.Context, fn func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
		itemRepo repository.ItemRepository,
		stocktakingRepo repository.StocktakingRepository,
	) error) error
}
