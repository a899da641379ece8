package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/application/stocktaking"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// Ensure TxRunner implements the application ports.
var _ reservation.TxRunner = (*TxRunner)(nil)
var _ stocktaking.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks contra los repositorios en memoria bajo un mutex
// global. No hay rollback real: emula el "commit batch" atómico del almacén de
// documentos para tests y tooling local.
type TxRunner struct {
	mu          sync.Mutex
	Ledger      *LedgerRepo
	Batches     *BatchRepo
	Items       *ItemRepo
	Stocktaking *StocktakingRepo
}

// NewTxRunner construye el runner con los repositorios en memoria.
func NewTxRunner(ledger *LedgerRepo, batches *BatchRepo, items *ItemRepo, st *StocktakingRepo) *TxRunner {
	return &TxRunner{Ledger: ledger, Batches: batches, Items: items, Stocktaking: st}
}

// Run ejecuta fn con los repos de libro, lotes y artículos.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
	itemRepo repository.ItemRepository,
) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.Ledger, r.Batches, r.Items)
}

// RunStocktaking ejecuta fn incluyendo además el repositorio de conteos.
func (r *TxRunner) RunStocktaking(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
	itemRepo repository.ItemRepository,
	stocktakingRepo repository.StocktakingRepository,
) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.Ledger, r.Batches, r.Items, r.Stocktaking)
}
