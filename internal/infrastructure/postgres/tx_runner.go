package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/application/stocktaking"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// Ensure TxRunner implements reservation.TxRunner and stocktaking.TxRunner.
var _ reservation.TxRunner = (*TxRunner)(nil)
var _ stocktaking.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
	itemRepo repository.ItemRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ledgerRepo := NewLedgerRepository(tx)
	batchRepo := NewBatchRepository(tx)
	itemRepo := NewItemRepository(tx)

	if err := fn(ledgerRepo, batchRepo, itemRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunStocktaking inicia una transacción con los repos de inventario más el de conteos
// (cierre de conteo: ajustes, cancelación de excedentes y acta en un solo commit).
func (r *TxRunner) RunStocktaking(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
	itemRepo repository.ItemRepository,
	stocktakingRepo repository.StocktakingRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ledgerRepo := NewLedgerRepository(tx)
	batchRepo := NewBatchRepository(tx)
	itemRepo := NewItemRepository(tx)
	stocktakingRepo := NewStocktakingRepository(tx)

	if err := fn(ledgerRepo, batchRepo, itemRepo, stocktakingRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
