package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, item_id, warehouse_id, batch_number, quantity, unit_price, expiry_date, received_date, created_at`

// Create persiste un nuevo lote.
func (r *BatchRepo) Create(batch *entity.Batch) error {
	query := `
		INSERT INTO batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(context.Background(), query,
		batch.ID, batch.ItemID, batch.WarehouseID, batch.BatchNumber,
		batch.Quantity, batch.UnitPrice, batch.ExpiryDate, batch.ReceivedDate, batch.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *BatchRepo) GetByID(id string) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	b, err := scanBatch(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// ListByItem lista los lotes de un artículo, de más antiguo a más reciente.
// Documentos heredados guardan fechas centinela en expiry_date; se normalizan a nil.
func (r *BatchRepo) ListByItem(itemID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE item_id = $1 ORDER BY received_date ASC`
	rows, err := r.q.Query(context.Background(), query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	return collectBatches(rows)
}

// ListByItems lista lotes de varios artículos en una sola consulta.
func (r *BatchRepo) ListByItems(itemIDs []string) ([]*entity.Batch, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + batchColumns + ` FROM batches WHERE item_id = ANY($1) ORDER BY received_date ASC`
	rows, err := r.q.Query(context.Background(), query, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("list batches by items: %w", err)
	}
	defer rows.Close()
	return collectBatches(rows)
}

// UpdateQuantity sobrescribe la existencia física del lote. Un lote en cero se
// conserva: deja de ser elegible pero mantiene su historial.
func (r *BatchRepo) UpdateQuantity(batchID string, quantity decimal.Decimal) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE batches SET quantity = $2 WHERE id = $1`,
		batchID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update batch quantity: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListExpiring lista lotes con stock cuyo vencimiento es anterior a before.
// Lotes sin fecha (NULL o centinela) quedan fuera.
func (r *BatchRepo) ListExpiring(before time.Time) ([]*entity.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM batches
		WHERE expiry_date IS NOT NULL AND expiry_date > '0001-01-01' AND expiry_date < $1 AND quantity > 0
		ORDER BY expiry_date ASC`
	rows, err := r.q.Query(context.Background(), query, before)
	if err != nil {
		return nil, fmt.Errorf("list expiring batches: %w", err)
	}
	defer rows.Close()
	return collectBatches(rows)
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	if err := row.Scan(&b.ID, &b.ItemID, &b.WarehouseID, &b.BatchNumber,
		&b.Quantity, &b.UnitPrice, &b.ExpiryDate, &b.ReceivedDate, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.ExpiryDate = normalizeExpiry(b.ExpiryDate)
	return &b, nil
}

func collectBatches(rows pgx.Rows) ([]*entity.Batch, error) {
	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// normalizeExpiry traduce el centinela heredado "sin fecha válida" a nil.
func normalizeExpiry(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}
