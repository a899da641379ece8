package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación del libro de movimientos sobre PostgreSQL (usable con pool o tx).
// La tabla es append-only: UpdateBooking y DeleteBookings son las dos únicas
// excepciones acotadas que permite el puerto.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `id, item_id, batch_id, batch_number, reference_id, type, quantity, status, reference, notes, created_at, created_by`

// Create persiste una entrada del libro.
func (r *LedgerRepo) Create(entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		entry.ID, entry.ItemID, entry.BatchID, entry.BatchNumber, entry.ReferenceID,
		entry.Type, entry.Quantity, entry.Status, entry.Reference, entry.Notes,
		entry.CreatedAt, entry.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// CreateAll persiste varias entradas. El llamador decide si lo envuelve en una tx.
func (r *LedgerRepo) CreateAll(entries []*entity.LedgerEntry) error {
	for _, e := range entries {
		if err := r.Create(e); err != nil {
			return err
		}
	}
	return nil
}

// GetByID obtiene una entrada por ID.
func (r *LedgerRepo) GetByID(id string) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`
	e, err := scanLedgerEntry(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// ListByItem lista todas las entradas de un artículo en orden cronológico.
func (r *LedgerRepo) ListByItem(itemID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE item_id = $1 ORDER BY created_at ASC`
	return r.list(query, itemID)
}

// ListBookingsByItem lista entradas booking y booking_cancel de un artículo
// (insumo del pliegue de reservas efectivas).
func (r *LedgerRepo) ListBookingsByItem(itemID string) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE item_id = $1 AND type IN ($2, $3)
		ORDER BY created_at ASC`
	return r.list(query, itemID, entity.LedgerTypeBooking, entity.LedgerTypeBookingCancel)
}

// ListBookingsByBatch lista entradas booking y booking_cancel contra un lote.
func (r *LedgerRepo) ListBookingsByBatch(batchID string) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE batch_id = $1 AND type IN ($2, $3)
		ORDER BY created_at ASC`
	return r.list(query, batchID, entity.LedgerTypeBooking, entity.LedgerTypeBookingCancel)
}

// ListByReference lista las entradas asociadas a un consumidor.
func (r *LedgerRepo) ListByReference(referenceID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE reference_id = $1 ORDER BY created_at ASC`
	return r.list(query, referenceID)
}

// UpdateBooking persiste cantidad, estado y lote de una reserva existente
// (actualización aditiva del mismo par lote/referencia, o re-apuntado por traslado).
func (r *LedgerRepo) UpdateBooking(entry *entity.LedgerEntry) error {
	query := `
		UPDATE ledger_entries
		SET batch_id = $2, batch_number = $3, quantity = $4, status = $5, notes = $6
		WHERE id = $1 AND type = $7`
	cmd, err := r.q.Exec(context.Background(), query,
		entry.ID, entry.BatchID, entry.BatchNumber, entry.Quantity, entry.Status, entry.Notes,
		entity.LedgerTypeBooking,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteBookings borra físicamente las reservas de una referencia sobre un artículo.
// Solo cuando el consumidor ya no existe: sin consumidor no queda valor de auditoría.
func (r *LedgerRepo) DeleteBookings(itemID, referenceID string) error {
	_, err := r.q.Exec(context.Background(),
		`DELETE FROM ledger_entries WHERE item_id = $1 AND reference_id = $2 AND type IN ($3, $4)`,
		itemID, referenceID, entity.LedgerTypeBooking, entity.LedgerTypeBookingCancel,
	)
	if err != nil {
		return fmt.Errorf("delete bookings: %w", err)
	}
	return nil
}

func (r *LedgerRepo) list(query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	if err := row.Scan(&e.ID, &e.ItemID, &e.BatchID, &e.BatchNumber, &e.ReferenceID,
		&e.Type, &e.Quantity, &e.Status, &e.Reference, &e.Notes, &e.CreatedAt, &e.CreatedBy); err != nil {
		return nil, err
	}
	return &e, nil
}
