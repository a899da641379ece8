package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.StocktakingRepository = (*StocktakingRepo)(nil)

// StocktakingRepo implementación de StocktakingRepository sobre PostgreSQL.
// Las líneas contadas y las reservas canceladas viajan como JSONB: el cierre
// reescribe el documento completo, no hay acceso por línea.
type StocktakingRepo struct {
	q Querier
}

// NewStocktakingRepository construye el adaptador de conteos. Pasar pool o tx (Querier).
func NewStocktakingRepository(q Querier) *StocktakingRepo {
	return &StocktakingRepo{q: q}
}

// Create persiste un conteo nuevo.
func (r *StocktakingRepo) Create(st *entity.Stocktaking) error {
	items, cancelled, err := marshalStocktakingDocs(st)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO stocktakings (id, status, items, cancelled_reservations, items_count, discrepancies_count, total_value, created_at, created_by, completed_at, completed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.q.Exec(context.Background(), query,
		st.ID, st.Status, items, cancelled, st.ItemsCount, st.DiscrepanciesCount,
		st.TotalValue, st.CreatedAt, st.CreatedBy, st.CompletedAt, nullIfEmpty(st.CompletedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert stocktaking: %w", err)
	}
	return nil
}

// GetByID obtiene un conteo completo por ID.
func (r *StocktakingRepo) GetByID(id string) (*entity.Stocktaking, error) {
	query := `
		SELECT id, status, items, cancelled_reservations, items_count, discrepancies_count, total_value, created_at, created_by, completed_at, completed_by
		FROM stocktakings WHERE id = $1`
	st, err := scanStocktaking(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stocktaking: %w", err)
	}
	return st, nil
}

// Update reescribe el documento completo del conteo.
func (r *StocktakingRepo) Update(st *entity.Stocktaking) error {
	items, cancelled, err := marshalStocktakingDocs(st)
	if err != nil {
		return err
	}
	query := `
		UPDATE stocktakings
		SET status = $2, items = $3, cancelled_reservations = $4, items_count = $5,
		    discrepancies_count = $6, total_value = $7, completed_at = $8, completed_by = $9
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		st.ID, st.Status, items, cancelled, st.ItemsCount, st.DiscrepanciesCount,
		st.TotalValue, st.CompletedAt, nullIfEmpty(st.CompletedBy),
	)
	if err != nil {
		return fmt.Errorf("update stocktaking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus lista conteos por estado, más recientes primero.
func (r *StocktakingRepo) ListByStatus(status string) ([]*entity.Stocktaking, error) {
	query := `
		SELECT id, status, items, cancelled_reservations, items_count, discrepancies_count, total_value, created_at, created_by, completed_at, completed_by
		FROM stocktakings WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.q.Query(context.Background(), query, status)
	if err != nil {
		return nil, fmt.Errorf("list stocktakings: %w", err)
	}
	defer rows.Close()
	var list []*entity.Stocktaking
	for rows.Next() {
		st, err := scanStocktaking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stocktaking: %w", err)
		}
		list = append(list, st)
	}
	return list, rows.Err()
}

func marshalStocktakingDocs(st *entity.Stocktaking) (items, cancelled []byte, err error) {
	items, err = json.Marshal(st.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal stocktaking items: %w", err)
	}
	cancelled, err = json.Marshal(st.CancelledReservations)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal cancelled reservations: %w", err)
	}
	return items, cancelled, nil
}

func scanStocktaking(row pgx.Row) (*entity.Stocktaking, error) {
	var st entity.Stocktaking
	var items, cancelled []byte
	var completedBy *string
	if err := row.Scan(&st.ID, &st.Status, &items, &cancelled, &st.ItemsCount,
		&st.DiscrepanciesCount, &st.TotalValue, &st.CreatedAt, &st.CreatedBy,
		&st.CompletedAt, &completedBy); err != nil {
		return nil, err
	}
	if completedBy != nil {
		st.CompletedBy = *completedBy
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &st.Items); err != nil {
			return nil, fmt.Errorf("unmarshal stocktaking items: %w", err)
		}
	}
	if len(cancelled) > 0 {
		if err := json.Unmarshal(cancelled, &st.CancelledReservations); err != nil {
			return nil, fmt.Errorf("unmarshal cancelled reservations: %w", err)
		}
	}
	return &st, nil
}

// nullIfEmpty convierte cadena vacía en NULL para columnas opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
