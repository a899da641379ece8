package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación del puerto ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de persistencia para artículos. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// Create persiste un nuevo artículo. Los agregados Quantity/BookedQuantity inician en 0.
func (r *ItemRepo) Create(item *entity.Item) error {
	query := `
		INSERT INTO items (id, name, category, unit, unit_price, quantity, booked_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.Name, item.Category, item.Unit, item.UnitPrice,
		item.Quantity, item.BookedQuantity, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID obtiene un artículo por ID. Devuelve (nil, nil) si no existe:
// el motor de reservas decide si eso es un fallo duro o blando.
func (r *ItemRepo) GetByID(id string) (*entity.Item, error) {
	query := `
		SELECT id, name, category, unit, unit_price, quantity, booked_quantity, created_at, updated_at
		FROM items WHERE id = $1`
	var it entity.Item
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&it.ID, &it.Name, &it.Category, &it.Unit, &it.UnitPrice,
		&it.Quantity, &it.BookedQuantity, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

// ListByIDs obtiene varios artículos en una sola consulta (fan-out de disponibilidad).
func (r *ItemRepo) ListByIDs(ids []string) ([]*entity.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, name, category, unit, unit_price, quantity, booked_quantity, created_at, updated_at
		FROM items WHERE id = ANY($1)`
	rows, err := r.q.Query(context.Background(), query, ids)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		var it entity.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Unit, &it.UnitPrice,
			&it.Quantity, &it.BookedQuantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// Update actualiza los datos maestros del artículo. No toca los agregados:
// esos se mueven solo vía UpdateQuantity/UpdateBookedQuantity dentro de una tx.
func (r *ItemRepo) Update(item *entity.Item) error {
	query := `
		UPDATE items SET name = $2, category = $3, unit = $4, unit_price = $5, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		item.ID, item.Name, item.Category, item.Unit, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateBookedQuantity sobrescribe el agregado de reservas del artículo.
func (r *ItemRepo) UpdateBookedQuantity(itemID string, booked decimal.Decimal) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE items SET booked_quantity = $2, updated_at = now() WHERE id = $1`,
		itemID, booked,
	)
	if err != nil {
		return fmt.Errorf("update item booked quantity: %w", err)
	}
	return nil
}

// UpdateQuantity sobrescribe el agregado de existencia física del artículo.
func (r *ItemRepo) UpdateQuantity(itemID string, quantity decimal.Decimal) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE items SET quantity = $2, updated_at = now() WHERE id = $1`,
		itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	return nil
}

// GetForUpdate obtiene el artículo y bloquea la fila para update (SELECT FOR UPDATE).
func (r *ItemRepo) GetForUpdate(id string) (*entity.Item, error) {
	query := `
		SELECT id, name, category, unit, unit_price, quantity, booked_quantity, created_at, updated_at
		FROM items WHERE id = $1
		FOR UPDATE`
	var it entity.Item
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&it.ID, &it.Name, &it.Category, &it.Unit, &it.UnitPrice,
		&it.Quantity, &it.BookedQuantity, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item for update: %w", err)
	}
	return &it, nil
}
