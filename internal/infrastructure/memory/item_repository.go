package memory

import (
	"sync"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación en memoria de ItemRepository (tests y tooling local).
type ItemRepo struct {
	mu    sync.RWMutex
	items map[string]*entity.Item
}

// NewItemRepository construye el repositorio en memoria.
func NewItemRepository() *ItemRepo {
	return &ItemRepo{items: make(map[string]*entity.Item)}
}

// Create guarda un artículo nuevo.
func (r *ItemRepo) Create(item *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

// GetByID devuelve el artículo o nil si no existe (sin error, como el adaptador SQL).
func (r *ItemRepo) GetByID(id string) (*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

// ListByIDs devuelve los artículos existentes entre los ids pedidos.
func (r *ItemRepo) ListByIDs(ids []string) ([]*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Update sobrescribe el artículo completo.
func (r *ItemRepo) Update(item *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

// UpdateBookedQuantity sobrescribe el agregado de reservas.
func (r *ItemRepo) UpdateBookedQuantity(itemID string, booked decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[itemID]; ok {
		item.BookedQuantity = booked
	}
	return nil
}

// UpdateQuantity sobrescribe el agregado físico.
func (r *ItemRepo) UpdateQuantity(itemID string, quantity decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[itemID]; ok {
		item.Quantity = quantity
	}
	return nil
}

// GetForUpdate en memoria no bloquea fila; el candado por artículo del motor serializa.
func (r *ItemRepo) GetForUpdate(id string) (*entity.Item, error) {
	return r.GetByID(id)
}

// Delete elimina un artículo (solo tests).
func (r *ItemRepo) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}
