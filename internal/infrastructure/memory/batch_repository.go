package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación en memoria de BatchRepository.
type BatchRepo struct {
	mu      sync.RWMutex
	batches map[string]*entity.Batch
}

// NewBatchRepository construye el repositorio en memoria.
func NewBatchRepository() *BatchRepo {
	return &BatchRepo{batches: make(map[string]*entity.Batch)}
}

// Create guarda un lote nuevo.
func (r *BatchRepo) Create(batch *entity.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *batch
	r.batches[batch.ID] = &cp
	return nil
}

// GetByID devuelve el lote o nil si no existe.
func (r *BatchRepo) GetByID(id string) (*entity.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

// ListByItem devuelve los lotes de un artículo ordenados por recepción.
func (r *BatchRepo) ListByItem(itemID string) ([]*entity.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Batch
	for _, b := range r.batches {
		if b.ItemID == itemID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedDate.Before(out[j].ReceivedDate)
	})
	return out, nil
}

// ListByItems devuelve los lotes de varios artículos.
func (r *BatchRepo) ListByItems(itemIDs []string) ([]*entity.Batch, error) {
	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Batch
	for _, b := range r.batches {
		if wanted[b.ItemID] {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// UpdateQuantity fija la existencia física del lote.
func (r *BatchRepo) UpdateQuantity(batchID string, quantity decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.batches[batchID]; ok {
		b.Quantity = quantity
	}
	return nil
}

// ListExpiring lotes con stock y vencimiento anterior a before; sin vencimiento = excluido.
func (r *BatchRepo) ListExpiring(before time.Time) ([]*entity.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Batch
	for _, b := range r.batches {
		if !b.HasExpiry() || !b.IsSelectable() {
			continue
		}
		if b.ExpiryDate.Before(before) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
	})
	return out, nil
}
