package memory

import (
	"sync"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

var _ repository.StocktakingRepository = (*StocktakingRepo)(nil)

// StocktakingRepo implementación en memoria de StocktakingRepository.
type StocktakingRepo struct {
	mu     sync.RWMutex
	counts map[string]*entity.Stocktaking
}

// NewStocktakingRepository construye el repositorio en memoria.
func NewStocktakingRepository() *StocktakingRepo {
	return &StocktakingRepo{counts: make(map[string]*entity.Stocktaking)}
}

// Create guarda un conteo nuevo.
func (r *StocktakingRepo) Create(st *entity.Stocktaking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[st.ID] = clone(st)
	return nil
}

// GetByID devuelve el conteo o nil si no existe.
func (r *StocktakingRepo) GetByID(id string) (*entity.Stocktaking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.counts[id]
	if !ok {
		return nil, nil
	}
	return clone(st), nil
}

// Update sobrescribe el conteo.
func (r *StocktakingRepo) Update(st *entity.Stocktaking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[st.ID] = clone(st)
	return nil
}

// ListByStatus conteos en un estado dado.
func (r *StocktakingRepo) ListByStatus(status string) ([]*entity.Stocktaking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Stocktaking
	for _, st := range r.counts {
		if st.Status == status {
			out = append(out, clone(st))
		}
	}
	return out, nil
}

func clone(st *entity.Stocktaking) *entity.Stocktaking {
	cp := *st
	cp.Items = append([]entity.StocktakingItem(nil), st.Items...)
	cp.CancelledReservations = append([]entity.CancelledReservation(nil), st.CancelledReservations...)
	return &cp
}
