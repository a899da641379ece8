package repository

import "github.com/jhoicas/Reservas-api/internal/domain/entity"

// StocktakingRepository define el puerto de persistencia para conteos físicos.
type StocktakingRepository interface {
	Create(st *entity.Stocktaking) error
	GetByID(id string) (*entity.Stocktaking, error)
	Update(st *entity.Stocktaking) error
	ListByStatus(status string) ([]*entity.Stocktaking, error)
}
