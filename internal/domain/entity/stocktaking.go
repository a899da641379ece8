package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del conteo físico (stocktaking). Transiciones válidas:
// Open -> InProgress -> Completed; Completed -> InCorrection -> Completed;
// Cancelled desde cualquier estado no completado.
const (
	StocktakingOpen         = "Open"
	StocktakingInProgress   = "In progress"
	StocktakingInCorrection = "In correction"
	StocktakingCompleted    = "Completed"
	StocktakingCancelled    = "Cancelled"
)

// Stocktaking representa un evento de conteo físico de inventario.
// Una vez completado es inmutable salvo por la ruta de reapertura para corrección.
type Stocktaking struct {
	ID                    string
	Status                string
	Items                 []StocktakingItem
	CancelledReservations []CancelledReservation
	ItemsCount            int
	DiscrepanciesCount    int
	TotalValue            decimal.Decimal
	CreatedAt             time.Time
	CreatedBy             string
	CompletedAt           *time.Time
	CompletedBy           string
}

// StocktakingItem una línea contada: cantidad del sistema vs. cantidad física.
type StocktakingItem struct {
	ItemID          string
	BatchID         string
	Name            string
	Category        string
	LotNumber       string
	ExpiryDate      *time.Time
	SystemQuantity  decimal.Decimal
	CountedQuantity decimal.Decimal
	UnitPrice       decimal.Decimal
	Accepted        bool
}

// Discrepancy devuelve countedQuantity - systemQuantity.
func (it *StocktakingItem) Discrepancy() decimal.Decimal {
	return it.CountedQuantity.Sub(it.SystemQuantity)
}

// CancelledReservation auditoría de una reserva cancelada porque el stock contado
// no alcanzaba a cubrirla. Alimenta la sección "reservas canceladas" del informe.
type CancelledReservation struct {
	BatchID      string
	BatchNumber  string
	ReferenceID  string
	Quantity     decimal.Decimal
	MaterialName string
	CancelledAt  time.Time
}

// CanTransitionTo valida la máquina de estados del conteo.
func (s *Stocktaking) CanTransitionTo(next string) bool {
	switch next {
	case StocktakingInProgress:
		return s.Status == StocktakingOpen
	case StocktakingCompleted:
		return s.Status == StocktakingOpen || s.Status == StocktakingInProgress || s.Status == StocktakingInCorrection
	case StocktakingInCorrection:
		return s.Status == StocktakingCompleted
	case StocktakingCancelled:
		return s.Status != StocktakingCompleted && s.Status != StocktakingCancelled
	}
	return false
}
