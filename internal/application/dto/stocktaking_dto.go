package dto

// CompleteStocktakingRequest body para POST /api/stocktakings/:id/complete
// y /complete-correction. AdjustInventory=false cierra el conteo y cancela
// reservas excedidas sin tocar cantidades físicas.
type CompleteStocktakingRequest struct {
	AdjustInventory bool `json:"adjust_inventory"`
}
