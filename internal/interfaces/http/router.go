package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Reservas-api/internal/application/availability"
	"github.com/jhoicas/Reservas-api/internal/application/movement"
	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/application/stocktaking"
	"github.com/jhoicas/Reservas-api/internal/application/transfer"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ReservationUC  *reservation.ReservationUseCase
	TransferUC     *transfer.TransferUseCase
	MovementUC     *movement.MovementUseCase
	AvailabilityUC *availability.AvailabilityUseCase
	StocktakingUC  *stocktaking.StocktakingUseCase
	BatchRepo      repository.BatchRepository
	LedgerRepo     repository.LedgerRepository
	JWTSecret      string
}

// Router registra las rutas de la API. Todas las rutas del motor requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Reservas (protegido)
	reservations := protected.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.ReservationUC)
	reservations.Post("/", reservationHandler.Reserve)
	reservations.Get("/reference/:refId", reservationHandler.ByReference)
	reservations.Put("/:id", reservationHandler.Update)
	reservations.Delete("/:itemId/:refId", reservationHandler.Cancel)

	// Traslados de reservas entre lotes (protegido)
	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.TransferUC)
	transfers.Post("/", transferHandler.Transfer)

	// Movimientos físicos (protegido)
	movements := protected.Group("/movements")
	movementHandler := NewMovementHandler(deps.MovementUC, deps.LedgerRepo)
	movements.Post("/receive", movementHandler.Receive)
	movements.Post("/issue", movementHandler.Issue)
	movements.Get("/:itemId", movementHandler.History)

	// Disponibilidad multi-artículo (protegido)
	availabilityHandler := NewAvailabilityHandler(deps.AvailabilityUC)
	protected.Get("/availability", availabilityHandler.ForItems)

	// Lotes (protegido)
	batches := protected.Group("/batches")
	batchHandler := NewBatchHandler(deps.BatchRepo)
	batches.Get("/expiring", batchHandler.Expiring)

	// Conteos físicos (protegido)
	stocktakings := protected.Group("/stocktakings")
	stocktakingHandler := NewStocktakingHandler(deps.StocktakingUC)
	stocktakings.Post("/:id/complete", stocktakingHandler.Complete)
	stocktakings.Post("/:id/reopen", stocktakingHandler.Reopen)
	stocktakings.Post("/:id/complete-correction", stocktakingHandler.CompleteCorrection)
	stocktakings.Get("/:id/report.csv", stocktakingHandler.ReportCSV)
	stocktakings.Get("/:id/report", stocktakingHandler.Report)
}
