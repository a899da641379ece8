package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Reservas-api/internal/application/availability"
	"github.com/jhoicas/Reservas-api/internal/application/movement"
	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/application/stocktaking"
	"github.com/jhoicas/Reservas-api/internal/application/transfer"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/events"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Reservas-api/internal/interfaces/http"
	"github.com/jhoicas/Reservas-api/pkg/config"
	"github.com/jhoicas/Reservas-api/pkg/lock"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	itemRepo := postgres.NewItemRepository(pool)
	batchRepo := postgres.NewBatchRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	stocktakingRepo := postgres.NewStocktakingRepository(pool)
	consumers := postgres.NewConsumerStore(pool)
	txRunner := postgres.NewTxRunner(pool)

	bus := events.NewBus(log)
	locks := lock.NewKeyed()

	reservationUC := reservation.NewReservationUseCase(txRunner, itemRepo, batchRepo, ledgerRepo, consumers, bus, locks, log)
	transferUC := transfer.NewTransferUseCase(txRunner, itemRepo, batchRepo, ledgerRepo, consumers, bus, locks, log)
	movementUC := movement.NewMovementUseCase(txRunner, itemRepo, batchRepo, ledgerRepo, bus, locks, log)
	availabilityUC := availability.NewAvailabilityUseCase(itemRepo, batchRepo, log)
	stocktakingUC := stocktaking.NewStocktakingUseCase(txRunner, stocktakingRepo, ledgerRepo, consumers, bus, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Reservas API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ReservationUC:  reservationUC,
		TransferUC:     transferUC,
		MovementUC:     movementUC,
		AvailabilityUC: availabilityUC,
		StocktakingUC:  stocktakingUC,
		BatchRepo:      batchRepo,
		LedgerRepo:     ledgerRepo,
		JWTSecret:      cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
