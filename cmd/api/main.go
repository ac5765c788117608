package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appanalytics "github.com/jhoicas/album-ledger-api/internal/application/analytics"
	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/application/usecase"
	"github.com/jhoicas/album-ledger-api/internal/bootstrap"
	httpRouter "github.com/jhoicas/album-ledger-api/internal/interfaces/http"
	"github.com/jhoicas/album-ledger-api/pkg/config"
	"github.com/jhoicas/album-ledger-api/pkg/logger"
	"github.com/jhoicas/album-ledger-api/pkg/metrics"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	backend, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	resolver := inventory.NewStockResolver(
		backend.TxRunner, backend.Items, backend.Idempotency, log, m, cfg.Ledger.VerifyOnWrite,
	)
	itemUC := usecase.NewItemUseCase(backend.Items, backend.TxRunner)
	ledgerUC := appanalytics.NewLedgerQueryUseCase(backend.Transactions)
	dashboardUC := appanalytics.NewDashboardUseCase(backend.Items, backend.Transactions)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.App.SwaggerEnabled {
		if _, err := os.Stat(swaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: swaggerFile,
				Path:     "docs",
				Title:    "Album Ledger API",
			}))
		} else {
			log.Warn().Str("file", swaggerFile).Msg("swagger habilitado pero no se encontró la especificación")
		}
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ItemUC:      itemUC,
		Resolver:    resolver,
		LedgerUC:    ledgerUC,
		DashboardUC: dashboardUC,
		JWTSecret:   cfg.JWT.Secret,
		Metrics:     adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ServiceName: cfg.App.Name,
	})
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: las escrituras no requieren autenticación")
	}

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
