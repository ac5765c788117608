// Comando reconcile recalcula el stock de todo el catálogo desde el ledger.
// Sale con código 1 si algún ítem tenía el stock cacheado desviado (y fue reparado).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/bootstrap"
	"github.com/jhoicas/album-ledger-api/pkg/config"
	"github.com/jhoicas/album-ledger-api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-reconcile"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("inicializar almacenamiento")
		return 2
	}
	defer backend.Close()

	resolver := inventory.NewStockResolver(backend.TxRunner, backend.Items, nil, log, nil, false)
	results, err := resolver.ReconcileAll(ctx)
	if err != nil {
		log.Error().Err(err).Int("checked", len(results)).Msg("reconciliación interrumpida")
		return 2
	}

	repaired := 0
	for _, rec := range results {
		if rec.Repaired {
			repaired++
		}
	}
	log.Info().Int("checked", len(results)).Int("repaired", repaired).Msg("reconciliación completa")
	if repaired > 0 {
		return 1
	}
	return 0
}
