package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lguibr/cacophony/actor"
	"github.com/lguibr/cacophony/catalog"
	"github.com/lguibr/cacophony/game"
	"github.com/lguibr/cacophony/log"
	"github.com/lguibr/cacophony/server"
	"github.com/lguibr/cacophony/utils"
)

func main() {
	log.Configure(log.Config{Service: "cacophony"})
	logger := log.WithComponent("main")

	cfg := utils.ConfigFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.New(cfg.DataDir, cfg.CatalogCacheTTL)

	engine := actor.NewEngine()
	managerPID := engine.SpawnNamed(actor.NewProps(game.NewRoomManagerProducer(engine, cfg, cat)), "room-manager")
	if managerPID == nil {
		logger.Fatal().Msg("failed to spawn room manager")
	}

	srv := server.New(engine, managerPID, cfg)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		// Hot-reload the prompt and sound catalogs on file changes.
		if err := cat.Watch(ctx); err != nil {
			logger.Warn().Err(err).Msg("catalog watcher stopped")
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown failed")
		}

		engine.Shutdown(cfg.EngineShutdownTimeout)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server exited")
}
