// main.go
//
// Process entrypoint: config, logging, country data, SQLite, HTTP server.
// The server, its shutdown and the idle-game sweeper share one errgroup;
// SIGINT/SIGTERM cancel it.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/worldle/apps/go-server/internal/config"
	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/database"
	"github.com/robalobadob/worldle/apps/go-server/internal/httpserver"
	"github.com/robalobadob/worldle/apps/go-server/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)

	if err := countries.Init(cfg.CountriesFile); err != nil {
		return fmt.Errorf("loading countries: %w", err)
	}
	log.Info().Int("countries", countries.Stats()).Msg("country list loaded")

	db, err := database.OpenMigrated(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	srv := httpserver.New(cfg, store.NewMemoryStore(), db)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.Environment).Msg("starting go-server")
		return srv.Run(cfg.Addr())
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		return srv.Shutdown(context.Background())
	})

	// Evict games nobody has touched within GAME_TTL.
	g.Go(func() error {
		t := time.NewTicker(sweepInterval(cfg.GameTTL))
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-t.C:
				srv.Sweep(gctx, now.Add(-cfg.GameTTL))
			}
		}
	})

	return g.Wait()
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if iv := ttl / 4; iv > time.Minute {
		return iv
	}
	return time.Minute
}
