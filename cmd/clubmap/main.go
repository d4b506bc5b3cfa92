package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"clubmap/core-go/internal/config"
	"clubmap/core-go/internal/db"
	"clubmap/core-go/internal/httpapi"
	"clubmap/core-go/internal/metrics"
	"clubmap/core-go/internal/persistence"
	"clubmap/core-go/internal/roster"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := httpapi.NewLogger("info")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var pool *db.Pool
	if cfg.Database.URL != "" {
		p, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
	}

	rosterProvider := roster.FileProvider{Path: cfg.Roster.Path}
	opts := httpapi.Options{
		Roster:         rosterProvider,
		Metrics:        m,
		SessionTTL:     cfg.Sessions.TTL,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}

	writerDone := make(chan struct{})
	close(writerDone)

	if pool != nil {
		gw := persistence.NewGateway(logger, pool.Queries(), persistence.GatewayOptions{
			BreakerFailures: cfg.Persistence.BreakerFailures,
			BreakerCooldown: cfg.Persistence.BreakerCooldown,
		}, m)

		writer := persistence.NewWriter(logger, gw, persistence.WriterOptions{
			QueueSize: cfg.Persistence.SaveQueueSize,
			Timeout:   cfg.Persistence.SaveTimeout,
		}, m)
		writerDone = make(chan struct{})
		go func() {
			defer close(writerDone)
			writer.Run(ctx)
		}()

		opts.Positions = gw
		opts.Saver = writer

		if cfg.Persistence.SeedOnStart {
			rs := roster.LoadOrDefault(ctx, logger, rosterProvider)
			seeder := persistence.NewSeeder(logger, rs.Clubs, gw, persistence.SeederOptions{}, m)
			go seeder.Run(ctx)
		}
	} else {
		logger.Warn().Msg("DATABASE_URL not set; dragged positions will not be persisted")
	}

	h := httpapi.NewHandler(logger, pool, opts)
	go h.RunJanitor(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("clubmap listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	waitForWriter(shutdownCtx, logger, writerDone)
	logger.Info().Msg("shutdown complete")
}

// waitForWriter gives queued position saves a chance to land before exit.
func waitForWriter(ctx context.Context, logger zerolog.Logger, done <-chan struct{}) {
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn().Msg("position writer did not drain before shutdown")
	}
}
