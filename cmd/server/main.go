package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ta-forever/server/cmd/server/routing"
	common "github.com/ta-forever/server/pkg/domain"
	galacticwar_services "github.com/ta-forever/server/pkg/domain/galacticwar/services"
	rating_services "github.com/ta-forever/server/pkg/domain/rating/services"
	"github.com/ta-forever/server/pkg/infra/broadcaster"
	"github.com/ta-forever/server/pkg/infra/ioc"
	"github.com/ta-forever/server/pkg/infra/kafka"
)

// defaultFrontLineTickInterval is how often the Galactic War campaign
// sweeps for newly-dominant and newly-isolated planets when
// GalacticWarConfig.UpdateStateInterval is unset, independent of the
// per-skirmish score updates OnGameRating drives directly.
const defaultFrontLineTickInterval = 1 * time.Minute

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	builder := ioc.NewContainerBuilder()
	c := builder.
		WithEnvFile().
		WithMongoDB().
		WithScenarioRepository().
		WithAlerting().
		WithKafka().
		WithRateLimiter().
		WithDomainServices().
		WithBroadcaster().
		Build()

	var config common.Config
	if err := c.Resolve(&config); err != nil {
		slog.ErrorContext(ctx, "failed to resolve config", "error", err)
		os.Exit(1)
	}

	var ratingService *rating_services.RatingService
	if err := c.Resolve(&ratingService); err != nil {
		slog.ErrorContext(ctx, "failed to resolve RatingService", "error", err)
		os.Exit(1)
	}
	ratingService.Initialize(ctx)
	slog.InfoContext(ctx, "rating service started")

	var b *broadcaster.Broadcaster
	if err := c.Resolve(&b); err != nil {
		slog.ErrorContext(ctx, "failed to resolve Broadcaster", "error", err)
		os.Exit(1)
	}
	go b.Run(ctx)
	slog.InfoContext(ctx, "broadcaster started")

	var bridge *kafka.WebSocketBridge
	if err := c.Resolve(&bridge); err != nil {
		slog.WarnContext(ctx, "websocket bridge unavailable, running single-instance", "error", err)
	} else if err := bridge.Start(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to start websocket bridge", "error", err)
	}

	var galacticWarService *galacticwar_services.GalacticWarService
	if err := c.Resolve(&galacticWarService); err != nil {
		slog.ErrorContext(ctx, "failed to resolve GalacticWarService", "error", err)
		os.Exit(1)
	}
	if config.GalacticWar.InitialScenario != "" {
		if err := galacticWarService.LoadScenario(ctx, config.GalacticWar.InitialScenario); err != nil {
			slog.ErrorContext(ctx, "failed to load initial galactic war scenario", "error", err)
		}
	}
	tickInterval := config.GalacticWar.UpdateStateInterval
	if tickInterval <= 0 {
		tickInterval = defaultFrontLineTickInterval
	}
	go runFrontLineTicker(ctx, galacticWarService, tickInterval)

	router := routing.NewRouter(ctx, c)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-shutdownChan
		slog.InfoContext(ctx, "received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "server shutdown error", "error", err)
		}

		ratingService.Shutdown(shutdownCtx)
		if err := galacticWarService.Checkpoint(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "failed to checkpoint galactic war state on shutdown", "error", err)
		}

		cancel()
		slog.InfoContext(ctx, "shutdown complete")
	}()

	slog.InfoContext(ctx, "starting server", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.ErrorContext(ctx, "server error", "error", err)
		os.Exit(1)
	}
}

// runFrontLineTicker periodically advances the Galactic War campaign to a
// stable state (front lines, uncontested and isolated planets, scenario
// rotation) and checkpoints the result so a crash loses at most one tick
// of progress.
func runFrontLineTicker(ctx context.Context, service *galacticwar_services.GalacticWarService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			service.UpdateState(ctx)
			if err := service.Checkpoint(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to checkpoint galactic war state", "error", err)
			}
		}
	}
}
