package routing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golobby/container/v3"
	"github.com/gorilla/mux"

	common "github.com/ta-forever/server/pkg/domain"
	galacticwar_out "github.com/ta-forever/server/pkg/domain/galacticwar/ports/out"
	galacticwar_services "github.com/ta-forever/server/pkg/domain/galacticwar/services"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
	game_services "github.com/ta-forever/server/pkg/domain/game/services"
	rating_out "github.com/ta-forever/server/pkg/domain/rating/ports/out"

	"github.com/ta-forever/server/cmd/server/controllers"
	"github.com/ta-forever/server/cmd/server/middlewares"
	"github.com/ta-forever/server/pkg/infra/broadcaster"
	"github.com/ta-forever/server/pkg/infra/security"
)

const (
	Health = "/health"
	Ready  = "/health/ready"
	Live   = "/health/live"
	Metrics = "/metrics"

	Games        = "/games"
	Game         = "/games/{game_id}"
	GameConnect  = "/games/{game_id}/connect"

	LobbyWebSocket = "/ws/lobby/{player_id}"

	Leaderboard      = "/leaderboards/{rating_type}"
	LeaderboardEntry = "/leaderboards/{rating_type}/players/{player_id}"

	GalacticWarState     = "/galacticwar/state"
	GalacticWarScenarios = "/galacticwar/scenarios"
	GalacticWarScenario  = "/galacticwar/scenarios/{scenario_id}"
	GalacticWarRotate    = "/galacticwar/scenarios/rotate"
)

// NewRouter wires every HTTP-facing endpoint the lobby backbone exposes:
// health/metrics, game lifecycle + the GPGNet-over-websocket connect
// upgrade, the lobby game-list websocket, leaderboard reads and the
// admin-gated Galactic War scenario surface.
func NewRouter(ctx context.Context, c container.Container) http.Handler {
	var config common.Config
	if err := c.Resolve(&config); err != nil {
		slog.ErrorContext(ctx, "failed to resolve config", "error", err)
	}

	var gameService *game_services.GameService
	if err := c.Resolve(&gameService); err != nil {
		slog.ErrorContext(ctx, "failed to resolve GameService", "error", err)
	}
	var playerService *game_services.PlayerService
	if err := c.Resolve(&playerService); err != nil {
		slog.ErrorContext(ctx, "failed to resolve PlayerService", "error", err)
	}
	var galacticWarService *galacticwar_services.GalacticWarService
	if err := c.Resolve(&galacticWarService); err != nil {
		slog.ErrorContext(ctx, "failed to resolve GalacticWarService", "error", err)
	}
	var scenarioRepo galacticwar_out.ScenarioRepository
	if err := c.Resolve(&scenarioRepo); err != nil {
		slog.ErrorContext(ctx, "failed to resolve ScenarioRepository", "error", err)
	}
	var ratingRepo rating_out.RatingRepository
	if err := c.Resolve(&ratingRepo); err != nil {
		slog.ErrorContext(ctx, "failed to resolve RatingRepository", "error", err)
	}
	var b *broadcaster.Broadcaster
	if err := c.Resolve(&b); err != nil {
		slog.ErrorContext(ctx, "failed to resolve Broadcaster", "error", err)
	}
	var rateLimiter *security.AdaptiveRateLimiter
	if err := c.Resolve(&rateLimiter); err != nil {
		slog.ErrorContext(ctx, "failed to resolve AdaptiveRateLimiter", "error", err)
	}
	var alerts game_out.AlertPublisher
	if err := c.Resolve(&alerts); err != nil {
		slog.ErrorContext(ctx, "failed to resolve AlertPublisher", "error", err)
	}
	var queues *game_services.MatchmakerQueueRegistry
	if err := c.Resolve(&queues); err != nil {
		slog.ErrorContext(ctx, "failed to resolve MatchmakerQueueRegistry", "error", err)
	}

	ratingCfg := game_services.RatingTypeConfig{
		Preferred:  "global",
		StartMean:  config.Rating.StartMean,
		StartSigma: config.Rating.StartDev,
	}

	healthController := controllers.NewHealthController(c)
	gameController := controllers.NewGameController(gameService, playerService, ratingCfg, alerts, queues)
	lobbyWS := controllers.NewLobbyWebSocketController(b, playerService)
	leaderboardController := controllers.NewLeaderboardController(ratingRepo)
	galacticWarController := controllers.NewGalacticWarController(galacticWarService, scenarioRepo)

	adminAuth := middlewares.NewAdminAuthMiddleware(config.Admin.PasswordHash)
	adaptiveRateLimit := middlewares.NewAdaptiveRateLimitMiddleware(rateLimiter)
	cors := middlewares.NewCORSMiddleware()

	r := mux.NewRouter()
	r.Use(middlewares.ErrorMiddleware)
	r.Use(cors.Handler)
	r.Use(mux.CORSMethodMiddleware(r))

	r.HandleFunc(Health, healthController.HealthCheck(ctx)).Methods(http.MethodGet)
	r.HandleFunc(Ready, healthController.ReadinessCheck(ctx)).Methods(http.MethodGet)
	r.HandleFunc(Live, healthController.LivenessCheck(ctx)).Methods(http.MethodGet)
	r.Handle(Metrics, healthController.MetricsHandler()).Methods(http.MethodGet)

	r.Handle(Games, adaptiveRateLimit.Handler(http.HandlerFunc(gameController.CreateGame(ctx)))).Methods(http.MethodPost)
	r.HandleFunc(Games, gameController.ListGames(ctx)).Methods(http.MethodGet)
	r.HandleFunc(Game, gameController.GetGame(ctx)).Methods(http.MethodGet)
	r.Handle(GameConnect, adaptiveRateLimit.Handler(http.HandlerFunc(gameController.Connect(ctx)))).Methods(http.MethodGet)

	r.HandleFunc(LobbyWebSocket, lobbyWS.UpgradeConnection(ctx)).Methods(http.MethodGet)

	r.HandleFunc(Leaderboard, leaderboardController.ListTop(ctx)).Methods(http.MethodGet)
	r.HandleFunc(LeaderboardEntry, leaderboardController.GetEntry(ctx)).Methods(http.MethodGet)

	r.HandleFunc(GalacticWarState, galacticWarController.GetState(ctx)).Methods(http.MethodGet)
	r.HandleFunc(GalacticWarScenarios, galacticWarController.ListScenarios(ctx)).Methods(http.MethodGet)
	r.Handle(GalacticWarScenario, adminAuth.Handler(http.HandlerFunc(galacticWarController.GetScenario(ctx)))).Methods(http.MethodGet)
	r.Handle(GalacticWarRotate, adaptiveRateLimit.Handler(adminAuth.Handler(http.HandlerFunc(galacticWarController.RotateScenario(ctx))))).Methods(http.MethodPost)

	return r
}
