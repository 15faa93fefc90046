package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
	game_services "github.com/ta-forever/server/pkg/domain/game/services"
	"github.com/ta-forever/server/pkg/infra/gpgnet"
)

// GameController exposes game lifecycle over REST (create, read, list) and
// upgrades a player's /connect request to the GPGNet-over-websocket
// transport that drives a GameConnection for the rest of that game's life.
type GameController struct {
	helper    *ControllerHelper
	games     *game_services.GameService
	players   *game_services.PlayerService
	ratingCfg game_services.RatingTypeConfig
	alerts    game_out.AlertPublisher
	queues    *game_services.MatchmakerQueueRegistry
	upgrader  websocket.Upgrader
}

func NewGameController(games *game_services.GameService, players *game_services.PlayerService, ratingCfg game_services.RatingTypeConfig, alerts game_out.AlertPublisher, queues *game_services.MatchmakerQueueRegistry) *GameController {
	return &GameController{
		helper:    NewControllerHelper(),
		games:     games,
		players:   players,
		ratingCfg: ratingCfg,
		alerts:    alerts,
		queues:    queues,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type createGameRequest struct {
	Kind        game_entities.GameKind `json:"kind"`
	HostID      game_entities.PlayerID `json:"host_id"`
	FeaturedMod string                 `json:"featured_mod"`
	MaxPlayers  int                    `json:"max_players"`
}

// CreateGame handles POST /games.
func (c *GameController) CreateGame(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := c.helper.DecodeJSONRequest(w, r, &req); err != nil {
			return
		}
		if req.MaxPlayers <= 0 {
			c.helper.WriteBadRequest(w, r, "max_players must be positive")
			return
		}
		g := c.games.CreateGame(req.Kind, req.HostID, req.FeaturedMod, req.MaxPlayers)
		c.helper.WriteCreated(w, r, g, "/games/"+strconv.FormatInt(int64(g.ID), 10))
	}
}

// GetGame handles GET /games/{game_id}.
func (c *GameController) GetGame(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGameID(r)
		if err != nil {
			c.helper.WriteBadRequest(w, r, err.Error())
			return
		}
		g, err := c.games.Get(id)
		if c.helper.HandleError(w, r, err, "failed to get game") {
			return
		}
		c.helper.WriteOK(w, r, g)
	}
}

// ListGames handles GET /games.
func (c *GameController) ListGames(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.helper.WriteOK(w, r, c.games.All())
	}
}

// Connect handles GET /games/{game_id}/connect?player_id=N: upgrades to a
// websocket carrying the GPGNet command stream and runs a GameConnection
// against it until the socket closes.
func (c *GameController) Connect(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := parseGameID(r)
		if err != nil {
			c.helper.WriteBadRequest(w, r, err.Error())
			return
		}
		playerID, err := strconv.ParseInt(r.URL.Query().Get("player_id"), 10, 64)
		if err != nil {
			c.helper.WriteBadRequest(w, r, "player_id query parameter is required")
			return
		}

		g, err := c.games.Get(gameID)
		if c.helper.HandleError(w, r, err, "failed to get game for connect") {
			return
		}

		ws, err := c.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to upgrade game connection", "game_id", gameID, "error", err)
			return
		}

		conn := gpgnet.NewConn(game_entities.PlayerID(playerID), ws)
		protocol := gpgnet.NewJSONProtocol()
		gameConn := game_services.NewGameConnection(g, game_entities.PlayerID(playerID), conn, protocol, c.games, c.players, c.ratingCfg, c.alerts, c.queues)

		connCtx, cancel := context.WithCancel(context.Background())
		go gameConn.Run(connCtx)
		defer cancel()

		gpgnet.ReadLoop(connCtx, ws, game_entities.PlayerID(playerID), gameConn.HandleCommand)
		_ = gameConn.Abort(connCtx, "connection closed")
	}
}

func parseGameID(r *http.Request) (game_entities.GameID, error) {
	raw := mux.Vars(r)["game_id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return game_entities.GameID(id), nil
}
