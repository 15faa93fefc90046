package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_services "github.com/ta-forever/server/pkg/domain/game/services"
	"github.com/ta-forever/server/pkg/infra/broadcaster"
)

// LobbyWebSocketController upgrades a lobby-browsing connection and hands
// it to the Broadcaster for the game-list fan-out. This is distinct from
// GameConnection, which handles a single game's peer-to-peer signaling.
type LobbyWebSocketController struct {
	helper      *ControllerHelper
	broadcaster *broadcaster.Broadcaster
	players     *game_services.PlayerService
	upgrader    websocket.Upgrader
}

func NewLobbyWebSocketController(b *broadcaster.Broadcaster, players *game_services.PlayerService) *LobbyWebSocketController {
	return &LobbyWebSocketController{
		helper:      NewControllerHelper(),
		broadcaster: b,
		players:     players,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// UpgradeConnection handles GET /ws/lobby/{player_id}.
func (h *LobbyWebSocketController) UpgradeConnection(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerIDRaw := mux.Vars(r)["player_id"]
		playerID, err := strconv.ParseInt(playerIDRaw, 10, 64)
		if err != nil {
			h.helper.WriteBadRequest(w, r, "player_id must be an integer")
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to upgrade lobby websocket", "player_id", playerID, "error", err)
			return
		}

		client := &broadcaster.Client{
			PlayerID: game_entities.PlayerID(playerID),
			Conn:     conn,
			Send:     make(chan []byte, 64),
			Friends:  make(map[game_entities.PlayerID]struct{}),
			Foes:     make(map[game_entities.PlayerID]struct{}),
		}

		h.broadcaster.RegisterClient(client)
		go client.WritePump()
		go h.readPump(r.Context(), client)

		slog.InfoContext(r.Context(), "lobby websocket client connected", "player_id", playerID)
	}
}

// readPump discards inbound lobby-browsing traffic; this connection is
// server-to-client only, aside from the control frames gorilla/websocket
// handles internally (ping/pong, close). Reading until error is what
// detects the client going away so the client can be unregistered.
func (h *LobbyWebSocketController) readPump(ctx context.Context, client *broadcaster.Client) {
	defer h.broadcaster.UnregisterClient(client)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
