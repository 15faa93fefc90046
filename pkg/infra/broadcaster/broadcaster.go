// Package broadcaster implements the lobby-client fan-out loop: a single
// event-loop hub, in the shape of the source server's WebSocket hub, that
// periodically drains the dirty games/players GameService and
// PlayerService have accumulated and pushes a per-recipient filtered
// snapshot to every connected lobby client.
package broadcaster

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	galacticwar_entities "github.com/ta-forever/server/pkg/domain/galacticwar/entities"
	galacticwar_services "github.com/ta-forever/server/pkg/domain/galacticwar/services"
	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_services "github.com/ta-forever/server/pkg/domain/game/services"
	"github.com/ta-forever/server/pkg/infra/metrics"
)

// FlushInterval is how often the Broadcaster drains dirty state and
// pushes updates, independent of how fast individual games mutate.
const FlushInterval = 1 * time.Second

// Client is one lobby-browsing connection: not a GameConnection, these
// are spectators of the game list itself (the client's lobby screen).
type Client struct {
	PlayerID        game_entities.PlayerID
	Conn            *websocket.Conn
	Send            chan []byte
	DisplayedRating float64
	IsGameConnected bool
	Friends         map[game_entities.PlayerID]struct{}
	Foes            map[game_entities.PlayerID]struct{}
}

// GameListMessage is the wire payload pushed to a lobby client: the
// subset of currently-visible games and players, filtered per recipient.
type GameListMessage struct {
	Type    string                `json:"type"`
	Games   []*game_entities.Game `json:"games,omitempty"`
	Removed []game_entities.GameID `json:"removed,omitempty"`
}

// PlayerListMessage is the player_info batch: every player whose presence
// or rating changed since the last tick, unfiltered (player presence has
// no per-recipient visibility rule, unlike games).
type PlayerListMessage struct {
	Type    string                  `json:"type"`
	Players []*game_entities.Player `json:"players"`
}

// GalacticWarUpdateMessage carries the live campaign map whenever
// GalacticWarService reports itself dirty.
type GalacticWarUpdateMessage struct {
	Type  string                     `json:"type"`
	State *galacticwar_entities.State `json:"state"`
}

type Broadcaster struct {
	games       *game_services.GameService
	players     *game_services.PlayerService
	galacticWar *galacticwar_services.GalacticWarService

	mu      sync.RWMutex
	clients map[game_entities.PlayerID]*Client

	register   chan *Client
	unregister chan *Client
}

func NewBroadcaster(games *game_services.GameService, players *game_services.PlayerService, galacticWar *galacticwar_services.GalacticWarService) *Broadcaster {
	return &Broadcaster{
		games:       games,
		players:     players,
		galacticWar: galacticWar,
		clients:     make(map[game_entities.PlayerID]*Client),
		register:    make(chan *Client, 256),
		unregister:  make(chan *Client, 256),
	}
}

func (b *Broadcaster) RegisterClient(c *Client) {
	b.register <- c
}

func (b *Broadcaster) UnregisterClient(c *Client) {
	b.unregister <- c
}

// Run is the single event-loop goroutine: it owns the client map so
// register/unregister never race a concurrent flush, and it ticks the
// dirty-flush independent of connection churn.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return
		case c := <-b.register:
			b.mu.Lock()
			b.clients[c.PlayerID] = c
			b.mu.Unlock()
			slog.InfoContext(ctx, "lobby client connected", "player_id", c.PlayerID)
		case c := <-b.unregister:
			b.mu.Lock()
			if existing, ok := b.clients[c.PlayerID]; ok && existing == c {
				delete(b.clients, c.PlayerID)
				close(c.Send)
			}
			b.mu.Unlock()
		case <-ticker.C:
			b.flush(ctx)
		}
	}
}

func (b *Broadcaster) flush(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.BroadcasterFlushSeconds.Observe(time.Since(start).Seconds()) }()

	b.flushGames(ctx)
	b.flushPlayers(ctx)
	b.flushGalacticWar(ctx)
}

func (b *Broadcaster) flushGames(ctx context.Context) {
	dirty := b.games.DrainDirty()
	if len(dirty) == 0 {
		return
	}

	byID := make(map[game_entities.GameID]*game_entities.Game, len(dirty))
	for _, g := range b.games.All() {
		if _, isDirty := dirty[g.ID]; isDirty {
			byID[g.ID] = g
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		visible := make([]*game_entities.Game, 0, len(dirty))
		for _, g := range byID {
			if dirty[g.ID].OnlyToPeers {
				peer := false
				for _, pid := range g.Players() {
					peer = peer || pid == c.PlayerID
				}
				if !peer {
					continue
				}
			}
			if g.IsVisibleTo(c.PlayerID, c.IsGameConnected, c.DisplayedRating, c.Friends, c.Foes) {
				visible = append(visible, g)
			}
		}
		if len(visible) == 0 {
			continue
		}
		payload, err := json.Marshal(GameListMessage{Type: "game_list_update", Games: visible})
		if err != nil {
			slog.ErrorContext(ctx, "failed to marshal game list update", "error", err)
			continue
		}
		b.send(c, payload)
	}
}

// flushPlayers emits one player_info batch for every dirty player, to
// every connection; player presence carries no per-recipient visibility
// rule the way games do.
func (b *Broadcaster) flushPlayers(ctx context.Context) {
	ids := b.players.DrainDirty()
	if len(ids) == 0 {
		return
	}

	updated := make([]*game_entities.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := b.players.Lookup(id); ok {
			updated = append(updated, p)
		}
	}
	if len(updated) == 0 {
		return
	}

	payload, err := json.Marshal(PlayerListMessage{Type: "player_info", Players: updated})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal player info update", "error", err)
		return
	}
	b.broadcastAll(payload)
}

// flushGalacticWar emits the live campaign map whenever GalacticWarService
// has marked itself dirty since the last tick.
func (b *Broadcaster) flushGalacticWar(ctx context.Context) {
	if b.galacticWar == nil || !b.galacticWar.IsDirty() {
		return
	}
	state := b.galacticWar.State()
	if state == nil {
		return
	}
	payload, err := json.Marshal(GalacticWarUpdateMessage{Type: "galactic_war_update", State: state})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal galactic war update", "error", err)
		return
	}
	b.broadcastAll(payload)
}

func (b *Broadcaster) broadcastAll(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		b.send(c, payload)
	}
}

func (b *Broadcaster) send(c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		slog.Warn("lobby client send buffer full, dropping update", "player_id", c.PlayerID)
	}
}

// ExternalBroadcastMessage wraps an event that originated on another
// instance, relayed via the Kafka websocket bridge, for direct forwarding
// to lobby clients.
type ExternalBroadcastMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// BroadcastExternal pushes a pre-encoded event, received from another
// instance via the Kafka websocket bridge, straight to every connected
// lobby client without going through the dirty-flush diffing path: the
// origin instance already computed its own per-recipient visibility, so
// this is used for instance-wide notices (a game's lifecycle flipping
// state) rather than per-recipient game list deltas.
func (b *Broadcaster) BroadcastExternal(eventType string, payload json.RawMessage) {
	msg, err := json.Marshal(ExternalBroadcastMessage{Type: eventType, Payload: payload})
	if err != nil {
		slog.Error("failed to marshal external broadcast envelope", "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		select {
		case c.Send <- msg:
		default:
			slog.Warn("lobby client send buffer full, dropping external broadcast", "player_id", c.PlayerID)
		}
	}
}

func (b *Broadcaster) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.clients {
		close(c.Send)
	}
	slog.Info("broadcaster shut down")
}

// WritePump drains a client's Send channel onto its websocket connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Error("broadcaster write error", "player_id", c.PlayerID, "error", err)
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
