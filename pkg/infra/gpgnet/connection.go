// Package gpgnet implements the game-connection transport: the original
// server spoke GPGNet, a length-prefixed binary framing over a raw TCP
// socket; this adapter carries the same command vocabulary as JSON frames,
// one per websocket text message, implementing game_ports_out's
// Connection and Protocol against it.
package gpgnet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_in "github.com/ta-forever/server/pkg/domain/game/ports/in"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
)

// WriteTimeout bounds a single outbound frame write, so one stalled
// client can never block the goroutine serving the rest of its game.
const WriteTimeout = 5 * time.Second

// Conn wraps one player's websocket session, implementing
// game_ports_out.Connection. A single mutex serializes writes; gorilla's
// websocket.Conn forbids concurrent writers.
type Conn struct {
	playerID game_entities.PlayerID
	ws       *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func NewConn(playerID game_entities.PlayerID, ws *websocket.Conn) *Conn {
	return &Conn{playerID: playerID, ws: ws}
}

var _ game_out.Connection = (*Conn)(nil)

func (c *Conn) PlayerID() game_entities.PlayerID { return c.playerID }

func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Abort closes the underlying socket. Idempotent: a second call on an
// already-closed connection is a no-op, matching the Connection contract.
func (c *Conn) Abort(ctx context.Context, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(WriteTimeout))
	return c.ws.Close()
}

func (c *Conn) writeFrame(kind string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection for player %d is closed", c.playerID)
	}
	frame := wireFrame{Kind: kind, Payload: payload}
	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", kind, err)
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, body)
}

// wireFrame is the single envelope every command, inbound or outbound,
// travels in: a kind tag plus a kind-specific JSON payload.
type wireFrame struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JSONProtocol implements game_ports_out.Protocol by writing one wireFrame
// per server-to-client command.
type JSONProtocol struct{}

func NewJSONProtocol() *JSONProtocol { return &JSONProtocol{} }

var _ game_out.Protocol = (*JSONProtocol)(nil)

type hostGamePayload struct {
	Map string `json:"map"`
}

func (p *JSONProtocol) SendHostGame(ctx context.Context, conn game_out.Connection, mapName string) error {
	return toConn(conn).writeFrame("HostGame", hostGamePayload{Map: mapName})
}

type peerPayload struct {
	PlayerID game_entities.PlayerID `json:"player_id"`
	Login    string                 `json:"login"`
	Offer    bool                   `json:"offer,omitempty"`
}

func (p *JSONProtocol) SendJoinGame(ctx context.Context, conn game_out.Connection, remotePlayerID game_entities.PlayerID, remotePlayerLogin string) error {
	return toConn(conn).writeFrame("JoinGame", peerPayload{PlayerID: remotePlayerID, Login: remotePlayerLogin})
}

// SendConnectToPeer asks conn's owner to open an ICE connection to
// remotePlayerID. offer distinguishes which side initiates the SDP
// exchange: the newcomer in a peer pairing is told offer=false while the
// already-seated peer it is pairing with is told offer=true.
func (p *JSONProtocol) SendConnectToPeer(ctx context.Context, conn game_out.Connection, remotePlayerID game_entities.PlayerID, remotePlayerLogin string, offer bool) error {
	return toConn(conn).writeFrame("ConnectToPeer", peerPayload{PlayerID: remotePlayerID, Login: remotePlayerLogin, Offer: offer})
}

type disconnectPeerPayload struct {
	PlayerID game_entities.PlayerID `json:"player_id"`
}

func (p *JSONProtocol) SendDisconnectFromPeer(ctx context.Context, conn game_out.Connection, remotePlayerID game_entities.PlayerID) error {
	return toConn(conn).writeFrame("DisconnectFromPeer", disconnectPeerPayload{PlayerID: remotePlayerID})
}

type iceMessagePayload struct {
	PlayerID game_entities.PlayerID `json:"player_id"`
	Payload  interface{}            `json:"payload"`
}

func (p *JSONProtocol) SendIceMessage(ctx context.Context, conn game_out.Connection, remotePlayerID game_entities.PlayerID, payload interface{}) error {
	return toConn(conn).writeFrame("IceMsg", iceMessagePayload{PlayerID: remotePlayerID, Payload: payload})
}

func toConn(conn game_out.Connection) *Conn {
	c, ok := conn.(*Conn)
	if !ok {
		panic(fmt.Sprintf("gpgnet: unexpected Connection implementation %T", conn))
	}
	return c
}

// ReadLoop decodes inbound wireFrames off ws and dispatches each to
// handle until the socket errors or closes. Callers run this on its own
// goroutine per connection.
func ReadLoop(ctx context.Context, ws *websocket.Conn, playerID game_entities.PlayerID, handle func(context.Context, game_in.Command) error) {
	for {
		_, body, err := ws.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := decodeCommand(body)
		if err != nil {
			slog.WarnContext(ctx, "gpgnet: dropping unparseable frame", "player_id", playerID, "error", err)
			continue
		}
		if cmd == nil {
			continue
		}
		if err := handle(ctx, cmd); err != nil {
			slog.ErrorContext(ctx, "gpgnet: command handling failed", "player_id", playerID, "error", err)
		}
	}
}

func decodeCommand(body []byte) (game_in.Command, error) {
	var frame wireFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		return nil, fmt.Errorf("decoding frame envelope: %w", err)
	}

	switch frame.Kind {
	case "GameState":
		var p struct {
			State game_entities.GameState `json:"state"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.GameStateCommand{State: p.State}, nil
	case "GameOption":
		var p struct {
			Key   string      `json:"key"`
			Value interface{} `json:"value"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.GameOptionCommand{Key: p.Key, Value: p.Value}, nil
	case "PlayerOption":
		var p struct {
			PlayerID game_entities.PlayerID `json:"player_id"`
			Key      string                 `json:"key"`
			Value    interface{}            `json:"value"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.PlayerOptionCommand{PlayerID: p.PlayerID, Key: p.Key, Value: p.Value}, nil
	case "AIOption":
		var p struct {
			Name  string      `json:"name"`
			Key   string      `json:"key"`
			Value interface{} `json:"value"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.AIOptionCommand{Name: p.Name, Key: p.Key, Value: p.Value}, nil
	case "ClearSlot":
		var p struct {
			StartSpot int `json:"start_spot"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.ClearSlotCommand{StartSpot: p.StartSpot}, nil
	case "GameMods":
		var p struct {
			Mode string   `json:"mode"`
			Args []string `json:"args"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.GameModsCommand{Mode: p.Mode, Args: p.Args}, nil
	case "GameResult":
		var p struct {
			Army int    `json:"army"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.GameResultCommand{Army: p.Army, Text: p.Text}, nil
	case "GameEnded":
		return game_in.GameEndedCommand{}, nil
	case "TeamkillHappened":
		var p struct {
			VictimID   game_entities.PlayerID `json:"victim_id"`
			KillerID   game_entities.PlayerID `json:"killer_id"`
			OccurredAt int64                  `json:"occurred_at"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.TeamkillHappenedCommand{VictimID: p.VictimID, KillerID: p.KillerID, OccurredAt: p.OccurredAt}, nil
	case "OperationComplete":
		var p struct {
			OperationID              int `json:"operation_id"`
			SecondaryObjectivesCount int `json:"secondary_objectives_count"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.OperationCompleteCommand{OperationID: p.OperationID, SecondaryObjectivesCount: p.SecondaryObjectivesCount}, nil
	case "JsonStats":
		var p struct {
			Blob string `json:"blob"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.JsonStatsCommand{Blob: p.Blob}, nil
	case "EnforceRating":
		return game_in.EnforceRatingCommand{}, nil
	case "IceMsg":
		var p struct {
			ReceiverID game_entities.PlayerID `json:"receiver_id"`
			Payload    interface{}            `json:"payload"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.IceMsgCommand{ReceiverID: p.ReceiverID, Payload: p.Payload}, nil
	case "GameMetrics":
		var p struct {
			Kind  string      `json:"kind"`
			Value interface{} `json:"value"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.GameMetricsCommand{Kind: p.Kind, Value: p.Value}, nil
	case "Desync":
		return game_in.DesyncCommand{}, nil
	case "Chat":
		var p struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.ChatCommand{Text: p.Text}, nil
	case "Rehost":
		return game_in.RehostCommand{}, nil
	case "Bottleneck":
		return game_in.BottleneckCommand{}, nil
	case "BottleneckCleared":
		return game_in.BottleneckClearedCommand{}, nil
	case "Disconnected":
		var p struct {
			FromPlayerID game_entities.PlayerID `json:"from_player_id"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return nil, err
		}
		return game_in.DisconnectedCommand{FromPlayerID: p.FromPlayerID}, nil
	case "GameFull":
		return game_in.GameFullCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown command kind %q", frame.Kind)
	}
}
