package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
)

// LobbyBroadcaster is the subset of pkg/infra/broadcaster.Broadcaster this
// bridge needs: a way to push an update that originated on another
// instance onto this instance's connected lobby clients.
type LobbyBroadcaster interface {
	BroadcastExternal(eventType string, payload json.RawMessage)
}

// WebSocketBridge fans Kafka game-lifecycle and lobby-broadcast events into
// this process's Broadcaster, so a player connected to instance A sees a
// game hosted and updated on instance B without either instance dialing
// the other directly. This is what lets the lobby service run as more than
// one replica behind a load balancer.
type WebSocketBridge struct {
	client      *Client
	consumer    *Consumer
	broadcaster LobbyBroadcaster
	publisher   *EventPublisher
	instanceID  string
}

// NewWebSocketBridge creates a new bridge between Kafka and this instance's
// lobby Broadcaster.
func NewWebSocketBridge(client *Client, broadcaster LobbyBroadcaster, instanceID string) *WebSocketBridge {
	groupID := "websocket-bridge-" + instanceID
	config := DefaultConsumerConfig(groupID, []string{TopicWebSocketBroadcast, TopicGameLifecycle})
	consumer := NewConsumer(client, config)

	bridge := &WebSocketBridge{
		client:      client,
		consumer:    consumer,
		broadcaster: broadcaster,
		publisher:   NewEventPublisher(client),
		instanceID:  instanceID,
	}

	consumer.RegisterHandler(TopicWebSocketBroadcast, bridge.handleWebSocketBroadcast)
	consumer.RegisterHandler(TopicGameLifecycle, bridge.handleGameLifecycle)

	return bridge
}

func (b *WebSocketBridge) handleWebSocketBroadcast(ctx context.Context, msg *kafka.Message) error {
	var event WebSocketBroadcastEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		slog.ErrorContext(ctx, "failed to decode websocket broadcast event", "error", err)
		return nil
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to re-encode broadcast payload", "error", err)
		return nil
	}

	b.broadcaster.BroadcastExternal(event.Type, payload)
	return nil
}

func (b *WebSocketBridge) handleGameLifecycle(ctx context.Context, msg *kafka.Message) error {
	var event GameLifecycleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		slog.ErrorContext(ctx, "failed to decode game lifecycle event", "error", err)
		return nil
	}

	payload, err := json.Marshal(struct {
		GameID game_entities.GameID    `json:"game_id"`
		State  game_entities.GameState `json:"state"`
	}{GameID: event.GameID, State: event.State})
	if err != nil {
		return nil
	}

	b.broadcaster.BroadcastExternal("game_lifecycle", payload)
	return nil
}

// Start begins consuming bridged events until ctx is cancelled.
func (b *WebSocketBridge) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "starting websocket-kafka bridge", "instance_id", b.instanceID)
	return b.consumer.Start(ctx)
}

// Close shuts down the bridge's Kafka consumer.
func (b *WebSocketBridge) Close() error {
	return b.consumer.Close()
}

// Publisher exposes the underlying EventPublisher so HTTP/websocket
// handlers on this instance can mirror a local broadcast onto Kafka for
// other instances to pick up.
func (b *WebSocketBridge) Publisher() *EventPublisher {
	return b.publisher
}
