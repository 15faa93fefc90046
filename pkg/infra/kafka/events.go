package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
)

// Topic constants for the game-session event stream.
const (
	TopicGameLifecycle     = "lobby.game.lifecycle"
	TopicGameResults       = "lobby.game.results"
	TopicRatingChanges     = "lobby.rating.changes"
	TopicGalacticWarEvents = "lobby.galacticwar.events"
	TopicWebSocketBroadcast = "lobby.websocket.broadcasts"
	TopicDLQ               = "lobby.dlq"
)

// Event types
const (
	EventTypeGameCreated    = "GAME_CREATED"
	EventTypeGameLaunching  = "GAME_LAUNCHING"
	EventTypeGameLive       = "GAME_LIVE"
	EventTypeGameEnded      = "GAME_ENDED"
	EventTypeRatingApplied  = "RATING_APPLIED"
	EventTypePlanetCaptured = "PLANET_CAPTURED"
)

// EventPublisher publishes game-session domain events to Kafka topics. It
// implements game_ports_out.MessageBus.
type EventPublisher struct {
	client *Client
}

func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// GameLifecycleEvent announces a Game's state transition to downstream
// consumers (the web lobby, stream overlays, GW front-line workers).
type GameLifecycleEvent struct {
	EventID   uuid.UUID                `json:"event_id"`
	GameID    game_entities.GameID     `json:"game_id"`
	State     game_entities.GameState  `json:"state"`
	HostID    game_entities.PlayerID   `json:"host_id"`
	Timestamp int64                    `json:"timestamp"`
}

func (p *EventPublisher) PublishGameLifecycle(ctx context.Context, g *game_entities.Game) error {
	if p.client == nil {
		return nil
	}
	event := &GameLifecycleEvent{
		EventID:   uuid.New(),
		GameID:    g.ID,
		State:     g.State,
		HostID:    g.HostID,
		Timestamp: time.Now().UnixMilli(),
	}

	msg := &Message{
		Key:       strconv.FormatInt(int64(event.GameID), 10),
		Value:     event,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"event_type": string(event.State),
		},
	}

	return p.client.Publish(ctx, TopicGameLifecycle, msg)
}

// PublishGameEnded implements game_ports_out.MessageBus: it is the single
// outbound event fired once a game finalizes, carrying the full result
// summary (GameService has only enqueued the game for rating by this
// point, so ratings may not be applied yet; this is for read-models and
// notifications).
func (p *EventPublisher) PublishGameEnded(ctx context.Context, info *game_entities.EndedGameInfo) error {
	if p.client == nil {
		return nil
	}

	msg := &Message{
		Key:       strconv.FormatInt(int64(info.GameID), 10),
		Value:     info,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"event_type": EventTypeGameEnded,
		},
	}

	return p.client.Publish(ctx, TopicGameResults, msg)
}

// RatingChangeEvent reports one player's rating movement after a rated game.
type RatingChangeEvent struct {
	EventID    uuid.UUID              `json:"event_id"`
	PlayerID   game_entities.PlayerID `json:"player_id"`
	RatingType string                 `json:"rating_type"`
	NewMu      float64                `json:"new_mu"`
	NewSigma   float64                `json:"new_sigma"`
	Timestamp  int64                  `json:"timestamp"`
}

func (p *EventPublisher) PublishRatingChange(ctx context.Context, event *RatingChangeEvent) error {
	if p.client == nil {
		return nil
	}
	event.EventID = uuid.New()
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	msg := &Message{
		Key:       strconv.FormatInt(int64(event.PlayerID), 10),
		Value:     event,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"event_type":  EventTypeRatingApplied,
			"rating_type": event.RatingType,
		},
	}

	return p.client.Publish(ctx, TopicRatingChanges, msg)
}

// PlanetCapturedEvent announces a galactic war front-line change.
type PlanetCapturedEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Planet    string    `json:"planet"`
	Faction   string    `json:"faction"`
	Timestamp int64     `json:"timestamp"`
}

func (p *EventPublisher) PublishPlanetCaptured(ctx context.Context, planet, faction string) error {
	if p.client == nil {
		return nil
	}
	event := &PlanetCapturedEvent{
		EventID:   uuid.New(),
		Planet:    planet,
		Faction:   faction,
		Timestamp: time.Now().UnixMilli(),
	}

	msg := &Message{
		Key:       planet,
		Value:     event,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"event_type": EventTypePlanetCaptured,
		},
	}

	return p.client.Publish(ctx, TopicGalacticWarEvents, msg)
}

// WebSocketBroadcastEvent carries one lobby broadcast onto Kafka so other
// regions / services can observe it without a direct websocket connection
// to this instance. The Broadcaster's own flushes are not published here;
// only explicit PublishWebSocketBroadcast calls are.
type WebSocketBroadcastEvent struct {
	EventID   uuid.UUID   `json:"event_id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

func (p *EventPublisher) PublishWebSocketBroadcast(ctx context.Context, eventType string, payload interface{}) error {
	if p.client == nil {
		return nil
	}
	event := &WebSocketBroadcastEvent{
		EventID:   uuid.New(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	msg := &Message{
		Key:       "broadcast",
		Value:     event,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"event_type": eventType,
		},
	}

	return p.client.Publish(ctx, TopicWebSocketBroadcast, msg)
}

// PublishToDLQ publishes a failed message to the dead letter queue so a
// poison event never blocks its topic's consumer group.
func (p *EventPublisher) PublishToDLQ(ctx context.Context, originalTopic string, originalKey string, value interface{}, err error) error {
	dlqEvent := map[string]interface{}{
		"original_topic": originalTopic,
		"original_key":   originalKey,
		"value":          value,
		"error":          err.Error(),
		"timestamp":      time.Now().UnixMilli(),
	}

	msg := &Message{
		Key:       uuid.New().String(),
		Value:     dlqEvent,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"original_topic": originalTopic,
			"error_type":     "processing_failed",
		},
	}

	return p.client.Publish(ctx, TopicDLQ, msg)
}
