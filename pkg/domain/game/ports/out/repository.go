package game_ports_out

import (
	"context"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
)

// GameRepository persists a game's terminal state. Games are never queried
// mid-life from storage; the in-memory GameService registry is the
// authoritative source while a game is live.
type GameRepository interface {
	SaveEnded(ctx context.Context, info *game_entities.EndedGameInfo) error
	FindByID(ctx context.Context, id game_entities.GameID) (*game_entities.Game, error)
}

// PlayerRepository persists player rows (login identity, ratings,
// game counts). Presence/connection state never round-trips to storage.
type PlayerRepository interface {
	FindByID(ctx context.Context, id game_entities.PlayerID) (*game_entities.Player, error)
	Save(ctx context.Context, p *game_entities.Player) error
}

// MessageBus is the outbound event sink a Game/Player lifecycle change is
// published to: the Kafka-backed adapter in production, a fake in tests.
type MessageBus interface {
	PublishGameEnded(ctx context.Context, info *game_entities.EndedGameInfo) error
}

// AlertPublisher forwards an ops-facing notification (teamkills) off the
// hot path; implementations must never block or error
// back to the caller.
type AlertPublisher interface {
	Publish(ctx context.Context, kind, message string)
}
