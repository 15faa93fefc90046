package game_ports_out

import (
	"context"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// RatingPublisher is GameService's one-way door into RatingService:
// implemented by pkg/domain/rating so that game does not import rating.
type RatingPublisher interface {
	Enqueue(ctx context.Context, info *game_entities.EndedGameInfo) error
}

// PlayerRatingSink is RatingService's one-way door back into
// PlayerService, implemented by game_services.PlayerService, so that
// rating does not need game_services to depend on rating.
type PlayerRatingSink interface {
	ApplyRatingChange(ctx context.Context, id game_entities.PlayerID, ratingType game_vo.RatingType, rating game_entities.RatingValue) error
}
