package rating_ports_out

import (
	"context"

	rating_entities "github.com/ta-forever/server/pkg/domain/rating/entities"
	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// RatingRepository persists the leaderboard rows and journal a finished,
// rated game produces. PersistBatch is called once per game, after the
// whole batch of player rating changes has been computed, so a game's
// rating update is all-or-nothing from storage's point of view.
type RatingRepository interface {
	FindLeaderboardEntry(ctx context.Context, ratingType game_vo.RatingType, playerID game_entities.PlayerID) (*rating_entities.LeaderboardEntry, error)
	PersistBatch(ctx context.Context, ratingType game_vo.RatingType, entries []rating_entities.LeaderboardEntry, journal []rating_entities.RatingChangeJournalEntry) error

	// ListTop returns up to limit entries for a rating type ordered by
	// descending conservative rating, for serving a leaderboard page.
	ListTop(ctx context.Context, ratingType game_vo.RatingType, limit int) ([]rating_entities.LeaderboardEntry, error)
}
