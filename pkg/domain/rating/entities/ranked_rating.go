// Package rating_entities holds the value types RatingService computes
// and persists, as distinct from game_entities.RatingValue which is the
// (mean, sigma) pair stored against a Player.
package rating_entities

import game_entities "github.com/ta-forever/server/pkg/domain/game/entities"

// LeaderboardEntry is one player's rank within a rating type, derived by
// sorting all players' PenisPoints descending.
type LeaderboardEntry struct {
	PlayerID        game_entities.PlayerID    `json:"player_id" bson:"player_id"`
	Rating          game_entities.RatingValue `json:"rating" bson:"rating"`
	Rank            int                       `json:"rank" bson:"rank"`
	LeaderboardSize int                       `json:"leaderboard_size" bson:"leaderboard_size"`
	GamesPlayed     int                       `json:"games_played" bson:"games_played"`
	Streak          int                       `json:"streak" bson:"streak"`
	BestStreak      int                       `json:"best_streak" bson:"best_streak"`
	RecentScores    []int                     `json:"recent_scores" bson:"recent_scores"`

	// ConservativeRating mirrors Rating.PenisPoints() at write time so the
	// repository can sort/index a top-N query without a server-side
	// aggregation recomputing it from Mean/Sigma on every read.
	ConservativeRating float64 `json:"conservative_rating" bson:"conservative_rating"`
}

// RatingChangeJournalEntry is one append-only row of a player's rating
// history, written alongside every leaderboard update.
type RatingChangeJournalEntry struct {
	GameID    game_entities.GameID      `json:"game_id" bson:"game_id"`
	PlayerID  game_entities.PlayerID    `json:"player_id" bson:"player_id"`
	Before    game_entities.RatingValue `json:"before" bson:"before"`
	After     game_entities.RatingValue `json:"after" bson:"after"`
	Outcome   game_entities.GameOutcome `json:"outcome" bson:"outcome"`
}
