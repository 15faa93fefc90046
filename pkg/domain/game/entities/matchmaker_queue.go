package game_entities

import (
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// MatchmakerQueueID names one configured matchmaker queue, e.g. "ladder1v1"
// or "ladder2v2".
type MatchmakerQueueID string

// MatchmakerQueue is a configured automatch pool: a featured mod, the team
// size it matches on, the rating type its results feed, and the map pool
// it draws from. assign_rating_type (spec §4.1.1) searches the registry of
// these to classify a non-matchmaker-origin lobby.
type MatchmakerQueue struct {
	ID          MatchmakerQueueID  `json:"id" bson:"_id"`
	FeaturedMod string             `json:"featured_mod" bson:"featured_mod"`
	TeamSize    int                `json:"team_size" bson:"team_size"`
	RatingType  game_vo.RatingType `json:"rating_type" bson:"rating_type"`
	MapPool     []string           `json:"map_pool" bson:"map_pool"`
}
