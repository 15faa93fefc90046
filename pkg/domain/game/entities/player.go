package game_entities

import (
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

type PlayerID int64

// PlayerState is transient presence/activity state, distinct from rating.
type PlayerState string

const (
	PlayerStateIdle               PlayerState = "IDLE"
	PlayerStateHosting            PlayerState = "HOSTING"
	PlayerStateJoining            PlayerState = "JOINING"
	PlayerStateHosted             PlayerState = "HOSTED"
	PlayerStateJoined             PlayerState = "JOINED"
	PlayerStatePlaying            PlayerState = "PLAYING"
	PlayerStateSearchingLadder    PlayerState = "SEARCHING_LADDER"
	PlayerStateStartingAutomatch  PlayerState = "STARTING_AUTOMATCH"
)

// RatingValue is the (mean, sigma) pair of a skill rating.
type RatingValue struct {
	Mean  float64 `json:"mean" bson:"mean"`
	Sigma float64 `json:"sigma" bson:"sigma"`
}

// PenisPoints is the conservative skill estimate used for leaderboard rank.
func (r RatingValue) PenisPoints() float64 {
	return r.Mean - 3*r.Sigma
}

// Player is the server's registry entry for a connected or historical
// account. Back-references to the player's current Game/GameConnection/
// Connection are observation-only integer ids, resolved through the owning
// registries on read (see Design Notes: weak back-references must never
// extend an object's lifetime).
type Player struct {
	ID    PlayerID `json:"id" bson:"_id"`
	Login string   `json:"login" bson:"login"`
	Alias *string  `json:"alias,omitempty" bson:"alias,omitempty"`

	State PlayerState `json:"state" bson:"-"`

	Ratings    map[game_vo.RatingType]RatingValue `json:"ratings" bson:"ratings"`
	GameCounts map[game_vo.RatingType]int         `json:"game_counts" bson:"game_counts"`

	Friends map[PlayerID]struct{} `json:"-" bson:"-"`
	Foes    map[PlayerID]struct{} `json:"-" bson:"-"`

	// Weak references, resolved through GameService/PlayerService, never
	// dereferenced directly and never the sole owner of the referent.
	CurrentGameID           *int64  `json:"current_game_id,omitempty" bson:"-"`
	HasOpenConnection       bool    `json:"-" bson:"-"`
	HasGameConnection       bool    `json:"-" bson:"-"`
}

func NewPlayer(id PlayerID, login string) *Player {
	return &Player{
		ID:         id,
		Login:      login,
		State:      PlayerStateIdle,
		Ratings:    make(map[game_vo.RatingType]RatingValue),
		GameCounts: make(map[game_vo.RatingType]int),
		Friends:    make(map[PlayerID]struct{}),
		Foes:       make(map[PlayerID]struct{}),
	}
}

// RatingOrDefault returns the player's rating for a type, or the configured
// starting rating if the player has never played a rated game of that type.
func (p *Player) RatingOrDefault(rt game_vo.RatingType, startMean, startDev float64) RatingValue {
	if r, ok := p.Ratings[rt]; ok {
		return r
	}
	return RatingValue{Mean: startMean, Sigma: startDev}
}

func (p *Player) IsFoeOf(other PlayerID) bool {
	_, ok := p.Foes[other]
	return ok
}

func (p *Player) IsFriendOf(other PlayerID) bool {
	_, ok := p.Friends[other]
	return ok
}
