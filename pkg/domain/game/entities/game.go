package game_entities

import (
	"fmt"
	"time"

	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

type GameID int64

// GameState is the lifecycle of a hosted game. INITIALIZING precedes any
// client traffic; ENDED is terminal and a game never reopens once there.
type GameState string

const (
	GameStateInitializing GameState = "INITIALIZING"
	GameStateStaging      GameState = "STAGING"
	GameStateBattleroom   GameState = "BATTLEROOM"
	GameStateLaunching    GameState = "LAUNCHING"
	GameStateLive         GameState = "LIVE"
	GameStateEnded        GameState = "ENDED"
)

// ValidityState starts at VALID and only ever downgrades; once non-VALID,
// a game stays non-VALID.
type ValidityState string

const (
	ValidityValid                     ValidityState = "VALID"
	ValidityTooShort                  ValidityState = "TOO_SHORT"
	ValidityBadMap                    ValidityState = "BAD_MAP"
	ValidityBadMod                    ValidityState = "BAD_MOD"
	ValidityHasAIPlayers              ValidityState = "HAS_AI_PLAYERS"
	ValidityCheatsEnabled             ValidityState = "CHEATS_ENABLED"
	ValidityPrebuiltEnabled           ValidityState = "PREBUILT_ENABLED"
	ValidityNoRushEnabled             ValidityState = "NORUSH_ENABLED"
	ValidityBadUnitRestrictions       ValidityState = "BAD_UNIT_RESTRICTIONS"
	ValidityUnlockedTeams             ValidityState = "UNLOCKED_TEAMS"
	ValidityNoFogOfWar                ValidityState = "NO_FOG_OF_WAR"
	ValidityWrongVictoryCondition     ValidityState = "WRONG_VICTORY_CONDITION"
	ValidityUnevenTeamsNotRanked      ValidityState = "UNEVEN_TEAMS_NOT_RANKED"
	ValiditySinglePlayer              ValidityState = "SINGLE_PLAYER"
	ValidityMultiTeam                 ValidityState = "MULTI_TEAM"
	ValidityFFANotRanked              ValidityState = "FFA_NOT_RANKED"
	ValidityMutualDraw                ValidityState = "MUTUAL_DRAW"
	ValidityTooManyDesyncs            ValidityState = "TOO_MANY_DESYNCS"
	ValidityUnknownResult             ValidityState = "UNKNOWN_RESULT"
	ValidityCoopNotRanked             ValidityState = "COOP_NOT_RANKED"
)

func (v ValidityState) IsValid() bool {
	return v == ValidityValid
}

// GameOutcome is a per-team/per-army resolved result.
type GameOutcome string

const (
	GameOutcomeVictory     GameOutcome = "VICTORY"
	GameOutcomeDefeat      GameOutcome = "DEFEAT"
	GameOutcomeDraw        GameOutcome = "DRAW"
	GameOutcomeMutualDraw  GameOutcome = "MUTUAL_DRAW"
	GameOutcomeUnknown     GameOutcome = "UNKNOWN"
	GameOutcomeConflicting GameOutcome = "CONFLICTING"
)

// VisibilityKey controls who a game's listing is surfaced to, orthogonal to
// the common.VisibilityTypeKey used for generic resource ownership.
type VisibilityKey string

const (
	VisibilityPublic  VisibilityKey = "PUBLIC"
	VisibilityFriends VisibilityKey = "FRIENDS"
)

// GameKind replaces the teacher-source's subclass-per-featured-mod
// hierarchy (CustomGame/LadderGame/CoopGame) with a tagged variant: the
// four behaviors that used to differ by inheritance (init_mode, player
// alias formatting, outcome-override eligibility, pre-rate validity checks)
// are now looked up from this tag by the services that need them.
type GameKind string

const (
	GameKindCustom GameKind = "CUSTOM"
	GameKindLadder GameKind = "LADDER"
	GameKindCoop   GameKind = "COOP"
	GameKindBase   GameKind = "BASE"
)

const FFATeam = -2
const ObserverTeam = -1

// PlayerOption is one seated player's slot configuration.
type PlayerOption struct {
	StartSpot int            `json:"start_spot" bson:"start_spot"`
	Team      int            `json:"team" bson:"team"`
	Army      int            `json:"army" bson:"army"`
	Color     int            `json:"color" bson:"color"`
	Faction   game_vo.Faction `json:"faction" bson:"faction"`
}

// AIOption is the option bag for a non-player army.
type AIOption map[string]interface{}

// PlayerPing is one observed peer-to-peer latency sample.
type PlayerPing struct {
	PeerID PlayerID `json:"peer_id" bson:"peer_id"`
	Ms     int      `json:"ms" bson:"ms"`
}

// Game is identified by a monotonically increasing integer allocated by
// GameService from a server-wide counter. It never reopens once ENDED.
type Game struct {
	ID   GameID   `json:"id" bson:"_id"`
	Kind GameKind `json:"kind" bson:"kind"`

	HostID      PlayerID `json:"host_id" bson:"host_id"`
	Map         string   `json:"map" bson:"map"`
	FeaturedMod string   `json:"featured_mod" bson:"featured_mod"`

	State    GameState     `json:"state" bson:"state"`
	Validity ValidityState `json:"validity" bson:"validity"`

	// player_options is authoritative roster while State is one of
	// {STAGING, BATTLEROOM, LAUNCHING}; at LIVE and beyond it is frozen by
	// FreezeRoster and PlayerOptions must not be mutated further.
	PlayerOptions map[PlayerID]*PlayerOption `json:"player_options" bson:"player_options"`
	AIs           map[string]AIOption        `json:"ais" bson:"ais"`
	frozenRoster  bool

	Results *GameResultReports `json:"results" bson:"results"`

	RatingType            game_vo.RatingType    `json:"rating_type" bson:"rating_type"`
	RatingTypePreferred    game_vo.RatingType    `json:"rating_type_preferred" bson:"rating_type_preferred"`
	DisplayedRatingRange  game_vo.InclusiveRange `json:"displayed_rating_range" bson:"displayed_rating_range"`
	EnforceRatingRange    bool                   `json:"enforce_rating_range" bson:"enforce_rating_range"`
	MapPoolMapIDs         []string               `json:"map_pool_map_ids,omitempty" bson:"map_pool_map_ids,omitempty"`
	MatchmakerQueueID     *string                `json:"matchmaker_queue_id,omitempty" bson:"matchmaker_queue_id,omitempty"`
	GalacticWarPlanetName *string                `json:"galactic_war_planet_name,omitempty" bson:"galactic_war_planet_name,omitempty"`
	IsMatchmakerOrigin    bool                   `json:"is_matchmaker_origin" bson:"is_matchmaker_origin"`

	Visibility         VisibilityKey `json:"visibility" bson:"visibility"`
	MaxPlayers         int           `json:"max_players" bson:"max_players"`
	ReplayDelaySeconds int           `json:"replay_delay_seconds" bson:"replay_delay_seconds"`
	Mods               map[string]string `json:"mods" bson:"mods"`

	PlayerPings map[PlayerID][]PlayerPing `json:"player_pings" bson:"player_pings"`

	LaunchedAt *time.Time `json:"launched_at,omitempty" bson:"launched_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`

	Desyncs int `json:"desyncs" bson:"desyncs"`

	// The following mirror GameOption reports; NewGame defaults them to the
	// values a ranked-eligible lobby starts with, so only an explicit
	// deviating option downgrades Validity at onGameEnd.
	CheatsEnabled        bool   `json:"cheats_enabled" bson:"cheats_enabled"`
	PrebuiltUnits        bool   `json:"prebuilt_units" bson:"prebuilt_units"`
	NoRushOption         bool   `json:"no_rush_option" bson:"no_rush_option"`
	FogOfWar             string `json:"fog_of_war" bson:"fog_of_war"`
	RestrictedCategories int    `json:"restricted_categories" bson:"restricted_categories"`
	TeamLock             string `json:"team_lock" bson:"team_lock"`
	Victory              string `json:"victory" bson:"victory"`
	AIReplacement        bool   `json:"ai_replacement" bson:"ai_replacement"`
}

func NewGame(id GameID, kind GameKind, hostID PlayerID, featuredMod string, maxPlayers int) *Game {
	return &Game{
		ID:            id,
		Kind:          kind,
		HostID:        hostID,
		FeaturedMod:   featuredMod,
		State:         GameStateInitializing,
		Validity:      ValidityValid,
		PlayerOptions: make(map[PlayerID]*PlayerOption),
		AIs:           make(map[string]AIOption),
		Results:       NewGameResultReports(),
		RatingType:    game_vo.RatingTypeGlobal,
		Visibility:    VisibilityPublic,
		MaxPlayers:    maxPlayers,
		Mods:          make(map[string]string),
		PlayerPings:   make(map[PlayerID][]PlayerPing),
		CreatedAt:     time.Now(),
		FogOfWar:      "explored",
		TeamLock:      "locked",
		Victory:       "DEMORALIZATION",
	}
}

// Downgrade moves Validity to reason, unless the game is already invalid:
// once non-VALID a game never upgrades and never changes reason.
func (g *Game) Downgrade(reason ValidityState) {
	if g.Validity == ValidityValid {
		g.Validity = reason
	}
}

// Players returns the current roster: connected seated players before the
// roster freezes, or the frozen roster afterwards.
func (g *Game) Players() []PlayerID {
	ids := make([]PlayerID, 0, len(g.PlayerOptions))
	for id := range g.PlayerOptions {
		ids = append(ids, id)
	}
	return ids
}

func (g *Game) IsFull() bool {
	return g.MaxPlayers > 0 && len(g.PlayerOptions) >= g.MaxPlayers
}

// FreezeRoster snapshots the current player_options set as the permanent
// live roster. Called exactly once, on the LAUNCHING -> LIVE transition.
func (g *Game) FreezeRoster() {
	g.frozenRoster = true
}

func (g *Game) RosterFrozen() bool {
	return g.frozenRoster
}

// AddPlayerOption seats a player, rejecting once the roster is frozen or
// the game is full.
func (g *Game) AddPlayerOption(id PlayerID, opt *PlayerOption) error {
	if g.frozenRoster {
		return fmt.Errorf("game %d: roster is frozen", g.ID)
	}
	if _, exists := g.PlayerOptions[id]; !exists && g.IsFull() {
		return ErrGameFull
	}
	g.PlayerOptions[id] = opt
	return nil
}

func (g *Game) RemovePlayerOption(id PlayerID) {
	if g.frozenRoster {
		return
	}
	delete(g.PlayerOptions, id)
}

// Armies returns the set of armies currently assigned; the invariant is
// that this set is unique across seated players, enforced by callers.
func (g *Game) Armies() map[int]PlayerID {
	out := make(map[int]PlayerID, len(g.PlayerOptions))
	for pid, opt := range g.PlayerOptions {
		out[opt.Army] = pid
	}
	return out
}

// Teams returns the distinct non-observer, non-FFA team ids in use.
func (g *Game) Teams() map[int]struct{} {
	out := make(map[int]struct{})
	for _, opt := range g.PlayerOptions {
		if opt.Team >= 0 {
			out[opt.Team] = struct{}{}
		}
	}
	return out
}

func (g *Game) IsMultiTeam() bool {
	return len(g.Teams()) > 2
}

func (g *Game) IsFFA() bool {
	for _, opt := range g.PlayerOptions {
		if opt.Team == FFATeam {
			return true
		}
	}
	return false
}

func (g *Game) TeamsAreEven() bool {
	counts := make(map[int]int)
	for _, opt := range g.PlayerOptions {
		if opt.Team >= 0 {
			counts[opt.Team]++
		}
	}
	if len(counts) == 0 {
		return false
	}
	var want = -1
	for _, n := range counts {
		if want == -1 {
			want = n
		} else if n != want {
			return false
		}
	}
	return true
}

// ObservedTeamSize returns the largest team's seated player count, used to
// match this lobby against a MatchmakerQueue's configured team size.
func (g *Game) ObservedTeamSize() int {
	counts := make(map[int]int)
	for _, opt := range g.PlayerOptions {
		if opt.Team >= 0 {
			counts[opt.Team]++
		}
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		max = len(g.PlayerOptions)
	}
	return max
}

// IsVisibleTo implements the broadcaster's per-recipient visibility
// predicate (spec §4.6): live/ended games are visible to everyone; the
// host and anyone currently connected always see it; rating-range gating
// and FRIENDS/foes restrictions apply only beyond that.
func (g *Game) IsVisibleTo(viewer PlayerID, viewerIsConnected bool, viewerDisplayedRating float64, hostFriends, hostFoes map[PlayerID]struct{}) bool {
	if g.State == GameStateLaunching || g.State == GameStateLive || g.State == GameStateEnded {
		return true
	}
	if viewer == g.HostID || viewerIsConnected {
		return true
	}
	if g.EnforceRatingRange && !g.DisplayedRatingRange.Contains(viewerDisplayedRating) {
		return false
	}
	if g.Visibility == VisibilityFriends {
		_, isFriend := hostFriends[viewer]
		return isFriend
	}
	if _, isFoe := hostFoes[viewer]; isFoe {
		return false
	}
	return true
}

var ErrGameFull = fmt.Errorf("game is full")
