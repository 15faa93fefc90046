package galacticwar_entities

import (
	"github.com/golang/geo/s2"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

const DefaultPlanetSize = 100.0

// RequiredDominanceRatio is how much a faction's score must exceed every
// other faction's score on a planet before it is considered dominant
// there; below this ratio the planet is contested and has no dominant
// faction.
const RequiredDominanceRatio = 1.5

// Planet is one node of a GalacticWarState's map graph. Score is a
// per-faction contest value; Belligerents tracks each individual player's
// contribution toward their faction's score, independent of the
// aggregate, for post-campaign attribution and leaderboard credit.
type Planet struct {
	ID          int                                              `json:"id" bson:"id"`
	Name        string                                            `json:"label" bson:"label"`
	Map         string                                            `json:"map" bson:"map"`
	Mod         string                                            `json:"mod" bson:"mod"`
	Size        float64                                           `json:"size" bson:"size"`
	CapitalOf   *game_vo.Faction                                  `json:"capital_of,omitempty" bson:"capital_of,omitempty"`
	ControlledBy *game_vo.Faction                                 `json:"controlled_by,omitempty" bson:"controlled_by,omitempty"`
	Score       map[game_vo.Faction]float64                       `json:"score" bson:"score"`
	Belligerents map[game_entities.PlayerID]map[game_vo.Faction]float64 `json:"belligerents" bson:"belligerents"`
	JumpGates   []int                                             `json:"jump_gates" bson:"jump_gates"`

	// LatLng places the planet on the campaign's sphere map, for DistanceTo;
	// territory distribution does not use it (a planet equidistant from two
	// capitals by graph distance stays contested). s2 gives us exact
	// spherical distance without the antimeridian bugs a flat x/y map
	// would need to special-case.
	LatLng s2.LatLng `json:"-" bson:"-"`
}

// DistanceTo returns the great-circle angular distance (in radians) to
// another planet's position.
func (p *Planet) DistanceTo(other *Planet) s1Angle {
	return s1Angle(p.LatLng.Distance(other.LatLng))
}

type s1Angle = float64

func NewPlanet(id int, name string) *Planet {
	return &Planet{
		ID:   id,
		Name: name,
		Map:  "SHERWOOD",
		Size: DefaultPlanetSize,
		Score: map[game_vo.Faction]float64{
			game_vo.FactionArm:  DefaultPlanetSize,
			game_vo.FactionCore: DefaultPlanetSize,
		},
		Belligerents: make(map[game_entities.PlayerID]map[game_vo.Faction]float64),
	}
}

func (p *Planet) GetScore(f game_vo.Faction) float64 {
	if v, ok := p.Score[f]; ok {
		return v
	}
	return p.Size
}

func (p *Planet) SetScore(f game_vo.Faction, value float64) {
	if p.Score == nil {
		p.Score = make(map[game_vo.Faction]float64)
	}
	p.Score[f] = value
}

func (p *Planet) ResetScores() {
	for f := range p.Score {
		p.SetScore(f, p.Size)
	}
}

// HighestScore returns the largest per-faction score on the planet, used to
// order contested planets for update_front_lines processing.
func (p *Planet) HighestScore() float64 {
	best := 0.0
	for _, s := range p.Score {
		if s > best {
			best = s
		}
	}
	return best
}

// FactionsPresent returns every faction with a score entry on this planet.
func (p *Planet) FactionsPresent() []game_vo.Faction {
	out := make([]game_vo.Faction, 0, len(p.Score))
	for f := range p.Score {
		out = append(out, f)
	}
	return out
}

// DominantFaction returns the faction whose score exceeds every other
// faction's by at least RequiredDominanceRatio, or nil if the planet is
// still contested.
func (p *Planet) DominantFaction() *game_vo.Faction {
	return p.DominantFactionWithRatio(RequiredDominanceRatio)
}

// DominantFactionWithRatio is DominantFaction parameterized on the
// dominance ratio, so GalacticWarConfig.RequiredDominanceRatio can override
// the package default without every caller recomputing the comparison.
func (p *Planet) DominantFactionWithRatio(ratio float64) *game_vo.Faction {
	if len(p.Score) == 0 {
		return nil
	}
	var maxFaction game_vo.Faction
	maxScore := -1.0
	minScore := -1.0
	for f, s := range p.Score {
		if s > maxScore {
			maxScore, maxFaction = s, f
		}
		if minScore < 0 || s < minScore {
			minScore = s
		}
	}
	if minScore <= 0 {
		return &maxFaction
	}
	if maxScore > ratio*minScore {
		return &maxFaction
	}
	return nil
}

func (p *Planet) BelligerentScore(playerID game_entities.PlayerID, f game_vo.Faction) float64 {
	byFaction, ok := p.Belligerents[playerID]
	if !ok {
		return 0
	}
	return byFaction[f]
}

func (p *Planet) SetBelligerentScore(playerID game_entities.PlayerID, f game_vo.Faction, score float64) {
	if p.Belligerents == nil {
		p.Belligerents = make(map[game_entities.PlayerID]map[game_vo.Faction]float64)
	}
	byFaction, ok := p.Belligerents[playerID]
	if !ok {
		byFaction = make(map[game_vo.Faction]float64)
		p.Belligerents[playerID] = byFaction
	}
	byFaction[f] = score
}

func (p *Planet) AdjustBelligerent(playerID game_entities.PlayerID, f game_vo.Faction, delta float64) {
	p.SetBelligerentScore(playerID, f, p.BelligerentScore(playerID, f)+delta)
}

func (p *Planet) BelligerentIDs() []game_entities.PlayerID {
	ids := make([]game_entities.PlayerID, 0, len(p.Belligerents))
	for id := range p.Belligerents {
		ids = append(ids, id)
	}
	return ids
}
