package galacticwar_entities

import (
	"sort"

	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// State is one Galactic War scenario's live campaign map: a graph of
// Planets connected by jump gates, plus which planets are each faction's
// capital.
type State struct {
	ScenarioName string         `json:"scenario_name" bson:"scenario_name"`
	Planets      map[int]*Planet `json:"planets" bson:"planets"`
}

func NewState(scenarioName string) *State {
	return &State{ScenarioName: scenarioName, Planets: make(map[int]*Planet)}
}

func (s *State) AddPlanet(p *Planet) {
	s.Planets[p.ID] = p
}

// Capitals returns every planet flagged as a capital for faction f.
func (s *State) Capitals(f game_vo.Faction) []*Planet {
	var out []*Planet
	for _, p := range s.Planets {
		if p.CapitalOf != nil && *p.CapitalOf == f {
			out = append(out, p)
		}
	}
	return out
}

// neighbors returns the planets directly jump-gate-connected to p.
func (s *State) neighbors(p *Planet) []*Planet {
	out := make([]*Planet, 0, len(p.JumpGates))
	for _, id := range p.JumpGates {
		if n, ok := s.Planets[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// ReachableFrom runs a breadth-first search over the jump-gate graph from
// start's planet and returns the set of planet ids reachable while only
// traversing planets currently controlled by allowedFactions (nil means no
// restriction).
func (s *State) ReachableFrom(startID int, allowedFactions map[game_vo.Faction]struct{}) map[int]struct{} {
	visited := map[int]struct{}{startID: {}}
	queue := []int{startID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		p, ok := s.Planets[id]
		if !ok {
			continue
		}
		for _, n := range s.neighbors(p) {
			if _, seen := visited[n.ID]; seen {
				continue
			}
			if allowedFactions != nil {
				if n.ControlledBy == nil {
					continue
				}
				if _, allowed := allowedFactions[*n.ControlledBy]; !allowed {
					continue
				}
			}
			visited[n.ID] = struct{}{}
			queue = append(queue, n.ID)
		}
	}
	return visited
}

// Neighbors returns the planets directly jump-gate-connected to p. Exported
// wrapper around neighbors for callers outside this package (scenario
// initialization, stake pricing).
func (s *State) Neighbors(p *Planet) []*Planet {
	return s.neighbors(p)
}

// distances runs an unrestricted BFS from startID over the whole jump-gate
// graph and returns the hop count to every reachable planet.
func (s *State) distances(startID int) map[int]int {
	dist := map[int]int{startID: 0}
	queue := []int{startID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		p, ok := s.Planets[id]
		if !ok {
			continue
		}
		for _, n := range s.neighbors(p) {
			if _, seen := dist[n.ID]; seen {
				continue
			}
			dist[n.ID] = dist[id] + 1
			queue = append(queue, n.ID)
		}
	}
	return dist
}

// ShortestPathLength returns the hop count of the shortest jump-gate path
// between two planets, and false if they are not connected.
func (s *State) ShortestPathLength(fromID, toID int) (int, bool) {
	d, ok := s.distances(fromID)[toID]
	return d, ok
}

// Diameter returns the farthest-apart pair of planets by shortest path
// (breaking ties by lowest id pair, for deterministic scenario
// initialization) and the hop count between them. Used by
// assign_two_capitals (SPEC_FULL.md §4.5 step 1) to place new capitals at
// the two most distant points on the map.
func (s *State) Diameter() (fromID, toID int, hops int) {
	ids := make([]int, 0, len(s.Planets))
	for id := range s.Planets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	best := -1
	var bestFrom, bestTo int
	for _, a := range ids {
		dist := s.distances(a)
		for _, b := range ids {
			if b <= a {
				continue
			}
			d, ok := dist[b]
			if !ok {
				continue
			}
			if d > best {
				best, bestFrom, bestTo = d, a, b
			}
		}
	}
	return bestFrom, bestTo, best
}

// ContestedPlanets returns every planet with a nil ControlledBy, ordered by
// descending highest single-faction score: the processing order
// update_front_lines requires (SPEC_FULL.md §4.5).
func (s *State) ContestedPlanets() []*Planet {
	var out []*Planet
	for _, p := range s.Planets {
		if p.ControlledBy == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].HighestScore(), out[j].HighestScore()
		if si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AllPlanetsSorted returns every planet ordered by id, for deterministic
// iteration during scenario initialization.
func (s *State) AllPlanetsSorted() []*Planet {
	ids := make([]int, 0, len(s.Planets))
	for id := range s.Planets {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*Planet, len(ids))
	for i, id := range ids {
		out[i] = s.Planets[id]
	}
	return out
}

// IsolatedPlanets returns every planet controlled by f that has no path,
// staying within f's own territory, back to one of f's capitals. These
// are the planets capture_isolated_planets reassigns each tick.
func (s *State) IsolatedPlanets(f game_vo.Faction) []*Planet {
	capitals := s.Capitals(f)
	if len(capitals) == 0 {
		return nil
	}
	allowed := map[game_vo.Faction]struct{}{f: {}}
	connected := make(map[int]struct{})
	for _, cap := range capitals {
		for id := range s.ReachableFrom(cap.ID, allowed) {
			connected[id] = struct{}{}
		}
	}
	var isolated []*Planet
	for _, p := range s.Planets {
		if p.ControlledBy == nil || *p.ControlledBy != f {
			continue
		}
		if _, ok := connected[p.ID]; !ok {
			isolated = append(isolated, p)
		}
	}
	return isolated
}
