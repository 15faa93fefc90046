// Package scenario implements galacticwar_ports_out.ScenarioRepository
// against the local filesystem: the campaign map is small, changes rarely,
// and is edited by hand between Galactic War seasons, so there is no case
// for a database round trip the way Game/Player/Rating storage needs one.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	galacticwar_entities "github.com/ta-forever/server/pkg/domain/galacticwar/entities"
	galacticwar_ports_out "github.com/ta-forever/server/pkg/domain/galacticwar/ports/out"
	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// FileRepository implements galacticwar_ports_out.ScenarioRepository. Load
// resolves scenarioName to either a canonical "<dir>/<name>.json" file or,
// failing that, a legacy "<dir>/<name>.gml" graph file; Save always writes
// canonical JSON.
type FileRepository struct {
	dir string
}

func NewFileRepository(scenarioDir string) *FileRepository {
	return &FileRepository{dir: scenarioDir}
}

var _ galacticwar_ports_out.ScenarioRepository = (*FileRepository)(nil)

func (r *FileRepository) Load(ctx context.Context, scenarioName string) (*galacticwar_entities.State, error) {
	jsonPath := filepath.Join(r.dir, scenarioName+".json")
	if _, err := os.Stat(jsonPath); err == nil {
		return r.loadJSON(jsonPath)
	}

	gmlPath := filepath.Join(r.dir, scenarioName+".gml")
	if _, err := os.Stat(gmlPath); err == nil {
		return r.loadGML(gmlPath, scenarioName)
	}

	return nil, fmt.Errorf("scenario %q: no .json or .gml file found under %s", scenarioName, r.dir)
}

func (r *FileRepository) loadJSON(path string) (*galacticwar_entities.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	var doc stateDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return doc.toState(), nil
}

// Save always writes the canonical JSON format, via a write-to-temp-then-
// rename so a crash mid-write never corrupts the file a live campaign's
// next tick would otherwise read.
func (r *FileRepository) Save(ctx context.Context, state *galacticwar_entities.State) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating scenario dir %s: %w", r.dir, err)
	}

	doc := newStateDocument(state)
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding scenario %s: %w", state.ScenarioName, err)
	}

	finalPath := filepath.Join(r.dir, state.ScenarioName+".json")
	tmp, err := os.CreateTemp(r.dir, state.ScenarioName+".*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for scenario %s: %w", state.ScenarioName, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing scenario %s: %w", state.ScenarioName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing scenario %s: %w", state.ScenarioName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing scenario %s: %w", state.ScenarioName, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("committing scenario %s: %w", state.ScenarioName, err)
	}
	return nil
}

// ListAvailableScenarios returns scenario names (file base name, extension
// stripped) for every canonical or legacy scenario file under the
// configured directory. A name present as both .json and .gml is listed
// once, preferring the canonical copy.
func (r *FileRepository) ListAvailableScenarios(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing scenario dir %s: %w", r.dir, err)
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".json"):
			seen[strings.TrimSuffix(name, ".json")] = struct{}{}
		case strings.HasSuffix(name, ".gml"):
			base := strings.TrimSuffix(name, ".gml")
			if _, exists := seen[base]; !exists {
				seen[base] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// stateDocument is the canonical JSON wire format for a scenario. It flattens
// galacticwar_entities.Planet's s2.LatLng (excluded from Planet's own JSON
// tags since it has no stable Go marshal form) into plain lat/lng degrees.
type stateDocument struct {
	ScenarioName string          `json:"scenario_name"`
	Planets      []planetDocument `json:"planets"`
}

type planetDocument struct {
	ID           int                                    `json:"id"`
	Label        string                                 `json:"label"`
	Map          string                                 `json:"map"`
	Mod          string                                 `json:"mod"`
	Size         float64                                `json:"size"`
	CapitalOf    *game_vo.Faction                        `json:"capital_of,omitempty"`
	ControlledBy *game_vo.Faction                        `json:"controlled_by,omitempty"`
	Score        map[game_vo.Faction]float64              `json:"score"`
	Belligerents map[string]map[game_vo.Faction]float64   `json:"belligerents,omitempty"`
	JumpGates    []int                                  `json:"jump_gates"`
	LatDegrees   float64                                `json:"lat_degrees,omitempty"`
	LngDegrees   float64                                `json:"lng_degrees,omitempty"`
}

func newStateDocument(state *galacticwar_entities.State) stateDocument {
	doc := stateDocument{ScenarioName: state.ScenarioName}
	ids := make([]int, 0, len(state.Planets))
	for id := range state.Planets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		p := state.Planets[id]
		pd := planetDocument{
			ID:           p.ID,
			Label:        p.Name,
			Map:          p.Map,
			Mod:          p.Mod,
			Size:         p.Size,
			CapitalOf:    p.CapitalOf,
			ControlledBy: p.ControlledBy,
			Score:        p.Score,
			JumpGates:    p.JumpGates,
			LatDegrees:   p.LatLng.Lat.Degrees(),
			LngDegrees:   p.LatLng.Lng.Degrees(),
		}
		if len(p.Belligerents) > 0 {
			pd.Belligerents = make(map[string]map[game_vo.Faction]float64, len(p.Belligerents))
			for playerID, byFaction := range p.Belligerents {
				pd.Belligerents[fmt.Sprintf("%d", playerID)] = byFaction
			}
		}
		doc.Planets = append(doc.Planets, pd)
	}
	return doc
}

func (doc *stateDocument) toState() *galacticwar_entities.State {
	state := galacticwar_entities.NewState(doc.ScenarioName)
	for _, pd := range doc.Planets {
		p := galacticwar_entities.NewPlanet(pd.ID, pd.Label)
		p.Map = pd.Map
		p.Mod = pd.Mod
		p.Size = pd.Size
		p.CapitalOf = pd.CapitalOf
		p.ControlledBy = pd.ControlledBy
		if pd.Score != nil {
			p.Score = pd.Score
		}
		p.JumpGates = pd.JumpGates
		p.LatLng = latLngFromDegrees(pd.LatDegrees, pd.LngDegrees)
		for playerIDStr, byFaction := range pd.Belligerents {
			playerID, err := strconv.ParseInt(playerIDStr, 10, 64)
			if err != nil {
				continue
			}
			p.Belligerents[game_entities.PlayerID(playerID)] = byFaction
		}
		state.AddPlanet(p)
	}
	return state
}

func latLngFromDegrees(lat, lng float64) s2.LatLng {
	return s2.LatLng{Lat: s1.Angle(lat) * s1.Degree, Lng: s1.Angle(lng) * s1.Degree}
}
