package galacticwar_ports_out

import (
	"context"

	galacticwar_entities "github.com/ta-forever/server/pkg/domain/galacticwar/entities"
)

// AlertPublisher forwards an ops-facing notification off the campaign's
// critical path; implementations must never block or return a
// caller-visible error, matching the package comment on the AMQP adapter.
type AlertPublisher interface {
	Publish(ctx context.Context, kind, message string)
}

// MapPoolChecker answers whether a map is in some matchmaker queue's
// rating-1500 map pool, used by scenario initialization's optional "reassign
// planets whose map isn't ranked anywhere" step (SPEC_FULL.md §4.5 step 5).
// Implemented by game_services.MatchmakerQueueRegistry.
type MapPoolChecker interface {
	IsMapRanked(mapName string) bool
}

// ScenarioRepository loads and saves a campaign's planet map. Load reads
// either the canonical JSON format or a legacy GML file (distinguished by
// extension); Save always writes canonical JSON, via an atomic
// write-to-temp-then-rename so a crash mid-write never corrupts the file
// a running campaign depends on.
type ScenarioRepository interface {
	Load(ctx context.Context, scenarioName string) (*galacticwar_entities.State, error)
	Save(ctx context.Context, state *galacticwar_entities.State) error
	ListAvailableScenarios(ctx context.Context) ([]string, error)
}
