package game_services

import (
	"sync"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
)

// MatchmakerQueueRegistry holds the configured MatchmakerQueues an
// assign_rating_type search (spec §4.1.1) matches a non-origin lobby
// against. It is populated at startup from configuration and never mutated
// by game traffic.
type MatchmakerQueueRegistry struct {
	mu     sync.RWMutex
	queues []*game_entities.MatchmakerQueue
}

func NewMatchmakerQueueRegistry(queues ...*game_entities.MatchmakerQueue) *MatchmakerQueueRegistry {
	return &MatchmakerQueueRegistry{queues: queues}
}

func (r *MatchmakerQueueRegistry) Register(q *game_entities.MatchmakerQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues = append(r.queues, q)
}

// FindBestQueue returns the queue for featuredMod whose TeamSize best fits
// observedTeamSize: the largest configured team size not exceeding what was
// actually observed seated. Returns nil if no queue for featuredMod fits.
func (r *MatchmakerQueueRegistry) FindBestQueue(featuredMod string, observedTeamSize int) *game_entities.MatchmakerQueue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *game_entities.MatchmakerQueue
	for _, q := range r.queues {
		if q.FeaturedMod != featuredMod || q.TeamSize > observedTeamSize {
			continue
		}
		if best == nil || q.TeamSize > best.TeamSize {
			best = q
		}
	}
	return best
}

// IsMapRanked reports whether mapName appears in the rating-1500 map pool
// of any registered 1v1 (team_size=1) queue. GalacticWarService's scenario
// initialization uses this to reassign planets whose map isn't ranked
// anywhere (SPEC_FULL.md §4.5 step 5), so it satisfies
// galacticwar_ports_out.MapPoolChecker without that package importing this
// one back.
func (r *MatchmakerQueueRegistry) IsMapRanked(mapName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, q := range r.queues {
		if q.TeamSize != 1 {
			continue
		}
		for _, m := range q.MapPool {
			if m == mapName {
				return true
			}
		}
	}
	return false
}
