package game_services

import (
	"context"
	"sync"

	common "github.com/ta-forever/server/pkg/domain"
	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// PlayerService owns the id -> Player registry for currently connected
// accounts, and the dirty set the Broadcaster reads for player presence
// updates. Ratings land here via ApplyRatingChange, called back by
// RatingService once a batch has been computed.
type PlayerService struct {
	mu     sync.Mutex
	players map[game_entities.PlayerID]*game_entities.Player
	dirty  map[game_entities.PlayerID]struct{}
	repo   game_out.PlayerRepository
}

func NewPlayerService(repo game_out.PlayerRepository) *PlayerService {
	return &PlayerService{
		players: make(map[game_entities.PlayerID]*game_entities.Player),
		dirty:   make(map[game_entities.PlayerID]struct{}),
		repo:    repo,
	}
}

func (s *PlayerService) Get(ctx context.Context, id game_entities.PlayerID) (*game_entities.Player, error) {
	s.mu.Lock()
	p, ok := s.players[id]
	s.mu.Unlock()
	if ok {
		return p, nil
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, common.NewErrNotFound(common.ResourceType("player"), "id", id)
	}
	s.mu.Lock()
	s.players[id] = p
	s.mu.Unlock()
	return p, nil
}

// Register brings a player into the in-memory registry on connect,
// creating a fresh default record if this is their first appearance.
func (s *PlayerService) Register(id game_entities.PlayerID, login string) *game_entities.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		p = game_entities.NewPlayer(id, login)
		s.players[id] = p
	}
	p.HasOpenConnection = true
	s.markDirtyLocked(id)
	return p
}

func (s *PlayerService) Unregister(id game_entities.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.HasOpenConnection = false
		p.HasGameConnection = false
		p.State = game_entities.PlayerStateIdle
		p.CurrentGameID = nil
	}
	s.markDirtyLocked(id)
}

func (s *PlayerService) SetState(id game_entities.PlayerID, state game_entities.PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return
	}
	p.State = state
	s.markDirtyLocked(id)
}

func (s *PlayerService) markDirtyLocked(id game_entities.PlayerID) {
	s.dirty[id] = struct{}{}
}

func (s *PlayerService) DrainDirty() []game_entities.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]game_entities.PlayerID, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.dirty = make(map[game_entities.PlayerID]struct{})
	return ids
}

// Lookup returns an already-registered player without falling back to the
// repository, for the broadcaster's dirty-flush batch: a player_info
// update should never block a flush tick on a database round trip.
func (s *PlayerService) Lookup(id game_entities.PlayerID) (*game_entities.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	return p, ok
}

// ApplyRatingChange is RatingService's callback once a rated game's
// outcome has been computed: it updates the in-memory player and saves it
// through the repository before returning, on the rating worker's goroutine.
func (s *PlayerService) ApplyRatingChange(ctx context.Context, id game_entities.PlayerID, ratingType game_vo.RatingType, rt game_entities.RatingValue) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	p.Ratings[ratingType] = rt
	p.GameCounts[ratingType]++
	s.mu.Unlock()
	return s.repo.Save(ctx, p)
}
