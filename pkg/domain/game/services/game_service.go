package game_services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	common "github.com/ta-forever/server/pkg/domain"
	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
	"github.com/ta-forever/server/pkg/infra/metrics"
)

// DirtyFlags records why a game was marked dirty for the Broadcaster's next
// flush. Both flags OR-merge across repeated MarkDirty calls within one
// tick: once either call sets a flag, it stays set until the next drain.
type DirtyFlags struct {
	OnlyToPeers bool
	PingsOnly   bool
}

func (d *DirtyFlags) merge(other DirtyFlags) {
	d.OnlyToPeers = d.OnlyToPeers || other.OnlyToPeers
	d.PingsOnly = d.PingsOnly || other.PingsOnly
}

// connHandle is one connected player's transport + protocol pair, as
// registered by GameConnection. Game itself cannot hold these (it would
// create an import cycle back into game_out), so GameService keeps them
// keyed by game and player instead.
type connHandle struct {
	conn     game_out.Connection
	protocol game_out.Protocol
}

// gameRuntime is the connection-side bookkeeping for one in-flight game:
// who is currently wired up, and who has reported GameEnded since the
// roster froze at LIVE.
type gameRuntime struct {
	connections map[game_entities.PlayerID]connHandle
	finished    map[game_entities.PlayerID]bool
}

// GameService owns the id -> Game registry and the allocation counter.
// Mutation and lookup are guarded by a single mutex: with one game's
// worth of traffic dispatched per connection goroutine (see
// GameConnection), this is never a hot lock.
type GameService struct {
	mu        sync.Mutex
	games     map[game_entities.GameID]*game_entities.Game
	dirty     map[game_entities.GameID]DirtyFlags
	runtime   map[game_entities.GameID]*gameRuntime
	nextID    int64
	repo      game_out.GameRepository
	bus       game_out.MessageBus
	ratings   game_out.RatingPublisher
}

func NewGameService(repo game_out.GameRepository, bus game_out.MessageBus, ratings game_out.RatingPublisher) *GameService {
	return &GameService{
		games:   make(map[game_entities.GameID]*game_entities.Game),
		dirty:   make(map[game_entities.GameID]DirtyFlags),
		runtime: make(map[game_entities.GameID]*gameRuntime),
		repo:    repo,
		bus:     bus,
		ratings: ratings,
	}
}

func (s *GameService) runtimeFor(id game_entities.GameID) *gameRuntime {
	rt, ok := s.runtime[id]
	if !ok {
		rt = &gameRuntime{
			connections: make(map[game_entities.PlayerID]connHandle),
			finished:    make(map[game_entities.PlayerID]bool),
		}
		s.runtime[id] = rt
	}
	return rt
}

// RegisterConnection records a newly-joined player's transport and
// protocol adapter so other connections' wirePeers calls can reach it.
func (s *GameService) RegisterConnection(id game_entities.GameID, playerID game_entities.PlayerID, conn game_out.Connection, protocol game_out.Protocol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtimeFor(id).connections[playerID] = connHandle{conn: conn, protocol: protocol}
}

// UnregisterConnection drops a departed player's transport handle. It
// leaves any recorded "finished" state alone: a player who reported
// GameEnded and then disconnected has still finished.
func (s *GameService) UnregisterConnection(id game_entities.GameID, playerID game_entities.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.runtime[id]; ok {
		delete(rt.connections, playerID)
	}
}

// PeerHandles returns every other currently-registered connection for a
// game, for wirePeers to notify.
func (s *GameService) PeerHandles(id game_entities.GameID, exclude game_entities.PlayerID) map[game_entities.PlayerID]connHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtime[id]
	if !ok {
		return nil
	}
	out := make(map[game_entities.PlayerID]connHandle, len(rt.connections))
	for pid, h := range rt.connections {
		if pid == exclude {
			continue
		}
		out[pid] = h
	}
	return out
}

// FreezeFinishedTracking seeds the per-player "has reported GameEnded" set
// from a roster. GameConnection does not call it, so every game is
// finished by its first GameEnded reporter (see ReportFinished).
func (s *GameService) FreezeFinishedTracking(id game_entities.GameID, roster []game_entities.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := s.runtimeFor(id)
	rt.finished = make(map[game_entities.PlayerID]bool, len(roster))
	for _, pid := range roster {
		rt.finished[pid] = false
	}
}

// ReportFinished marks playerID as having reported GameEnded and reports
// whether every tracked connection for the game has now done so. A game
// with no finished-tracking seeded (FreezeFinishedTracking never called)
// is treated as finished by its very first reporter, matching a game that
// never reached LIVE.
func (s *GameService) ReportFinished(id game_entities.GameID, playerID game_entities.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := s.runtimeFor(id)
	if _, tracked := rt.finished[playerID]; tracked || len(rt.finished) == 0 {
		rt.finished[playerID] = true
	}
	for _, done := range rt.finished {
		if !done {
			return false
		}
	}
	return true
}

// CreateUID allocates the next game id from a server-wide monotonic
// counter; ids are never reused, even for an aborted-before-staging game.
func (s *GameService) CreateUID() game_entities.GameID {
	return game_entities.GameID(atomic.AddInt64(&s.nextID, 1))
}

func (s *GameService) CreateGame(kind game_entities.GameKind, hostID game_entities.PlayerID, featuredMod string, maxPlayers int) *game_entities.Game {
	g := game_entities.NewGame(s.CreateUID(), kind, hostID, featuredMod, maxPlayers)
	s.mu.Lock()
	s.games[g.ID] = g
	count := len(s.games)
	s.mu.Unlock()
	metrics.GamesActive.Set(float64(count))
	return g
}

func (s *GameService) Get(id game_entities.GameID) (*game_entities.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, common.NewErrNotFound(common.ResourceType("game"), "id", id)
	}
	return g, nil
}

func (s *GameService) All() []*game_entities.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*game_entities.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	return out
}

// MarkDirty flags a game for the Broadcaster's next flush. Successive
// calls within the same tick OR-merge their flags into the existing record.
func (s *GameService) MarkDirty(id game_entities.GameID, flags DirtyFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.dirty[id]
	if !ok {
		s.dirty[id] = flags
		return
	}
	existing.merge(flags)
	s.dirty[id] = existing
}

// DrainDirty returns and clears the current dirty set, for the
// Broadcaster's flush loop to consume.
func (s *GameService) DrainDirty() map[game_entities.GameID]DirtyFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.dirty
	s.dirty = make(map[game_entities.GameID]DirtyFlags)
	return drained
}

// RemoveGame drops a game from the registry, its dirty set and its
// connection bookkeeping. Only tests call it: ended games are not removed
// from the registry by GameConnection or the Broadcaster.
func (s *GameService) RemoveGame(id game_entities.GameID) {
	s.mu.Lock()
	delete(s.games, id)
	delete(s.dirty, id)
	delete(s.runtime, id)
	count := len(s.games)
	s.mu.Unlock()
	metrics.GamesActive.Set(float64(count))
}

// PublishGameResults forwards a finished game's outcome to RatingService
// and the message bus. Failure here must never block the game from having
// already reached ENDED: callers log and move on.
func (s *GameService) PublishGameResults(ctx context.Context, info *game_entities.EndedGameInfo) {
	metrics.GamesEndedTotal.WithLabelValues(string(info.Validity)).Inc()
	if err := s.repo.SaveEnded(ctx, info); err != nil {
		slog.ErrorContext(ctx, "failed to persist ended game", "game_id", info.GameID, "error", err)
	}
	if err := s.ratings.Enqueue(ctx, info); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue game for rating", "game_id", info.GameID, "error", err)
	}
	if err := s.bus.PublishGameEnded(ctx, info); err != nil {
		slog.ErrorContext(ctx, "failed to publish game ended event", "game_id", info.GameID, "error", err)
	}
}
