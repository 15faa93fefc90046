package rating_services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	common "github.com/ta-forever/server/pkg/domain"
	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
	"github.com/ta-forever/server/pkg/infra/metrics"
	rating_entities "github.com/ta-forever/server/pkg/domain/rating/entities"
	rating_out "github.com/ta-forever/server/pkg/domain/rating/ports/out"
)

const ratingQueueCapacity = 1024

// TeamOutcomeLikelihood is one team's estimated win/draw/lose odds going
// into a rated game, keyed by the team id that appeared in the game's
// EndedGamePlayerSummary.Team field. RatingCallbacks receive one entry per
// team that took part.
type TeamOutcomeLikelihood = OutcomeLikelihood

// RatingCallback is invoked once per rated game, after the rater has run
// but before deltas are persisted, mirroring the source server's
// rate -> callbacks -> persist ordering so a callback (e.g.
// GalacticWarService.OnGameRating) always sees the same ratings that are
// about to be written. oldRatings/newRatings are keyed by player id;
// likelihoods is keyed by team id.
type RatingCallback func(
	ctx context.Context,
	info *game_entities.EndedGameInfo,
	oldRatings map[game_entities.PlayerID]game_entities.RatingValue,
	newRatings map[game_entities.PlayerID]game_entities.RatingValue,
	likelihoods map[int]TeamOutcomeLikelihood,
)

// RatingService drains ended games from a single-consumer queue and feeds
// them through the TrueSkill pipeline one at a time, so rating math never
// races with itself across two concurrently-finishing games. A single
// worker goroutine owns the queue; everything else only ever enqueues.
type RatingService struct {
	queue    chan *game_entities.EndedGameInfo
	repo     rating_out.RatingRepository
	players  game_out.PlayerRatingSink
	beta     float64
	tau      float64
	drawProb float64

	mu        sync.Mutex
	ready     bool
	draining  bool
	done      chan struct{}
	callbacks []RatingCallback
}

func NewRatingService(repo rating_out.RatingRepository, players game_out.PlayerRatingSink) *RatingService {
	return &RatingService{
		queue:    make(chan *game_entities.EndedGameInfo, ratingQueueCapacity),
		repo:     repo,
		players:  players,
		beta:     DefaultBeta,
		tau:      DefaultTau,
		drawProb: DefaultDrawProbability,
		done:     make(chan struct{}),
	}
}

// RegisterCallback adds cb to the list invoked, in registration order,
// after every successfully rated game. Must be called before Initialize
// starts the worker; registration is not safe to race against rate().
func (s *RatingService) RegisterCallback(cb RatingCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Initialize starts the single consumer worker. Must be called before any
// Enqueue; Enqueue returns ErrServiceNotReady until then.
func (s *RatingService) Initialize(ctx context.Context) {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	go s.run(ctx)
}

func (s *RatingService) run(ctx context.Context) {
	defer close(s.done)
	for info := range s.queue {
		if err := s.rate(ctx, info); err != nil {
			slog.ErrorContext(ctx, "rating computation failed", "game_id", info.GameID, "error", err)
		}
		metrics.RatingQueueDepth.Set(float64(len(s.queue)))
	}
}

// Enqueue hands a finished game to the rating worker. Unrated games
// (Validity != VALID) are accepted but skipped inside rate(), not
// rejected here, so callers never need to duplicate the validity check.
func (s *RatingService) Enqueue(ctx context.Context, info *game_entities.EndedGameInfo) error {
	s.mu.Lock()
	ready, draining := s.ready, s.draining
	s.mu.Unlock()
	if !ready || draining {
		return common.NewErrServiceNotReady("rating service is not accepting games")
	}
	select {
	case s.queue <- info:
		metrics.RatingQueueDepth.Set(float64(len(s.queue)))
		return nil
	default:
		return common.NewErrServiceNotReady("rating queue is full")
	}
}

// Shutdown stops accepting new games and waits for the queue to drain
// before returning, so every already-enqueued game still gets rated.
func (s *RatingService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	close(s.queue)
	<-s.done
}

// Kill stops accepting new games and returns without waiting for the
// worker. It does not cancel the worker: games already queued are still
// rated in the background before the worker exits.
func (s *RatingService) Kill() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	close(s.queue)
}

func (s *RatingService) rate(ctx context.Context, info *game_entities.EndedGameInfo) error {
	if !info.Validity.IsValid() {
		slog.InfoContext(ctx, "skipping rating for invalid game", "game_id", info.GameID, "validity", info.Validity)
		return nil
	}

	teamOf := make(map[int][]int) // team -> indices into info.Players
	for i, p := range info.Players {
		teamOf[p.Team] = append(teamOf[p.Team], i)
	}

	teamIDs := make([]int, 0, len(teamOf))
	for team := range teamOf {
		teamIDs = append(teamIDs, team)
	}
	sort.Ints(teamIDs)

	// Multi-team (>2) rating is explicitly unsupported; a team whose
	// players disagree on their own outcome can't be assigned a single
	// rank either. Both fail the whole game with GameRatingError, logged,
	// without touching the database.
	if len(teamIDs) != 2 {
		return common.NewErrGameRatingError(fmt.Sprintf("game %d: rating requires exactly two teams, got %d", info.GameID, len(teamIDs)))
	}
	for _, team := range teamIDs {
		idxs := teamOf[team]
		first := info.Players[idxs[0]].Outcome
		for _, idx := range idxs[1:] {
			if info.Players[idx].Outcome != first {
				return common.NewErrGameRatingError(fmt.Sprintf("game %d: team %d reported inconsistent outcomes", info.GameID, team))
			}
		}
	}

	groups := make([][]Rating, len(teamIDs))
	ranks := make([]int, len(teamIDs))
	for gi, team := range teamIDs {
		idxs := teamOf[team]
		groups[gi] = make([]Rating, len(idxs))
		for j, idx := range idxs {
			p := info.Players[idx]
			groups[gi][j] = Rating{Mu: p.Before.Mean, Sigma: p.Before.Sigma}
		}
		ranks[gi] = outcomeRank(info.Players[idxs[0]].Outcome)
	}

	likelihoods := map[int]TeamOutcomeLikelihood{
		teamIDs[0]: WinDrawLoseLikelihoods(groups[0], groups[1], s.beta, s.drawProb),
		teamIDs[1]: WinDrawLoseLikelihoods(groups[1], groups[0], s.beta, s.drawProb),
	}

	updated := Rate(groups, ranks, s.beta, s.tau, s.drawProb)

	oldRatings := make(map[game_entities.PlayerID]game_entities.RatingValue, len(info.Players))
	newRatings := make(map[game_entities.PlayerID]game_entities.RatingValue, len(info.Players))
	entries := make([]rating_entities.LeaderboardEntry, 0, len(info.Players))
	journal := make([]rating_entities.RatingChangeJournalEntry, 0, len(info.Players))

	for gi, team := range teamIDs {
		idxs := teamOf[team]
		for j, idx := range idxs {
			p := info.Players[idx]
			newRating := updated[gi][j]

			// Monotonicity override: a winner or drawer's conservative
			// estimate must never decrease from one rated game to the
			// next; a loss in variance from more games played could
			// otherwise outweigh a mean gain.
			before := Rating{Mu: p.Before.Mean, Sigma: p.Before.Sigma}
			if ranks[gi] == 0 && newRating.PenisPoints() < before.PenisPoints() {
				newRating = before
			}

			after := game_entities.RatingValue{Mean: newRating.Mu, Sigma: newRating.Sigma}
			oldRatings[p.PlayerID] = p.Before
			newRatings[p.PlayerID] = after

			journal = append(journal, rating_entities.RatingChangeJournalEntry{
				GameID:   info.GameID,
				PlayerID: p.PlayerID,
				Before:   p.Before,
				After:    after,
				Outcome:  p.Outcome,
			})
			entries = append(entries, rating_entities.LeaderboardEntry{
				PlayerID:           p.PlayerID,
				Rating:             after,
				ConservativeRating: after.PenisPoints(),
			})
		}
	}

	rankLeaderboard(entries)

	s.mu.Lock()
	callbacks := append([]RatingCallback(nil), s.callbacks...)
	s.mu.Unlock()
	for _, cb := range callbacks {
		cb(ctx, info, oldRatings, newRatings, likelihoods)
	}

	for playerID, after := range newRatings {
		if err := s.players.ApplyRatingChange(ctx, playerID, info.RatingType, after); err != nil {
			slog.ErrorContext(ctx, "failed to apply rating change", "game_id", info.GameID, "player_id", playerID, "error", err)
		}
	}

	return s.repo.PersistBatch(ctx, info.RatingType, entries, journal)
}

// outcomeRank maps a resolved outcome to a TrueSkill rank: 0 is first
// place. DRAW and MUTUAL_DRAW share rank 0 with VICTORY so they pair as a
// tie; UNKNOWN/CONFLICTING are treated as a loss rather than excluded, so
// a partially-unreported game still rates the players who did report.
func outcomeRank(outcome game_entities.GameOutcome) int {
	switch outcome {
	case game_entities.GameOutcomeVictory, game_entities.GameOutcomeDraw, game_entities.GameOutcomeMutualDraw:
		return 0
	default:
		return 1
	}
}

// rankLeaderboard assigns ranks 1..n by descending PenisPoints, Rating's
// conservative estimate, across a single game's touched entries; equal
// ratings still get distinct ranks, in no defined order. The full leaderboard rank/size fields are reconciled
// against the persisted table by the repository, not here.
func rankLeaderboard(entries []rating_entities.LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		ri := Rating{Mu: entries[i].Rating.Mean, Sigma: entries[i].Rating.Sigma}
		rj := Rating{Mu: entries[j].Rating.Mean, Sigma: entries[j].Rating.Sigma}
		return ri.PenisPoints() > rj.PenisPoints()
	})
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].LeaderboardSize = len(entries)
	}
}
