package galacticwar_services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	common "github.com/ta-forever/server/pkg/domain"
	galacticwar_entities "github.com/ta-forever/server/pkg/domain/galacticwar/entities"
	galacticwar_out "github.com/ta-forever/server/pkg/domain/galacticwar/ports/out"
	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
	rating_out "github.com/ta-forever/server/pkg/domain/rating/ports/out"
	rating_services "github.com/ta-forever/server/pkg/domain/rating/services"
	"github.com/ta-forever/server/pkg/infra/metrics"
)

// noopAlertPublisher is the default when no AlertPublisher is wired,
// keeping galactic war startup side-effect-free in tests.
type noopAlertPublisher struct{}

func (noopAlertPublisher) Publish(ctx context.Context, kind, message string) {}

const defaultRequiredDominanceRatio = galacticwar_entities.RequiredDominanceRatio
const minLeaderboardSizeForRankStakes = 10
const minPenisPointsGapForRankStakes = 1.0

// GalacticWarService owns the live campaign State and advances it as rated
// skirmish results land and as the scenario rotates. All mutation goes
// through a single mutex: campaign ticks are infrequent (once per finished
// skirmish, plus a periodic front-line sweep) and never worth more than
// coarse-grained locking.
type GalacticWarService struct {
	mu       sync.Mutex
	state    *galacticwar_entities.State
	repo     galacticwar_out.ScenarioRepository
	alerts   galacticwar_out.AlertPublisher
	ratings  rating_out.RatingRepository
	mapPool  galacticwar_out.MapPoolChecker
	config   common.GalacticWarConfig
	periodic bool
	dirty    bool
}

func NewGalacticWarService(repo galacticwar_out.ScenarioRepository, alerts galacticwar_out.AlertPublisher, ratings rating_out.RatingRepository, mapPool galacticwar_out.MapPoolChecker, config common.GalacticWarConfig) *GalacticWarService {
	if alerts == nil {
		alerts = noopAlertPublisher{}
	}
	if config.RequiredDominanceRatio <= 0 {
		config.RequiredDominanceRatio = defaultRequiredDominanceRatio
	}
	if config.StakeStrategy == "" {
		config.StakeStrategy = "rating"
	}
	if config.MaxScore <= 0 {
		config.MaxScore = 400
	}
	if config.MaxPerOpponent <= 0 {
		config.MaxPerOpponent = 100
	}
	if config.RankFactor <= 0 {
		config.RankFactor = 1
	}
	return &GalacticWarService{repo: repo, alerts: alerts, ratings: ratings, mapPool: mapPool, config: config}
}

// SetPeriodicTickConfigured tells the service a periodic update_state tick
// is running elsewhere (cmd/server/main.go's front-line ticker), so
// OnGameRating should not also run a synchronous update_state pass inline
// on the rating-worker goroutine (SPEC_FULL.md §4.5's "if no cron is set").
func (s *GalacticWarService) SetPeriodicTickConfigured(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periodic = v
}

// LoadScenario replaces the live campaign map with the named scenario, used
// at startup and by RotateScenario. If the loaded scenario has no capitals
// marked, it is freshly initialized per SPEC_FULL.md §4.5's scenario-rotation
// steps before being made live.
func (s *GalacticWarService) LoadScenario(ctx context.Context, scenarioName string) error {
	state, err := s.repo.Load(ctx, scenarioName)
	if err != nil {
		return fmt.Errorf("loading galactic war scenario %q: %w", scenarioName, err)
	}
	s.mu.Lock()
	s.state = state
	s.dirty = true
	needsInit := len(state.Capitals(game_vo.FactionArm)) == 0 && len(state.Capitals(game_vo.FactionCore)) == 0
	s.mu.Unlock()

	if needsInit {
		s.InitializeScenario(ctx)
	}
	return nil
}

// IsDirty reports and clears whether the campaign map has changed since the
// last call, for the broadcaster's galactic_war_update coalescing.
func (s *GalacticWarService) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.dirty
	s.dirty = false
	return dirty
}

func (s *GalacticWarService) markDirtyLocked() {
	s.dirty = true
}

func (s *GalacticWarService) State() *galacticwar_entities.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *GalacticWarService) findPlanetByName(name string) *galacticwar_entities.Planet {
	for _, p := range s.state.Planets {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// validate implements §4.5's validate_game against an already-rated game's
// EndedGameInfo, returning the planet it targets or an
// ErrInvalidGalacticWarGame describing the first failing check.
func (s *GalacticWarService) validate(info *game_entities.EndedGameInfo) (*galacticwar_entities.Planet, map[game_entities.PlayerID]game_vo.Faction, error) {
	if info.GalacticWarPlanetName == nil {
		return nil, nil, fmt.Errorf("game %d: not a galactic war game", info.GameID)
	}
	if !info.Validity.IsValid() {
		return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: validity is %s, not VALID", info.GameID, info.Validity))
	}
	if info.RatingType == "" || info.RatingType == game_vo.RatingTypeGlobal {
		return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: rating type %q is not eligible for galactic war", info.GameID, info.RatingType))
	}

	planet := s.findPlanetByName(*info.GalacticWarPlanetName)
	if planet == nil {
		return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: unknown galactic war planet %q", info.GameID, *info.GalacticWarPlanetName))
	}
	if planet.Map != "" && !strings.EqualFold(planet.Map, info.Map) {
		return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: map %q does not match planet %q's map %q", info.GameID, info.Map, planet.Name, planet.Map))
	}
	if planet.ControlledBy != nil {
		return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: planet %q is already controlled by %s", info.GameID, planet.Name, planet.ControlledBy))
	}

	teamFaction := make(map[int]game_vo.Faction)
	for _, p := range info.Players {
		if existing, ok := teamFaction[p.Team]; ok {
			if existing != p.Faction {
				return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: team %d has inconsistent factions", info.GameID, p.Team))
			}
		} else {
			teamFaction[p.Team] = p.Faction
		}
	}
	if len(teamFaction) != 2 {
		return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: galactic war requires exactly two teams, got %d", info.GameID, len(teamFaction)))
	}
	factions := make([]game_vo.Faction, 0, 2)
	for _, f := range teamFaction {
		factions = append(factions, f)
	}
	if factions[0] == factions[1] {
		return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: both teams fight for the same faction", info.GameID))
	}

	for _, f := range factions {
		if !s.factionOwnsNeighborOrCapital(planet, f) {
			return nil, nil, common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: faction %s owns no neighbour of %q and does not hold it as a capital", info.GameID, f, planet.Name))
		}
	}

	playerFactions := make(map[game_entities.PlayerID]game_vo.Faction, len(info.Players))
	for _, p := range info.Players {
		playerFactions[p.PlayerID] = p.Faction
	}
	return planet, playerFactions, nil
}

func (s *GalacticWarService) factionOwnsNeighborOrCapital(planet *galacticwar_entities.Planet, f game_vo.Faction) bool {
	if planet.CapitalOf != nil && *planet.CapitalOf == f {
		return true
	}
	for _, n := range s.state.Neighbors(planet) {
		if n.ControlledBy != nil && *n.ControlledBy == f {
			return true
		}
	}
	return false
}

// ValidateGame is the public, game-shaped wrapper over validate, used by
// callers (e.g. a controller confirming eligibility before advertising a
// game as a galactic war skirmish) that only have a Game, not yet an
// EndedGameInfo.
func (s *GalacticWarService) ValidateGame(g *game_entities.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.GalacticWarPlanetName == nil {
		return fmt.Errorf("game %d: not a galactic war game", g.ID)
	}
	planet := s.findPlanetByName(*g.GalacticWarPlanetName)
	if planet == nil {
		return common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: unknown galactic war planet %q", g.ID, *g.GalacticWarPlanetName))
	}
	if planet.ControlledBy != nil {
		return common.NewErrInvalidGalacticWarGame(fmt.Sprintf("game %d: planet %q is already controlled", g.ID, planet.Name))
	}
	return nil
}

// OnGameRating is registered as a rating_services.RatingCallback: it fires
// once per rated game, after TrueSkill has run but before the rating
// deltas are persisted, exactly matching the source's on_game_rating
// hook point. Invalid galactic war games are not an error for the rating
// pipeline itself — they just don't move the campaign map, after an
// informational alert.
func (s *GalacticWarService) OnGameRating(
	ctx context.Context,
	info *game_entities.EndedGameInfo,
	oldRatings map[game_entities.PlayerID]game_entities.RatingValue,
	newRatings map[game_entities.PlayerID]game_entities.RatingValue,
	likelihoods map[int]rating_services.TeamOutcomeLikelihood,
) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return
	}
	planet, playerFactions, err := s.validate(info)
	if err != nil {
		s.mu.Unlock()
		if common.IsInvalidGalacticWarGameError(err) {
			slog.InfoContext(ctx, "galactic war game rejected", "game_id", info.GameID, "error", err)
			s.alerts.Publish(ctx, "invalid_galactic_war_game", err.Error())
		}
		return
	}

	s.applyStakes(ctx, info, planet, playerFactions, oldRatings, likelihoods)
	s.markDirtyLocked()
	periodic := s.periodic
	state := s.state
	s.mu.Unlock()

	if !periodic {
		s.UpdateState(ctx)
	}

	if err := s.repo.Save(ctx, state); err != nil {
		slog.ErrorContext(ctx, "failed to save galactic war state after rating", "error", err)
	}
}

// applyStakes implements update_scores (§4.5): prices each participant's
// stake by the configured strategy, resolves it by outcome, and credits
// the planet's per-faction score and each player's belligerent total. s.mu
// must already be held.
func (s *GalacticWarService) applyStakes(
	ctx context.Context,
	info *game_entities.EndedGameInfo,
	planet *galacticwar_entities.Planet,
	playerFactions map[game_entities.PlayerID]game_vo.Faction,
	oldRatings map[game_entities.PlayerID]game_entities.RatingValue,
	likelihoods map[int]rating_services.TeamOutcomeLikelihood,
) {
	teamOf := make(map[int][]game_entities.EndedGamePlayerSummary)
	for _, p := range info.Players {
		teamOf[p.Team] = append(teamOf[p.Team], p)
	}
	teamIDs := make([]int, 0, len(teamOf))
	for team := range teamOf {
		teamIDs = append(teamIDs, team)
	}
	sort.Ints(teamIDs)
	if len(teamIDs) != 2 {
		return
	}
	teamA, teamB := teamOf[teamIDs[0]], teamOf[teamIDs[1]]

	var stakes map[game_entities.PlayerID]float64
	switch strings.ToLower(s.config.StakeStrategy) {
	case "rank":
		stakes = s.rankStakes(ctx, info.RatingType, teamA, teamB)
	default:
		stakes = s.ratingStakes(teamA, teamB, teamIDs, likelihoods)
	}

	var winners, losers []game_entities.EndedGamePlayerSummary
	drawn := false
	for _, p := range append(append([]game_entities.EndedGamePlayerSummary{}, teamA...), teamB...) {
		switch p.Outcome {
		case game_entities.GameOutcomeVictory:
			winners = append(winners, p)
		case game_entities.GameOutcomeDefeat:
			losers = append(losers, p)
		case game_entities.GameOutcomeDraw, game_entities.GameOutcomeMutualDraw:
			drawn = true
		}
	}

	planetDeltas := make(map[game_vo.Faction]float64)

	if drawn || len(winners) == 0 || len(losers) == 0 {
		for playerID, stake := range stakes {
			f := playerFactions[playerID]
			delta := -0.5 * stake
			planet.AdjustBelligerent(playerID, f, delta)
			planetDeltas[f] += delta
		}
	} else {
		pot := 0.0
		for _, p := range losers {
			pot += stakes[p.PlayerID]
			f := playerFactions[p.PlayerID]
			planet.AdjustBelligerent(p.PlayerID, f, -stakes[p.PlayerID])
			planetDeltas[f] -= stakes[p.PlayerID]
		}
		share := 0.0
		if len(winners) > 0 {
			share = pot / float64(len(winners))
		}
		winningFaction := playerFactions[winners[0].PlayerID]
		for _, p := range winners {
			// Belligerent attribution always credits the pot share, even
			// when WinnerTakesThePot is false and the planet's faction
			// aggregate doesn't move for the win (SPEC_FULL.md §4.5).
			planet.AdjustBelligerent(p.PlayerID, winningFaction, share)
		}
		if s.config.WinnerTakesThePot {
			planetDeltas[winningFaction] += pot
		}
	}

	for f, delta := range planetDeltas {
		planet.SetScore(f, planet.GetScore(f)+delta)
	}
	rebaselinePlanet(planet)

	slog.InfoContext(ctx, "galactic war scores updated", "planet", planet.Name, "game_id", info.GameID, "strategy", s.config.StakeStrategy)
}

// ratingStakes prices each player's stake as their team's pre-rating win
// probability times MaxScore (SPEC_FULL.md §4.5's rating strategy).
func (s *GalacticWarService) ratingStakes(teamA, teamB []game_entities.EndedGamePlayerSummary, teamIDs []int, likelihoods map[int]rating_services.TeamOutcomeLikelihood) map[game_entities.PlayerID]float64 {
	stakes := make(map[game_entities.PlayerID]float64, len(teamA)+len(teamB))
	for _, p := range teamA {
		stakes[p.PlayerID] = likelihoods[teamIDs[0]].Win * s.config.MaxScore
	}
	for _, p := range teamB {
		stakes[p.PlayerID] = likelihoods[teamIDs[1]].Win * s.config.MaxScore
	}
	return stakes
}

// rankStakes implements the rank pricing strategy: every cross-team pair of
// players posts a stake scaled by how far apart their leaderboard ranks
// are, normalized by leaderboard size, and a player's own stake is the
// average across every opponent they're paired against.
func (s *GalacticWarService) rankStakes(ctx context.Context, ratingType game_vo.RatingType, teamA, teamB []game_entities.EndedGamePlayerSummary) map[game_entities.PlayerID]float64 {
	sums := make(map[game_entities.PlayerID]float64)
	counts := make(map[game_entities.PlayerID]int)
	half := s.config.MaxPerOpponent / 2

	rankOf := func(p game_entities.EndedGamePlayerSummary) (rank, size int, penis float64, ok bool) {
		if s.ratings == nil {
			return 0, 0, 0, false
		}
		entry, err := s.ratings.FindLeaderboardEntry(ctx, ratingType, p.PlayerID)
		if err != nil || entry == nil {
			return 0, 0, 0, false
		}
		return entry.Rank, entry.LeaderboardSize, entry.ConservativeRating, true
	}

	for _, a := range teamA {
		rankA, sizeA, penisA, okA := rankOf(a)
		for _, b := range teamB {
			rankB, sizeB, penisB, okB := rankOf(b)

			var stake float64
			if !okA || !okB || sizeA < minLeaderboardSizeForRankStakes || sizeB < minLeaderboardSizeForRankStakes || math.Abs(penisA-penisB) < minPenisPointsGapForRankStakes {
				stake = half
			} else {
				normA := float64(rankA) / float64(sizeA)
				normB := float64(rankB) / float64(sizeB)
				rankDiff := normA - normB
				stake = normalCDF(rankDiff/s.config.RankFactor) * s.config.MaxPerOpponent
			}
			sums[a.PlayerID] += stake
			counts[a.PlayerID]++
			sums[b.PlayerID] += stake
			counts[b.PlayerID]++
		}
	}

	out := make(map[game_entities.PlayerID]float64, len(sums))
	for id, sum := range sums {
		if counts[id] > 0 {
			out[id] = sum / float64(counts[id])
		}
	}
	return out
}

func normalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// rebaselinePlanet re-baselines every faction's score upward by the
// absolute value of the most negative score, so no faction's score on a
// planet is ever negative after an update (SPEC_FULL.md §4.5, §8).
func rebaselinePlanet(p *galacticwar_entities.Planet) {
	min := 0.0
	for _, v := range p.Score {
		if v < min {
			min = v
		}
	}
	if min >= 0 {
		return
	}
	shift := -min
	for f, v := range p.Score {
		p.SetScore(f, v+shift)
	}
}

// UpdateFrontLines processes contested planets in decreasing order of
// their highest faction score; a planet with a dominant faction is
// captured and every neighbour previously held by a different faction is
// knocked back to contested with scores reset to the planet's size
// (SPEC_FULL.md §4.5). Returns the names of every planet that changed
// control this pass.
func (s *GalacticWarService) UpdateFrontLines(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateFrontLinesLocked(ctx)
}

func (s *GalacticWarService) updateFrontLinesLocked(ctx context.Context) []string {
	if s.state == nil {
		return nil
	}
	var captured []string
	for _, p := range s.state.ContestedPlanets() {
		if p.CapitalOf != nil {
			continue
		}
		dominant := p.DominantFactionWithRatio(s.config.RequiredDominanceRatio)
		if dominant == nil {
			continue
		}
		p.ControlledBy = dominant
		p.ResetScores()
		captured = append(captured, p.Name)
		metrics.GalacticWarPlanetsCaptured.Inc()
		slog.InfoContext(ctx, "planet captured", "planet", p.Name, "faction", dominant.String())
		s.alerts.Publish(ctx, "planet_captured", fmt.Sprintf("%s captured by %s", p.Name, dominant.Capitalized()))

		for _, n := range s.state.Neighbors(p) {
			if n.CapitalOf != nil {
				continue
			}
			if n.ControlledBy == nil {
				continue
			}
			if *n.ControlledBy == *dominant {
				continue
			}
			n.ControlledBy = nil
			n.ResetScores()
			captured = append(captured, n.Name)
		}
	}
	if len(captured) > 0 {
		s.markDirtyLocked()
	}
	return captured
}

// CaptureUncontestedPlanets hands any contested non-capital planet whose
// controlled neighbours all belong to a single faction to that faction
// (SPEC_FULL.md §4.5's "capture uncontested planets").
func (s *GalacticWarService) CaptureUncontestedPlanets(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureUncontestedLocked(ctx)
}

func (s *GalacticWarService) captureUncontestedLocked(ctx context.Context) []string {
	if s.state == nil {
		return nil
	}
	var captured []string
	for _, p := range s.state.ContestedPlanets() {
		if p.CapitalOf != nil {
			continue
		}
		var sole *game_vo.Faction
		ambiguous := false
		for _, n := range s.state.Neighbors(p) {
			if n.ControlledBy == nil {
				continue
			}
			if sole == nil {
				sole = n.ControlledBy
			} else if *sole != *n.ControlledBy {
				ambiguous = true
				break
			}
		}
		if ambiguous || sole == nil {
			continue
		}
		p.ControlledBy = sole
		p.ResetScores()
		captured = append(captured, p.Name)
		slog.InfoContext(ctx, "uncontested planet captured", "planet", p.Name, "faction", sole.String())
	}
	if len(captured) > 0 {
		s.markDirtyLocked()
	}
	return captured
}

// CaptureIsolatedPlanets reassigns control of any planet that has been cut
// off from all of its controlling faction's capitals by the front line's
// advance: such a planet reverts to contested, scores reset.
func (s *GalacticWarService) CaptureIsolatedPlanets(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureIsolatedLocked(ctx)
}

func (s *GalacticWarService) captureIsolatedLocked(ctx context.Context) []string {
	if s.state == nil {
		return nil
	}
	var flipped []string
	for _, f := range game_vo.AllFactions() {
		for _, p := range s.state.IsolatedPlanets(f) {
			p.ControlledBy = nil
			p.ResetScores()
			flipped = append(flipped, p.Name)
			slog.InfoContext(ctx, "planet isolated, reverted to contested", "planet", p.Name, "previous_faction", f.String())
		}
	}
	if len(flipped) > 0 {
		s.markDirtyLocked()
	}
	return flipped
}

// UpdateState runs the front-line, uncontested-capture, and isolated-planet
// passes repeatedly until a full round produces no further mutation, then
// rotates the scenario if fewer than two capitals remain uncaptured
// (SPEC_FULL.md §4.5's update_state / scenario rotation).
func (s *GalacticWarService) UpdateState(ctx context.Context) {
	for {
		s.mu.Lock()
		captured := s.updateFrontLinesLocked(ctx)
		captured = append(captured, s.captureUncontestedLocked(ctx)...)
		captured = append(captured, s.captureIsolatedLocked(ctx)...)
		s.mu.Unlock()
		if len(captured) == 0 {
			break
		}
	}

	if s.shouldRotate() {
		if err := s.rotateToNextScenario(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to rotate galactic war scenario", "error", err)
		}
	}
}

// shouldRotate reports whether fewer than two capitals remain uncaptured
// (still held by their original owner): the scenario-rotation trigger.
func (s *GalacticWarService) shouldRotate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return false
	}
	standing := 0
	for _, f := range game_vo.AllFactions() {
		for _, p := range s.state.Capitals(f) {
			if p.ControlledBy == nil || *p.ControlledBy == f {
				standing++
			}
		}
	}
	return standing < 2
}

func (s *GalacticWarService) rotateToNextScenario(ctx context.Context) error {
	names, err := s.repo.ListAvailableScenarios(ctx)
	if err != nil {
		return fmt.Errorf("listing scenarios: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no scenario files available to rotate to")
	}
	sort.Strings(names)

	s.mu.Lock()
	current := ""
	if s.state != nil {
		current = s.state.ScenarioName
	}
	s.mu.Unlock()

	next := s.config.InitialScenario
	if next == "" {
		next = names[0]
	}
	for i, name := range names {
		if name == current {
			next = names[(i+1)%len(names)]
			break
		}
	}
	return s.RotateScenario(ctx, next)
}

// RotateScenario swaps in a new scenario, saving the outgoing one's final
// state first so a campaign's history is never lost to a rotation.
func (s *GalacticWarService) RotateScenario(ctx context.Context, nextScenarioName string) error {
	s.mu.Lock()
	outgoing := s.state
	s.mu.Unlock()

	if outgoing != nil {
		if err := s.repo.Save(ctx, outgoing); err != nil {
			slog.ErrorContext(ctx, "failed to save outgoing scenario", "scenario", outgoing.ScenarioName, "error", err)
		}
	}
	return s.LoadScenario(ctx, nextScenarioName)
}

// InitializeScenario runs the fresh-scenario setup SPEC_FULL.md §4.5
// describes: if no capitals are marked, place two at the graph's diameter
// endpoints; distribute the rest by shortest path; separate abutting
// factions; capture uncontested neighbours; optionally reassign planets on
// unranked maps.
func (s *GalacticWarService) InitializeScenario(ctx context.Context) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return
	}
	armCapitals := s.state.Capitals(game_vo.FactionArm)
	coreCapitals := s.state.Capitals(game_vo.FactionCore)
	if len(armCapitals) == 0 && len(coreCapitals) == 0 {
		s.assignTwoCapitalsLocked()
	}
	s.distributePlanetsLocked()
	s.separateAbuttingFactionsLocked()
	s.markDirtyLocked()
	s.mu.Unlock()

	s.CaptureUncontestedPlanets(ctx)

	if s.mapPool != nil {
		s.ensureRankedMaps(ctx)
	}

	slog.InfoContext(ctx, "galactic war scenario initialized")
}

func (s *GalacticWarService) assignTwoCapitalsLocked() {
	fromID, toID, _ := s.state.Diameter()
	if fromID == 0 && toID == 0 {
		return
	}
	arm := game_vo.FactionArm
	core := game_vo.FactionCore
	if p, ok := s.state.Planets[fromID]; ok {
		p.CapitalOf = &arm
		p.ControlledBy = &arm
		p.ResetScores()
	}
	if p, ok := s.state.Planets[toID]; ok {
		p.CapitalOf = &core
		p.ControlledBy = &core
		p.ResetScores()
	}
}

// distributePlanetsLocked assigns every non-capital planet to whichever
// capital is closer by shortest path; an equidistant planet remains
// contested.
func (s *GalacticWarService) distributePlanetsLocked() {
	var armCapital, coreCapital *galacticwar_entities.Planet
	for _, p := range s.state.Capitals(game_vo.FactionArm) {
		armCapital = p
		break
	}
	for _, p := range s.state.Capitals(game_vo.FactionCore) {
		coreCapital = p
		break
	}
	if armCapital == nil || coreCapital == nil {
		return
	}

	for _, p := range s.state.AllPlanetsSorted() {
		if p.CapitalOf != nil {
			continue
		}
		dArm, armOK := s.state.ShortestPathLength(armCapital.ID, p.ID)
		dCore, coreOK := s.state.ShortestPathLength(coreCapital.ID, p.ID)
		switch {
		case armOK && (!coreOK || dArm < dCore):
			f := game_vo.FactionArm
			p.ControlledBy = &f
			p.ResetScores()
		case coreOK && (!armOK || dCore < dArm):
			f := game_vo.FactionCore
			p.ControlledBy = &f
			p.ResetScores()
		default:
			p.ControlledBy = nil
			p.ResetScores()
		}
	}
}

// separateAbuttingFactionsLocked contests any pair of controlled planets of
// opposing factions that are directly jump-gate-connected, so a freshly
// distributed scenario starts with a proper no-man's-land rather than two
// territories touching directly.
func (s *GalacticWarService) separateAbuttingFactionsLocked() {
	toContest := make(map[int]struct{})
	for _, p := range s.state.AllPlanetsSorted() {
		if p.ControlledBy == nil || p.CapitalOf != nil {
			continue
		}
		for _, n := range s.state.Neighbors(p) {
			if n.ControlledBy == nil || n.CapitalOf != nil {
				continue
			}
			if *n.ControlledBy != *p.ControlledBy {
				toContest[p.ID] = struct{}{}
				toContest[n.ID] = struct{}{}
			}
		}
	}
	for id := range toContest {
		p := s.state.Planets[id]
		p.ControlledBy = nil
		p.ResetScores()
	}
}

// ensureRankedMaps reassigns (contests) any planet whose map is not in any
// 1v1 queue's rating-1500 map pool, per SPEC_FULL.md §4.5 step 5.
func (s *GalacticWarService) ensureRankedMaps(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, p := range s.state.AllPlanetsSorted() {
		if p.CapitalOf != nil {
			continue
		}
		if s.mapPool.IsMapRanked(p.Map) {
			continue
		}
		if p.ControlledBy != nil {
			p.ControlledBy = nil
			p.ResetScores()
			changed = true
		}
	}
	if changed {
		s.markDirtyLocked()
		slog.InfoContext(ctx, "contested planets on unranked maps")
	}
}

// ManualCapture parses a "name:faction;name:faction;..." directive (the
// admin scenario-editing hook) and sets each named planet's controller and
// scores accordingly.
func (s *GalacticWarService) ManualCapture(ctx context.Context, directive string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return fmt.Errorf("no galactic war scenario loaded")
	}
	for _, part := range strings.Split(directive, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return fmt.Errorf("malformed capture directive %q", part)
		}
		name := strings.TrimSpace(fields[0])
		planet := s.findPlanetByName(name)
		if planet == nil {
			return fmt.Errorf("unknown planet %q", name)
		}
		factionStr := strings.TrimSpace(fields[1])
		if strings.EqualFold(factionStr, "contested") || factionStr == "" {
			planet.ControlledBy = nil
			planet.ResetScores()
			continue
		}
		f, err := game_vo.ParseFaction(factionStr)
		if err != nil {
			return fmt.Errorf("capture directive %q: %w", part, err)
		}
		planet.ControlledBy = &f
		planet.ResetScores()
	}
	s.markDirtyLocked()
	return nil
}

// Checkpoint persists the live state without rotating, called on a
// periodic timer so a crash loses at most one checkpoint interval of
// campaign progress.
func (s *GalacticWarService) Checkpoint(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == nil {
		return nil
	}
	return s.repo.Save(ctx, state)
}
