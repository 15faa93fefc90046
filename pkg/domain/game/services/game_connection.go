package game_services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_in "github.com/ta-forever/server/pkg/domain/game/ports/in"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
)

// CommandTimeout is how long a connection may go without a command before
// GameConnection treats it as stalled and aborts it.
const CommandTimeout = 60 * time.Second

// MinGameDurationForValid is the threshold below which a game is marked
// TOO_SHORT rather than counted toward ratings.
const MinGameDurationForValid = 60 * time.Second

// validTransitions enumerates the state machine's edges; any transition
// not listed here is rejected.
var validTransitions = map[game_entities.GameState][]game_entities.GameState{
	game_entities.GameStateInitializing: {game_entities.GameStateStaging, game_entities.GameStateEnded},
	game_entities.GameStateStaging:      {game_entities.GameStateBattleroom, game_entities.GameStateEnded},
	game_entities.GameStateBattleroom:   {game_entities.GameStateLaunching, game_entities.GameStateStaging, game_entities.GameStateEnded},
	game_entities.GameStateLaunching:    {game_entities.GameStateLive, game_entities.GameStateEnded},
	game_entities.GameStateLive:         {game_entities.GameStateEnded},
	game_entities.GameStateEnded:        {},
}

// GameConnection is the per-player command dispatcher for one Game. There
// is one GameConnection per seated player or observer; commands for a
// single connection are processed one at a time on its own goroutine,
// giving each connection the same effectively-single-threaded cooperative
// scheduling the originating server relied on, without a process-wide lock.
type GameConnection struct {
	mu         sync.Mutex
	game       *game_entities.Game
	playerID   game_entities.PlayerID
	conn       game_out.Connection
	protocol   game_out.Protocol
	games      *GameService
	players    *PlayerService
	ratingCfg  RatingTypeConfig
	alerts     game_out.AlertPublisher
	queues     *MatchmakerQueueRegistry

	ended      bool
	aborted    bool
	isHost     bool
	pendingSubState string
	lastCmdAt  time.Time
	cancelTimeout context.CancelFunc
}

type noopAlertPublisher struct{}

func (noopAlertPublisher) Publish(ctx context.Context, kind, message string) {}

// RatingTypeConfig carries the defaults assign_rating_type needs: the
// globally preferred rating type and the starting (mean, sigma) for a
// player with no history of it.
type RatingTypeConfig struct {
	Preferred  game_vo.RatingType
	StartMean  float64
	StartSigma float64
}

func NewGameConnection(g *game_entities.Game, playerID game_entities.PlayerID, conn game_out.Connection, protocol game_out.Protocol, games *GameService, players *PlayerService, ratingCfg RatingTypeConfig, alerts game_out.AlertPublisher, queues *MatchmakerQueueRegistry) *GameConnection {
	if alerts == nil {
		alerts = noopAlertPublisher{}
	}
	return &GameConnection{
		game:      g,
		playerID:  playerID,
		conn:      conn,
		protocol:  protocol,
		games:     games,
		players:   players,
		ratingCfg: ratingCfg,
		alerts:    alerts,
		queues:    queues,
		isHost:    playerID == g.HostID,
		lastCmdAt: time.Now(),
	}
}

// Run drives the connection's timeout watchdog until ctx is cancelled or
// the connection aborts on its own. Callers spawn this as a goroutine.
func (c *GameConnection) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelTimeout = cancel
	c.mu.Unlock()
	defer cancel()

	ticker := time.NewTicker(CommandTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			stale := time.Since(c.lastCmdAt) > CommandTimeout
			c.mu.Unlock()
			if stale {
				_ = c.Abort(ctx, "command timeout")
				return
			}
		}
	}
}

// HandleCommand dispatches one inbound command. It is the caller's
// responsibility to serialize calls per connection (e.g. one goroutine
// reading off one channel); the handlers take only this connection's own
// mutex, and the shared Game has no lock of its own.
func (c *GameConnection) HandleCommand(ctx context.Context, cmd game_in.Command) error {
	c.mu.Lock()
	c.lastCmdAt = time.Now()
	c.mu.Unlock()

	switch v := cmd.(type) {
	case game_in.GameStateCommand:
		return c.handleGameState(ctx, v.State)
	case game_in.GameOptionCommand:
		return c.handleGameOption(v)
	case game_in.PlayerOptionCommand:
		return c.handlePlayerOption(v)
	case game_in.AIOptionCommand:
		return c.handleAIOption(v)
	case game_in.ClearSlotCommand:
		c.game.RemovePlayerOption(c.playerID)
		return nil
	case game_in.GameModsCommand:
		return c.handleGameMods(v)
	case game_in.GameResultCommand:
		return c.handleGameResult(v)
	case game_in.GameEndedCommand:
		if c.games.ReportFinished(c.game.ID, c.playerID) {
			return c.onGameEnd(ctx)
		}
		return nil
	case game_in.TeamkillHappenedCommand:
		slog.WarnContext(ctx, "teamkill reported", "game_id", c.game.ID, "victim", v.VictimID, "killer", v.KillerID)
		c.alerts.Publish(ctx, "teamkill", fmt.Sprintf("game %d: player %d teamkilled %d", c.game.ID, v.KillerID, v.VictimID))
		return nil
	case game_in.JsonStatsCommand, game_in.GameMetricsCommand, game_in.OperationCompleteCommand:
		return nil
	case game_in.EnforceRatingCommand:
		c.game.EnforceRatingRange = true
		return nil
	case game_in.IceMsgCommand:
		return c.protocol.SendIceMessage(ctx, c.conn, v.ReceiverID, v.Payload)
	case game_in.DesyncCommand:
		c.game.Desyncs++
		if c.game.Desyncs > 20 {
			c.game.Downgrade(game_entities.ValidityTooManyDesyncs)
		}
		return nil
	case game_in.DisconnectedCommand, game_in.ChatCommand, game_in.RehostCommand,
		game_in.BottleneckCommand, game_in.BottleneckClearedCommand, game_in.GameFullCommand:
		return nil
	default:
		return fmt.Errorf("game %d: unsupported command %T", c.game.ID, cmd)
	}
}

func (c *GameConnection) handleGameState(ctx context.Context, next game_entities.GameState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next = foldSubState(next, c.pendingSubState)
	c.pendingSubState = ""

	current := c.game.State
	allowed := validTransitions[current]
	ok := false
	for _, s := range allowed {
		if s == next {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("game %d: illegal transition %s -> %s", c.game.ID, current, next)
	}

	c.game.State = next
	switch next {
	case game_entities.GameStateStaging:
		c.wirePeers(ctx)
	case game_entities.GameStateLaunching:
		now := time.Now()
		c.game.LaunchedAt = &now
		c.assignRatingType()
	case game_entities.GameStateLive:
		c.game.FreezeRoster()
	case game_entities.GameStateEnded:
		// handled idempotently via onGameEnd / Abort, not here directly.
	}

	c.games.MarkDirty(c.game.ID, DirtyFlags{})
	return nil
}

// wirePeers instructs a newly-staging connection's protocol adapter to
// connect it to every other seated player, and them to it.
func (c *GameConnection) wirePeers(ctx context.Context) {
	for pid := range c.game.PlayerOptions {
		if pid == c.playerID {
			continue
		}
		if err := c.protocol.SendConnectToPeer(ctx, c.conn, pid, "", false); err != nil {
			slog.WarnContext(ctx, "failed to wire peer", "game_id", c.game.ID, "player_id", pid, "error", err)
		}
	}
	for pid, h := range c.games.PeerHandles(c.game.ID, c.playerID) {
		if err := h.protocol.SendConnectToPeer(ctx, h.conn, c.playerID, "", true); err != nil {
			slog.WarnContext(ctx, "failed to wire peer", "game_id", c.game.ID, "player_id", pid, "error", err)
		}
	}
}

// foldSubState resolves the GPGNet state/substate split: a GameOption
// ("SubState", ...) arrives just before the GameState report it refines, a
// defense against a known ICE-adapter drop of GameState's second argument.
// Battleroom and Live report as a pending substate on top of the coarser
// Staging/Launching major state; anything else passes through unchanged.
func foldSubState(next game_entities.GameState, pending string) game_entities.GameState {
	switch pending {
	case "Battleroom":
		if next == game_entities.GameStateStaging {
			return game_entities.GameStateBattleroom
		}
	case "Live":
		if next == game_entities.GameStateLaunching {
			return game_entities.GameStateLive
		}
	}
	return next
}

// handleGameOption records a GameOption report. SubState is tracked
// per-connection regardless of host status, since it describes this
// player's own simulation substate; the remaining keys describe game-wide
// lobby settings the host controls and feed the post-LIVE validity checks
// in onGameEnd.
func (c *GameConnection) handleGameOption(v game_in.GameOptionCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v.Key == "SubState" {
		if s, ok := v.Value.(string); ok {
			c.pendingSubState = s
		}
		return nil
	}

	if !c.isHost {
		return nil
	}

	switch v.Key {
	case "CheatsEnabled":
		if b, ok := v.Value.(bool); ok {
			c.game.CheatsEnabled = b
		}
	case "FogOfWar":
		if s, ok := v.Value.(string); ok {
			c.game.FogOfWar = s
		}
	case "PrebuiltUnits":
		if b, ok := v.Value.(bool); ok {
			c.game.PrebuiltUnits = b
		}
	case "NoRushOption":
		if b, ok := v.Value.(bool); ok {
			c.game.NoRushOption = b
		}
	case "RestrictedCategories":
		if n, ok := v.Value.(int); ok {
			c.game.RestrictedCategories = n
		}
	case "TeamLock":
		if s, ok := v.Value.(string); ok {
			c.game.TeamLock = s
		}
	case "Victory":
		if s, ok := v.Value.(string); ok {
			c.game.Victory = s
		}
	case "AIReplacement":
		if b, ok := v.Value.(bool); ok {
			c.game.AIReplacement = b
		}
	case "RatingType":
		if s, ok := v.Value.(string); ok {
			rt := game_vo.RatingType(s)
			c.game.RatingType = rt
			c.game.RatingTypePreferred = rt
		}
	}
	return nil
}

func (c *GameConnection) handlePlayerOption(v game_in.PlayerOptionCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	opt, ok := c.game.PlayerOptions[v.PlayerID]
	if !ok {
		opt = &game_entities.PlayerOption{}
	}
	switch v.Key {
	case "Team":
		if team, ok := v.Value.(int); ok {
			opt.Team = team
		}
	case "Army":
		if army, ok := v.Value.(int); ok {
			opt.Army = army
		}
	case "StartSpot":
		if spot, ok := v.Value.(int); ok {
			opt.StartSpot = spot
		}
	case "Color":
		if color, ok := v.Value.(int); ok {
			opt.Color = color
		}
	case "Faction":
		if name, ok := v.Value.(string); ok {
			if f, err := game_vo.ParseFaction(name); err == nil {
				opt.Faction = f
			}
		}
	}
	return c.game.AddPlayerOption(v.PlayerID, opt)
}

func (c *GameConnection) handleAIOption(v game_in.AIOptionCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	opt, ok := c.game.AIs[v.Name]
	if !ok {
		opt = make(game_entities.AIOption)
		c.game.AIs[v.Name] = opt
	}
	opt[v.Key] = v.Value
	c.game.Downgrade(game_entities.ValidityHasAIPlayers)
	return nil
}

func (c *GameConnection) handleGameMods(v game_in.GameModsCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v.Mode {
	case "activated", "active":
		for _, modID := range v.Args {
			c.game.Mods[modID] = modID
			if !isApprovedMod(modID) {
				c.game.Downgrade(game_entities.ValidityBadMod)
			}
		}
	}
	return nil
}

// isApprovedMod stands in for a server-side mod allow-list lookup. There is
// no allow-list: it approves every mod id, so handleGameMods records
// activated mods without ever downgrading a game to BAD_MOD.
func isApprovedMod(modID string) bool {
	return true
}

func (c *GameConnection) handleGameResult(v game_in.GameResultCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	outcome, score := parseResultText(v.Text)
	c.game.Results.Add(v.Army, game_entities.ArmyReportedOutcome{
		ReporterID: c.playerID,
		Outcome:    outcome,
		Score:      score,
		Text:       v.Text,
	})
	return nil
}

// parseResultText decodes the GPGNet "<outcome> <score>" style payload
// (e.g. "victory 100"), taking the last two whitespace-separated tokens as
// (label, score) the way the source server's result parser does.
// Unparseable text resolves to UNKNOWN/0 rather than erroring: a single
// malformed report must not block every other player's result from
// landing.
func parseResultText(text string) (game_entities.GameOutcome, int) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return game_entities.GameOutcomeUnknown, 0
	}
	outcomeStr := strings.ToLower(fields[len(fields)-2])
	score, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return game_entities.GameOutcomeUnknown, 0
	}
	switch outcomeStr {
	case "victory":
		return game_entities.GameOutcomeVictory, score
	case "defeat":
		return game_entities.GameOutcomeDefeat, score
	case "draw":
		return game_entities.GameOutcomeDraw, score
	default:
		return game_entities.GameOutcomeUnknown, score
	}
}

// assignRatingType implements the state-transition rating type decision
// (spec §4.1.1):
//  1. Outside {STAGING, BATTLEROOM, LAUNCHING} the existing rating_type is
//     retained untouched.
//  2. A lobby whose preferred type is GLOBAL always rates GLOBAL and carries
//     no queue/map-pool assignment.
//  3. A lobby of matchmaker origin keeps the type it was already matched on.
//  4. Otherwise the configured queues are searched for one whose featured
//     mod matches and whose team size fits the observed roster, gated on
//     the game's map being in that queue's pool (or, if the queue carries
//     no pool of its own, the server-wide ranked-maps set). The best-fitting
//     queue (largest team size) wins; if none fits, the game rates GLOBAL.
func (c *GameConnection) assignRatingType() {
	g := c.game

	switch g.State {
	case game_entities.GameStateStaging, game_entities.GameStateBattleroom, game_entities.GameStateLaunching:
	default:
		return
	}

	if g.RatingTypePreferred == game_vo.RatingTypeGlobal {
		g.RatingType = game_vo.RatingTypeGlobal
		g.MatchmakerQueueID = nil
		g.MapPoolMapIDs = nil
		return
	}

	if g.IsMatchmakerOrigin {
		g.RatingType = g.RatingTypePreferred
		return
	}

	if c.queues != nil {
		if q := c.queues.FindBestQueue(g.FeaturedMod, g.ObservedTeamSize()); q != nil && c.queueMapPoolAllows(q) {
			g.RatingType = q.RatingType
			id := string(q.ID)
			g.MatchmakerQueueID = &id
			g.MapPoolMapIDs = q.MapPool
			return
		}
	}

	g.RatingType = game_vo.RatingTypeGlobal
}

// queueMapPoolAllows reports whether the game's map qualifies for q's
// rating type: against q's own pool when it has one, else against the
// server-wide ranked-maps set.
func (c *GameConnection) queueMapPoolAllows(q *game_entities.MatchmakerQueue) bool {
	if len(q.MapPool) == 0 {
		return c.queues.IsMapRanked(c.game.Map)
	}
	for _, m := range q.MapPool {
		if m == c.game.Map {
			return true
		}
	}
	return false
}

// onGameEnd finalizes a game's outcome. It is idempotent: a second call
// (e.g. both GameEnded and a connection Abort racing to finalize) is a
// no-op once the first has run, so persistence and rating enqueue never
// double-fire.
func (c *GameConnection) onGameEnd(ctx context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	g := c.game
	c.mu.Unlock()

	wasLive := g.State == game_entities.GameStateLive
	g.State = game_entities.GameStateEnded
	now := time.Now()
	g.EndedAt = &now

	// process_game_results (spec §4.1) only runs for a game that actually
	// reached LIVE; a lobby that ends from staging/battleroom/launching (host
	// left, or the 60s staging/battleroom timeout) leaves validity untouched
	// and reports no results.
	if wasLive {
		if g.LaunchedAt != nil && now.Sub(*g.LaunchedAt) < MinGameDurationForValid {
			g.Downgrade(game_entities.ValidityTooShort)
		}
		if len(g.Results.Armies()) == 0 {
			g.Downgrade(game_entities.ValidityUnknownResult)
		}
		if g.Results.IsMutualDraw() {
			g.Downgrade(game_entities.ValidityMutualDraw)
		}
		if len(g.Teams()) == 0 && !g.IsFFA() {
			g.Downgrade(game_entities.ValiditySinglePlayer)
		}
		if g.IsMultiTeam() {
			g.Downgrade(game_entities.ValidityMultiTeam)
		}
		if g.IsFFA() {
			g.Downgrade(game_entities.ValidityFFANotRanked)
		}
		if !g.TeamsAreEven() && !g.IsFFA() {
			g.Downgrade(game_entities.ValidityUnevenTeamsNotRanked)
		}
		if g.CheatsEnabled {
			g.Downgrade(game_entities.ValidityCheatsEnabled)
		}
		if g.PrebuiltUnits {
			g.Downgrade(game_entities.ValidityPrebuiltEnabled)
		}
		if g.NoRushOption {
			g.Downgrade(game_entities.ValidityNoRushEnabled)
		}
		if g.FogOfWar != "explored" {
			g.Downgrade(game_entities.ValidityNoFogOfWar)
		}
		if g.RestrictedCategories != 0 {
			g.Downgrade(game_entities.ValidityBadUnitRestrictions)
		}
		if g.TeamLock != "locked" {
			g.Downgrade(game_entities.ValidityUnlockedTeams)
		}
		if g.Victory != "DEMORALIZATION" {
			g.Downgrade(game_entities.ValidityWrongVictoryCondition)
		}
		if g.AIReplacement {
			g.Downgrade(game_entities.ValidityHasAIPlayers)
		}
	}

	info := c.buildEndedGameInfo(ctx, g)
	c.games.PublishGameResults(ctx, info)
	c.games.MarkDirty(g.ID, DirtyFlags{})

	slog.InfoContext(ctx, "game ended", "game_id", g.ID, "validity", g.Validity, "players", len(info.Players))
	return nil
}

func (c *GameConnection) buildEndedGameInfo(ctx context.Context, g *game_entities.Game) *game_entities.EndedGameInfo {
	summaries := make([]game_entities.EndedGamePlayerSummary, 0, len(g.PlayerOptions))
	for pid, opt := range g.PlayerOptions {
		var before game_entities.RatingValue
		if p, err := c.players.Get(ctx, pid); err == nil {
			before = p.RatingOrDefault(g.RatingType, c.ratingCfg.StartMean, c.ratingCfg.StartSigma)
		}
		summaries = append(summaries, game_entities.EndedGamePlayerSummary{
			PlayerID: pid,
			Army:     opt.Army,
			Team:     opt.Team,
			Outcome:  g.Results.Outcome(opt.Army),
			Score:    g.Results.Score(opt.Army),
			Before:   before,
		})
	}
	return &game_entities.EndedGameInfo{
		GameID:     g.ID,
		Kind:       g.Kind,
		Map:        g.Map,
		RatingType: g.RatingType,
		Validity:   g.Validity,
		Players:    summaries,
	}
}

// Abort tears down this connection. It is idempotent and safe to call
// from the timeout watchdog, from a transport-level disconnect, or twice
// in a race between the two: the second call observes c.aborted and
// returns immediately.
func (c *GameConnection) Abort(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.aborted {
		c.mu.Unlock()
		return nil
	}
	c.aborted = true
	if c.cancelTimeout != nil {
		c.cancelTimeout()
	}
	g := c.game
	c.mu.Unlock()

	g.RemovePlayerOption(c.playerID)
	if err := c.protocol.SendDisconnectFromPeer(ctx, c.conn, c.playerID); err != nil {
		slog.WarnContext(ctx, "failed to notify disconnect", "game_id", g.ID, "player_id", c.playerID, "error", err)
	}

	isLastConnection := len(g.PlayerOptions) == 0 && g.State != game_entities.GameStateEnded
	if isLastConnection {
		if err := c.onGameEnd(ctx); err != nil {
			return err
		}
	} else {
		c.games.MarkDirty(g.ID, DirtyFlags{})
	}

	if err := c.conn.Abort(ctx, reason); err != nil {
		return fmt.Errorf("game %d: connection abort: %w", g.ID, err)
	}
	return nil
}
