// Package game_ports_in declares the inbound command messages a
// GameConnection processes, one variant per GPGNet-style client command.
package game_ports_in

import game_entities "github.com/ta-forever/server/pkg/domain/game/entities"

// Command is the closed set of messages GameConnection.HandleCommand
// accepts. Implementations are plain structs; a type switch in the
// connection's dispatcher picks the handler.
type Command interface {
	commandName() string
}

type GameStateCommand struct {
	State game_entities.GameState
}

func (GameStateCommand) commandName() string { return "GameState" }

type GameOptionCommand struct {
	Key   string
	Value interface{}
}

func (GameOptionCommand) commandName() string { return "GameOption" }

type PlayerOptionCommand struct {
	PlayerID game_entities.PlayerID
	Key      string
	Value    interface{}
}

func (PlayerOptionCommand) commandName() string { return "PlayerOption" }

type AIOptionCommand struct {
	Name  string
	Key   string
	Value interface{}
}

func (AIOptionCommand) commandName() string { return "AIOption" }

type ClearSlotCommand struct {
	StartSpot int
}

func (ClearSlotCommand) commandName() string { return "ClearSlot" }

type GameModsCommand struct {
	Mode string
	Args []string
}

func (GameModsCommand) commandName() string { return "GameMods" }

type GameResultCommand struct {
	Army int
	Text string
}

func (GameResultCommand) commandName() string { return "GameResult" }

type GameEndedCommand struct{}

func (GameEndedCommand) commandName() string { return "GameEnded" }

type TeamkillHappenedCommand struct {
	VictimID   game_entities.PlayerID
	KillerID   game_entities.PlayerID
	OccurredAt int64
}

func (TeamkillHappenedCommand) commandName() string { return "TeamkillHappened" }

type OperationCompleteCommand struct {
	OperationID int
	SecondaryObjectivesCount int
}

func (OperationCompleteCommand) commandName() string { return "OperationComplete" }

type JsonStatsCommand struct {
	Blob string
}

func (JsonStatsCommand) commandName() string { return "JsonStats" }

type EnforceRatingCommand struct{}

func (EnforceRatingCommand) commandName() string { return "EnforceRating" }

type IceMsgCommand struct {
	ReceiverID game_entities.PlayerID
	Payload    interface{}
}

func (IceMsgCommand) commandName() string { return "IceMsg" }

type GameMetricsCommand struct {
	Kind  string
	Value interface{}
}

func (GameMetricsCommand) commandName() string { return "GameMetrics" }

// The remainder are accepted but intentionally no-ops: the server
// acknowledges them without state changes, per spec. The exception is
// Desync, which GameConnection counts toward a TOO_MANY_DESYNCS downgrade.

type DesyncCommand struct{}

func (DesyncCommand) commandName() string { return "Desync" }

type ChatCommand struct{ Text string }

func (ChatCommand) commandName() string { return "Chat" }

type RehostCommand struct{}

func (RehostCommand) commandName() string { return "Rehost" }

type BottleneckCommand struct{}

func (BottleneckCommand) commandName() string { return "Bottleneck" }

type BottleneckClearedCommand struct{}

func (BottleneckClearedCommand) commandName() string { return "BottleneckCleared" }

type DisconnectedCommand struct {
	FromPlayerID game_entities.PlayerID
}

func (DisconnectedCommand) commandName() string { return "Disconnected" }

type GameFullCommand struct{}

func (GameFullCommand) commandName() string { return "GameFull" }
