// Package game_ports_out declares the external collaborators GameConnection
// drives but does not implement: the GPGNet-style wire protocol and the
// per-player transport connection. Both are treated as given — framing,
// authentication and transport reliability live outside this module.
package game_ports_out

import (
	"context"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
)

// Protocol encodes and sends the small set of server-to-client commands
// GameConnection issues over the course of a game's life.
type Protocol interface {
	SendHostGame(ctx context.Context, conn Connection, mapName string) error
	SendJoinGame(ctx context.Context, conn Connection, remotePlayerID game_entities.PlayerID, remotePlayerLogin string) error
	SendConnectToPeer(ctx context.Context, conn Connection, remotePlayerID game_entities.PlayerID, remotePlayerLogin string, offer bool) error
	SendDisconnectFromPeer(ctx context.Context, conn Connection, remotePlayerID game_entities.PlayerID) error
	SendIceMessage(ctx context.Context, conn Connection, remotePlayerID game_entities.PlayerID, payload interface{}) error
}

// Connection is one player's live transport session. Abort is idempotent:
// calling it on an already-closed connection must not error.
type Connection interface {
	PlayerID() game_entities.PlayerID
	Abort(ctx context.Context, reason string) error
	IsOpen() bool
}
