package gpgnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_in "github.com/ta-forever/server/pkg/domain/game/ports/in"
)

func TestDecodeCommandGameState(t *testing.T) {
	cmd, err := decodeCommand([]byte(`{"kind":"GameState","payload":{"state":"LIVE"}}`))
	require.NoError(t, err)
	require.IsType(t, game_in.GameStateCommand{}, cmd)
	assert.Equal(t, game_entities.GameState("LIVE"), cmd.(game_in.GameStateCommand).State)
}

func TestDecodeCommandPlayerOption(t *testing.T) {
	cmd, err := decodeCommand([]byte(`{"kind":"PlayerOption","payload":{"player_id":7,"key":"Team","value":2}}`))
	require.NoError(t, err)
	po, ok := cmd.(game_in.PlayerOptionCommand)
	require.True(t, ok)
	assert.Equal(t, game_entities.PlayerID(7), po.PlayerID)
	assert.Equal(t, "Team", po.Key)
}

func TestDecodeCommandNoPayloadCommands(t *testing.T) {
	for kind, want := range map[string]game_in.Command{
		"GameEnded":         game_in.GameEndedCommand{},
		"EnforceRating":     game_in.EnforceRatingCommand{},
		"Desync":            game_in.DesyncCommand{},
		"Rehost":            game_in.RehostCommand{},
		"Bottleneck":        game_in.BottleneckCommand{},
		"BottleneckCleared": game_in.BottleneckClearedCommand{},
		"GameFull":          game_in.GameFullCommand{},
	} {
		cmd, err := decodeCommand([]byte(`{"kind":"` + kind + `"}`))
		require.NoError(t, err)
		assert.Equal(t, want, cmd)
	}
}

func TestDecodeCommandUnknownKindErrors(t *testing.T) {
	_, err := decodeCommand([]byte(`{"kind":"NotARealCommand"}`))
	assert.Error(t, err)
}

func TestDecodeCommandMalformedEnvelopeErrors(t *testing.T) {
	_, err := decodeCommand([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeCommandGameResult(t *testing.T) {
	cmd, err := decodeCommand([]byte(`{"kind":"GameResult","payload":{"army":1,"text":"victory 100"}}`))
	require.NoError(t, err)
	gr, ok := cmd.(game_in.GameResultCommand)
	require.True(t, ok)
	assert.Equal(t, 1, gr.Army)
	assert.Equal(t, "victory 100", gr.Text)
}

func TestJSONProtocolSendHostGameRejectsClosedConn(t *testing.T) {
	// A closed Conn must reject writes rather than panic or hang.
	conn := &Conn{playerID: game_entities.PlayerID(1), closed: true}
	protocol := NewJSONProtocol()
	err := protocol.SendHostGame(nil, conn, "SCMP_001")
	assert.Error(t, err)
}

func TestConnAbortIsIdempotent(t *testing.T) {
	conn := &Conn{playerID: game_entities.PlayerID(1), closed: true}
	assert.True(t, conn.IsOpen() == false)
	err := conn.Abort(nil, "already closed")
	assert.NoError(t, err)
}
