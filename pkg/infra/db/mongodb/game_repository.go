// Package mongodb holds the per-entity MongoDB adapters for the domain's
// outbound repository ports. Unlike the rest of the pack's generic
// reflection-driven MongoDBRepository[T] DSL, each repository here is a
// small, direct collection wrapper: this service has three narrow
// entities (Game, Player, rating leaderboard rows), none of which need a
// generic query builder, and a direct wrapper is easier to read and to
// keep in step with its entity's actual field set.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_ports_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
)

// GameRepository implements game_ports_out.GameRepository: games are only
// ever written once, at ENDED, so SaveEnded always inserts rather than upserts.
type GameRepository struct {
	collection *mongo.Collection
}

func NewGameRepository(db *mongo.Database) *GameRepository {
	collection := db.Collection("ended_games")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "game_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "players.player_id", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		slog.Warn("failed to create ended_games indexes", "error", err)
	}

	return &GameRepository{collection: collection}
}

var _ game_ports_out.GameRepository = (*GameRepository)(nil)

func (r *GameRepository) SaveEnded(ctx context.Context, info *game_entities.EndedGameInfo) error {
	_, err := r.collection.InsertOne(ctx, info)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save ended game", "game_id", info.GameID, "error", err)
		return fmt.Errorf("saving ended game %d: %w", info.GameID, err)
	}
	return nil
}

// FindByID looks up a finished game's summary. Games in flight live only in
// GameService's in-memory registry; a miss here just means the game either
// never finished or predates this repository's retention window, not that
// the game never existed.
func (r *GameRepository) FindByID(ctx context.Context, id game_entities.GameID) (*game_entities.Game, error) {
	var info game_entities.EndedGameInfo
	err := r.collection.FindOne(ctx, bson.M{"game_id": id}).Decode(&info)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find ended game", "game_id", id, "error", err)
		return nil, fmt.Errorf("finding ended game %d: %w", id, err)
	}

	g := &game_entities.Game{
		ID:         info.GameID,
		Kind:       info.Kind,
		Map:        info.Map,
		RatingType: info.RatingType,
		Validity:   info.Validity,
		State:      game_entities.GameStateEnded,
	}
	return g, nil
}
