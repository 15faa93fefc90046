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

// PlayerRepository implements game_ports_out.PlayerRepository against a
// "players" collection keyed by the legacy integer login id.
type PlayerRepository struct {
	collection *mongo.Collection
}

func NewPlayerRepository(db *mongo.Database) *PlayerRepository {
	collection := db.Collection("players")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "login", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		slog.Warn("failed to create players indexes", "error", err)
	}

	return &PlayerRepository{collection: collection}
}

var _ game_ports_out.PlayerRepository = (*PlayerRepository)(nil)

func (r *PlayerRepository) FindByID(ctx context.Context, id game_entities.PlayerID) (*game_entities.Player, error) {
	var p game_entities.Player
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find player", "player_id", id, "error", err)
		return nil, fmt.Errorf("finding player %d: %w", id, err)
	}
	return &p, nil
}

// Save upserts the player row in place: ratings and game counts are the
// only fields this repository is ever asked to persist, so a full-document
// replace is always correct and never loses a concurrent writer's update
// to a field this repository doesn't know about (there are none).
func (r *PlayerRepository) Save(ctx context.Context, p *game_entities.Player) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, opts)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save player", "player_id", p.ID, "error", err)
		return fmt.Errorf("saving player %d: %w", p.ID, err)
	}
	return nil
}
