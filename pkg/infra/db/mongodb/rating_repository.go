package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
	rating_entities "github.com/ta-forever/server/pkg/domain/rating/entities"
	rating_ports_out "github.com/ta-forever/server/pkg/domain/rating/ports/out"
)

// RatingRepository implements rating_ports_out.RatingRepository. Each
// rating type gets its own leaderboard collection ("leaderboard_<type>")
// so a query against one ladder never scans another's rows; the journal
// is a single append-only collection shared across rating types,
// distinguished by its rating_type field.
type RatingRepository struct {
	db      *mongo.Database
	journal *mongo.Collection

	// indexedLeaderboards tracks which per-rating-type collections already
	// got their conservative_rating index, since leaderboard collections
	// are created lazily on first access rather than all up front.
	indexedLeaderboards sync.Map
}

func NewRatingRepository(db *mongo.Database) *RatingRepository {
	journal := db.Collection("rating_journal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "player_id", Value: 1}, {Key: "game_id", Value: 1}}},
	}
	if _, err := journal.Indexes().CreateMany(ctx, indexes); err != nil {
		slog.Warn("failed to create rating_journal indexes", "error", err)
	}

	return &RatingRepository{db: db, journal: journal}
}

var _ rating_ports_out.RatingRepository = (*RatingRepository)(nil)

func (r *RatingRepository) leaderboardCollection(ratingType game_vo.RatingType) *mongo.Collection {
	collection := r.db.Collection("leaderboard_" + string(ratingType))
	if _, ready := r.indexedLeaderboards.LoadOrStore(ratingType, true); !ready {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		index := mongo.IndexModel{Keys: bson.D{{Key: "conservative_rating", Value: -1}}}
		if _, err := collection.Indexes().CreateOne(ctx, index); err != nil {
			slog.Warn("failed to create leaderboard index", "rating_type", ratingType, "error", err)
		}
	}
	return collection
}

func (r *RatingRepository) FindLeaderboardEntry(ctx context.Context, ratingType game_vo.RatingType, playerID game_entities.PlayerID) (*rating_entities.LeaderboardEntry, error) {
	var entry rating_entities.LeaderboardEntry
	err := r.leaderboardCollection(ratingType).FindOne(ctx, bson.M{"player_id": playerID}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find leaderboard entry", "rating_type", ratingType, "player_id", playerID, "error", err)
		return nil, fmt.Errorf("finding leaderboard entry for player %d (%s): %w", playerID, ratingType, err)
	}
	return &entry, nil
}

// ListTop serves a leaderboard page, sorted by the conservative rating
// snapshotted at write time rather than recomputed from Mean/Sigma here.
func (r *RatingRepository) ListTop(ctx context.Context, ratingType game_vo.RatingType, limit int) ([]rating_entities.LeaderboardEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "conservative_rating", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.leaderboardCollection(ratingType).Find(ctx, bson.M{}, opts)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list leaderboard", "rating_type", ratingType, "error", err)
		return nil, fmt.Errorf("listing leaderboard for %s: %w", ratingType, err)
	}
	defer cursor.Close(ctx)

	var entries []rating_entities.LeaderboardEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decoding leaderboard for %s: %w", ratingType, err)
	}
	return entries, nil
}

// PersistBatch writes every leaderboard row change and journal entry from
// one finished game's rating pass. Both collections are written inside a
// session transaction so a crash between the leaderboard upserts and the
// journal inserts never leaves the journal missing rows the leaderboard
// already reflects.
func (r *RatingRepository) PersistBatch(ctx context.Context, ratingType game_vo.RatingType, entries []rating_entities.LeaderboardEntry, journal []rating_entities.RatingChangeJournalEntry) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("starting rating persist session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		collection := r.leaderboardCollection(ratingType)
		for _, entry := range entries {
			opts := options.Replace().SetUpsert(true)
			if _, err := collection.ReplaceOne(sessCtx, bson.M{"player_id": entry.PlayerID}, entry, opts); err != nil {
				return nil, fmt.Errorf("upserting leaderboard entry for player %d: %w", entry.PlayerID, err)
			}
		}

		if len(journal) > 0 {
			docs := make([]interface{}, len(journal))
			for i := range journal {
				docs[i] = journal[i]
			}
			if _, err := r.journal.InsertMany(sessCtx, docs); err != nil {
				return nil, fmt.Errorf("inserting rating journal entries: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist rating batch", "rating_type", ratingType, "error", err)
		return err
	}
	return nil
}
