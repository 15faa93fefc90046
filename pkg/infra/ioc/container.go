package ioc

import (
	"context"
	"log/slog"
	"os"
	"time"

	// env
	"github.com/joho/godotenv"

	// mongodb
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	// repositories/db
	db "github.com/ta-forever/server/pkg/infra/db/mongodb"

	// message broker / alerting
	"github.com/ta-forever/server/pkg/infra/amqp"
	"github.com/ta-forever/server/pkg/infra/kafka"
	"github.com/ta-forever/server/pkg/infra/scenario"
	"github.com/ta-forever/server/pkg/infra/security"

	// lobby broadcast hub
	"github.com/ta-forever/server/pkg/infra/broadcaster"

	// container
	container "github.com/golobby/container/v3"

	// ports
	common "github.com/ta-forever/server/pkg/domain"

	galacticwar_out "github.com/ta-forever/server/pkg/domain/galacticwar/ports/out"
	game_out "github.com/ta-forever/server/pkg/domain/game/ports/out"
	rating_out "github.com/ta-forever/server/pkg/domain/rating/ports/out"

	// services
	galacticwar_services "github.com/ta-forever/server/pkg/domain/galacticwar/services"
	game_services "github.com/ta-forever/server/pkg/domain/game/services"
	rating_services "github.com/ta-forever/server/pkg/domain/rating/services"
)

type ContainerBuilder struct {
	Container container.Container
}

func NewContainerBuilder() *ContainerBuilder {
	c := container.New()

	b := &ContainerBuilder{
		c,
	}

	err := c.Singleton(func() container.Container {
		return b.Container
	})

	if err != nil {
		slog.Error("failed to register *container.Container in NewContainerBuilder")
		panic(err)
	}

	err = c.Singleton(func() *ContainerBuilder {
		return b
	})

	if err != nil {
		slog.Error("failed to register *ContainerBuilder in NewContainerBuilder")
		panic(err)
	}

	return b
}

func (b *ContainerBuilder) Build() container.Container {
	return b.Container
}

func (b *ContainerBuilder) WithEnvFile() *ContainerBuilder {
	if os.Getenv("DEV_ENV") == "true" {
		err := godotenv.Load()
		if err != nil {
			slog.Error("failed to load .env file")
			panic(err)
		}
	}

	err := b.Container.Singleton(func() (common.Config, error) {
		return EnvironmentConfig()
	})

	if err != nil {
		slog.Error("failed to load EnvironmentConfig")
		panic(err)
	}

	return b
}

// WithMongoDB wires the *mongo.Client and its three per-entity repository
// adapters. Unlike a generic reflection-driven repository DSL, each
// adapter here is resolved as its own concrete type first, then bound to
// the narrow outbound port(s) it satisfies.
func (b *ContainerBuilder) WithMongoDB() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (*mongo.Client, error) {
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			slog.Error("failed to resolve config for mongo.Client", "err", err)
			return nil, err
		}

		mongoOptions := options.Client().ApplyURI(config.MongoDB.URI)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, mongoOptions)
		if err != nil {
			slog.Error("failed to connect to MongoDB", "err", err)
			return nil, err
		}
		return client, nil
	})
	if err != nil {
		slog.Error("failed to load mongo.Client")
		panic(err)
	}

	err = c.Singleton(func() (*mongo.Database, error) {
		var client *mongo.Client
		if err := c.Resolve(&client); err != nil {
			return nil, err
		}
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			return nil, err
		}
		return client.Database(config.MongoDB.DBName), nil
	})
	if err != nil {
		slog.Error("failed to load *mongo.Database")
		panic(err)
	}

	err = c.Singleton(func() (*db.GameRepository, error) {
		var database *mongo.Database
		if err := c.Resolve(&database); err != nil {
			slog.Error("failed to resolve *mongo.Database for db.GameRepository", "err", err)
			return nil, err
		}
		return db.NewGameRepository(database), nil
	})
	if err != nil {
		slog.Error("failed to load db.GameRepository")
		panic(err)
	}

	err = c.Singleton(func() (game_out.GameRepository, error) {
		var repo *db.GameRepository
		if err := c.Resolve(&repo); err != nil {
			return nil, err
		}
		return repo, nil
	})
	if err != nil {
		slog.Error("failed to load game_out.GameRepository")
		panic(err)
	}

	err = c.Singleton(func() (*db.PlayerRepository, error) {
		var database *mongo.Database
		if err := c.Resolve(&database); err != nil {
			slog.Error("failed to resolve *mongo.Database for db.PlayerRepository", "err", err)
			return nil, err
		}
		return db.NewPlayerRepository(database), nil
	})
	if err != nil {
		slog.Error("failed to load db.PlayerRepository")
		panic(err)
	}

	err = c.Singleton(func() (game_out.PlayerRepository, error) {
		var repo *db.PlayerRepository
		if err := c.Resolve(&repo); err != nil {
			return nil, err
		}
		return repo, nil
	})
	if err != nil {
		slog.Error("failed to load game_out.PlayerRepository")
		panic(err)
	}

	err = c.Singleton(func() (*db.RatingRepository, error) {
		var database *mongo.Database
		if err := c.Resolve(&database); err != nil {
			slog.Error("failed to resolve *mongo.Database for db.RatingRepository", "err", err)
			return nil, err
		}
		return db.NewRatingRepository(database), nil
	})
	if err != nil {
		slog.Error("failed to load db.RatingRepository")
		panic(err)
	}

	err = c.Singleton(func() (rating_out.RatingRepository, error) {
		var repo *db.RatingRepository
		if err := c.Resolve(&repo); err != nil {
			return nil, err
		}
		return repo, nil
	})
	if err != nil {
		slog.Error("failed to load rating_out.RatingRepository")
		panic(err)
	}

	return b
}

// WithScenarioRepository wires the filesystem-backed Galactic War
// scenario store: the campaign map is hand-edited between seasons, not a
// database concern.
func (b *ContainerBuilder) WithScenarioRepository() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (galacticwar_out.ScenarioRepository, error) {
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			slog.Error("failed to resolve config for ScenarioRepository", "err", err)
			return nil, err
		}
		return scenario.NewFileRepository(config.GalacticWar.ScenarioDir), nil
	})
	if err != nil {
		slog.Error("failed to load galacticwar_out.ScenarioRepository")
		panic(err)
	}

	return b
}

// WithAlerting wires the AMQP ops-alert notifier behind both domains'
// AlertPublisher ports: game and galacticwar each declare their own
// narrow interface, but a single Notifier satisfies both.
func (b *ContainerBuilder) WithAlerting() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() *amqp.Notifier {
		return amqp.NewNotifier(amqp.NewConfigFromEnv())
	})
	if err != nil {
		slog.Error("failed to load *amqp.Notifier")
		panic(err)
	}

	err = c.Singleton(func() (game_out.AlertPublisher, error) {
		var notifier *amqp.Notifier
		if err := c.Resolve(&notifier); err != nil {
			return nil, err
		}
		return notifier, nil
	})
	if err != nil {
		slog.Error("failed to load game_out.AlertPublisher")
		panic(err)
	}

	err = c.Singleton(func() (galacticwar_out.AlertPublisher, error) {
		var notifier *amqp.Notifier
		if err := c.Resolve(&notifier); err != nil {
			return nil, err
		}
		return notifier, nil
	})
	if err != nil {
		slog.Error("failed to load galacticwar_out.AlertPublisher")
		panic(err)
	}

	return b
}

// WithKafka wires the Kafka client, the outbound domain event publisher
// (game_out.MessageBus) and the lobby-instance websocket bridge. The
// bridge is resolved lazily against *broadcaster.Broadcaster, so it must
// be constructed after WithBroadcaster.
func (b *ContainerBuilder) WithKafka() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (*kafka.Client, error) {
		return kafka.NewClient(kafka.NewConfigFromEnv())
	})
	if err != nil {
		slog.Error("failed to load *kafka.Client")
		panic(err)
	}

	err = c.Singleton(func() (*kafka.EventPublisher, error) {
		var client *kafka.Client
		if err := c.Resolve(&client); err != nil {
			return nil, err
		}
		return kafka.NewEventPublisher(client), nil
	})
	if err != nil {
		slog.Error("failed to load *kafka.EventPublisher")
		panic(err)
	}

	err = c.Singleton(func() (game_out.MessageBus, error) {
		var publisher *kafka.EventPublisher
		if err := c.Resolve(&publisher); err != nil {
			return nil, err
		}
		return publisher, nil
	})
	if err != nil {
		slog.Error("failed to load game_out.MessageBus")
		panic(err)
	}

	err = c.Singleton(func() (*kafka.WebSocketBridge, error) {
		var client *kafka.Client
		if err := c.Resolve(&client); err != nil {
			return nil, err
		}
		var hub *broadcaster.Broadcaster
		if err := c.Resolve(&hub); err != nil {
			slog.Error("failed to resolve *broadcaster.Broadcaster for *kafka.WebSocketBridge", "err", err)
			return nil, err
		}
		instanceID := os.Getenv("INSTANCE_ID")
		if instanceID == "" {
			instanceID = "lobby-0"
		}
		return kafka.NewWebSocketBridge(client, hub, instanceID), nil
	})
	if err != nil {
		slog.Error("failed to load *kafka.WebSocketBridge")
		panic(err)
	}

	return b
}

// WithRateLimiter wires the adaptive token-bucket/threat-scoring limiter
// guarding the lobby's sensitive endpoints (game creation, game connect,
// scenario rotation).
func (b *ContainerBuilder) WithRateLimiter() *ContainerBuilder {
	err := b.Container.Singleton(func() *security.AdaptiveRateLimiter {
		return security.NewAdaptiveRateLimiter(security.DefaultTierConfigs)
	})
	if err != nil {
		slog.Error("failed to load *security.AdaptiveRateLimiter")
		panic(err)
	}
	return b
}

// WithDomainServices wires GameService, PlayerService, RatingService and
// GalacticWarService, threading each domain's one-way ports
// (RatingPublisher/PlayerRatingSink) across the game/rating package
// boundary without either package importing the other.
func (b *ContainerBuilder) WithDomainServices() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (*game_services.PlayerService, error) {
		var repo game_out.PlayerRepository
		if err := c.Resolve(&repo); err != nil {
			return nil, err
		}
		return game_services.NewPlayerService(repo), nil
	})
	if err != nil {
		slog.Error("failed to load *game_services.PlayerService")
		panic(err)
	}

	err = c.Singleton(func() (game_out.PlayerRatingSink, error) {
		var players *game_services.PlayerService
		if err := c.Resolve(&players); err != nil {
			return nil, err
		}
		return players, nil
	})
	if err != nil {
		slog.Error("failed to load game_out.PlayerRatingSink")
		panic(err)
	}

	err = c.Singleton(func() (*rating_services.RatingService, error) {
		var repo rating_out.RatingRepository
		if err := c.Resolve(&repo); err != nil {
			return nil, err
		}
		var sink game_out.PlayerRatingSink
		if err := c.Resolve(&sink); err != nil {
			return nil, err
		}
		return rating_services.NewRatingService(repo, sink), nil
	})
	if err != nil {
		slog.Error("failed to load *rating_services.RatingService")
		panic(err)
	}

	err = c.Singleton(func() (game_out.RatingPublisher, error) {
		var rs *rating_services.RatingService
		if err := c.Resolve(&rs); err != nil {
			return nil, err
		}
		return rs, nil
	})
	if err != nil {
		slog.Error("failed to load game_out.RatingPublisher")
		panic(err)
	}

	err = c.Singleton(func() (*game_services.GameService, error) {
		var repo game_out.GameRepository
		if err := c.Resolve(&repo); err != nil {
			return nil, err
		}
		var bus game_out.MessageBus
		if err := c.Resolve(&bus); err != nil {
			return nil, err
		}
		var ratings game_out.RatingPublisher
		if err := c.Resolve(&ratings); err != nil {
			return nil, err
		}
		return game_services.NewGameService(repo, bus, ratings), nil
	})
	if err != nil {
		slog.Error("failed to load *game_services.GameService")
		panic(err)
	}

	err = c.Singleton(func() (*game_services.MatchmakerQueueRegistry, error) {
		// Queues themselves are registered at startup by cmd/server/main.go
		// from the configured matchmaker pools; the registry starts empty.
		return game_services.NewMatchmakerQueueRegistry(), nil
	})
	if err != nil {
		slog.Error("failed to load *game_services.MatchmakerQueueRegistry")
		panic(err)
	}

	err = c.Singleton(func() (galacticwar_out.MapPoolChecker, error) {
		var queues *game_services.MatchmakerQueueRegistry
		if err := c.Resolve(&queues); err != nil {
			return nil, err
		}
		return queues, nil
	})
	if err != nil {
		slog.Error("failed to load galacticwar_out.MapPoolChecker")
		panic(err)
	}

	err = c.Singleton(func() (*galacticwar_services.GalacticWarService, error) {
		var repo galacticwar_out.ScenarioRepository
		if err := c.Resolve(&repo); err != nil {
			return nil, err
		}
		var alerts galacticwar_out.AlertPublisher
		if err := c.Resolve(&alerts); err != nil {
			return nil, err
		}
		var ratings rating_out.RatingRepository
		if err := c.Resolve(&ratings); err != nil {
			return nil, err
		}
		var mapPool galacticwar_out.MapPoolChecker
		if err := c.Resolve(&mapPool); err != nil {
			return nil, err
		}
		var config common.Config
		if err := c.Resolve(&config); err != nil {
			return nil, err
		}
		return galacticwar_services.NewGalacticWarService(repo, alerts, ratings, mapPool, config.GalacticWar), nil
	})
	if err != nil {
		slog.Error("failed to load *galacticwar_services.GalacticWarService")
		panic(err)
	}

	{
		var rs *rating_services.RatingService
		if err := c.Resolve(&rs); err != nil {
			slog.Error("failed to resolve *rating_services.RatingService for callback wiring")
			panic(err)
		}
		var gw *galacticwar_services.GalacticWarService
		if err := c.Resolve(&gw); err != nil {
			slog.Error("failed to resolve *galacticwar_services.GalacticWarService for callback wiring")
			panic(err)
		}
		gw.SetPeriodicTickConfigured(true)
		rs.RegisterCallback(gw.OnGameRating)
	}

	return b
}

// WithBroadcaster wires the lobby dirty-flush hub. Must be registered
// after WithDomainServices (it depends on GameService/PlayerService) and
// before WithKafka (the websocket bridge depends on it).
func (b *ContainerBuilder) WithBroadcaster() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (*broadcaster.Broadcaster, error) {
		var games *game_services.GameService
		if err := c.Resolve(&games); err != nil {
			return nil, err
		}
		var players *game_services.PlayerService
		if err := c.Resolve(&players); err != nil {
			return nil, err
		}
		var galacticWar *galacticwar_services.GalacticWarService
		if err := c.Resolve(&galacticWar); err != nil {
			return nil, err
		}
		return broadcaster.NewBroadcaster(games, players, galacticWar), nil
	})
	if err != nil {
		slog.Error("failed to load *broadcaster.Broadcaster")
		panic(err)
	}

	return b
}

// With registers an ad-hoc singleton, kept for call sites (and tests)
// that need to override or add a binding outside the With* builder steps
// above.
func (b *ContainerBuilder) With(resolver interface{}) *ContainerBuilder {
	c := b.Container

	err := c.Singleton(resolver)

	if err != nil {
		slog.Error("failed to register resolver", "err", err)
		panic(err)
	}

	return b
}
