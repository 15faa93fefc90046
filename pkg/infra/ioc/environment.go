package ioc

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	common "github.com/ta-forever/server/pkg/domain"
)

// buildMongoURI constructs a MongoDB connection URI with credentials if provided
func buildMongoURI() string {
	uri := os.Getenv("MONGO_URI")

	user := os.Getenv("MONGODB_USER")
	password := os.Getenv("MONGODB_PASSWORD")

	if user != "" && password != "" {
		parsed, err := url.Parse(uri)
		if err == nil && parsed.User == nil {
			parsed.User = url.UserPassword(user, password)
			q := parsed.Query()
			if q.Get("authSource") == "" {
				q.Set("authSource", "admin")
				parsed.RawQuery = q.Encode()
			}
			return parsed.String()
		}
	}

	if uri == "" {
		host := os.Getenv("MONGODB_HOST")
		port := os.Getenv("MONGODB_PORT")
		dbName := os.Getenv("MONGODB_DATABASE")
		if host != "" && port != "" && dbName != "" {
			if user != "" && password != "" {
				uri = fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
					url.QueryEscape(user), url.QueryEscape(password), host, port, dbName)
			} else {
				uri = fmt.Sprintf("mongodb://%s:%s/%s", host, port, dbName)
			}
		}
	}

	return uri
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvironmentConfig loads this service's configuration from the process
// environment, matching the defaults the original Python lobby server
// shipped with (rating seed mean/deviation, planet dominance ratio).
func EnvironmentConfig() (common.Config, error) {
	config := common.Config{
		MongoDB: common.MongoDBConfig{
			URI:         buildMongoURI(),
			PublicKey:   os.Getenv("MONGO_PUB_KEY"),
			Certificate: os.Getenv("MONGO_CERT"),
			DBName:      getEnvString("MONGODB_DATABASE", "taforever"),
		},
		Rating: common.RatingConfig{
			StartMean: getEnvFloat("RATING_START_MEAN", 1500),
			StartDev:  getEnvFloat("RATING_START_DEV", 500),
		},
		GalacticWar: common.GalacticWarConfig{
			DefaultPlanetSize:      getEnvInt("GW_DEFAULT_PLANET_SIZE", 100),
			RequiredDominanceRatio: getEnvFloat("GW_DOMINANCE_RATIO", 0.6),
			ScenarioDir:            getEnvString("GW_SCENARIO_DIR", "./scenarios"),
			InitialScenario:        getEnvString("GW_INITIAL_SCENARIO", "default"),
			StakeStrategy:          getEnvString("GW_STAKE_STRATEGY", "rating"),
			WinnerTakesThePot:      getEnvBool("GW_WINNER_TAKES_POT", false),
			MaxScore:               getEnvFloat("GW_MAX_SCORE", 400),
			MaxPerOpponent:         getEnvFloat("GW_MAX_PER_OPPONENT", 100),
			RankFactor:             getEnvFloat("GW_RANK_FACTOR", 1.0),
			UpdateStateInterval:    getEnvDuration("GW_UPDATE_STATE_INTERVAL", 5*time.Minute),
		},
		Broadcaster: common.BroadcasterConfig{
			DirtyReportInterval: getEnvDuration("BROADCASTER_FLUSH_INTERVAL", 1*time.Second),
			PingInterval:        getEnvDuration("BROADCASTER_PING_INTERVAL", 30*time.Second),
		},
		Admin: common.AdminConfig{
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
	}

	return config, nil
}
