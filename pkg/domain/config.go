package common

import "time"

type MongoDBConfig struct {
	DBName      string
	URI         string
	PublicKey   string
	Certificate string
}

// RatingConfig seeds new leaderboard rows and tunes the rating pipeline.
// Field names mirror the legacy rating table defaults this service inherits.
type RatingConfig struct {
	StartMean float64
	StartDev  float64
}

// GalacticWarConfig tunes planet graph accounting. RequiredDominanceRatio
// gates both get_dominant_faction and update_front_lines.
type GalacticWarConfig struct {
	DefaultPlanetSize      int
	RequiredDominanceRatio float64
	ScenarioDir            string
	InitialScenario        string
	StakeStrategy          string // "rating" (default) or "rank"
	WinnerTakesThePot      bool
	MaxScore               float64
	MaxPerOpponent         float64
	RankFactor             float64
	UpdateStateInterval    time.Duration
}

// BroadcasterConfig tunes the dirty-flush loop.
type BroadcasterConfig struct {
	DirtyReportInterval time.Duration
	PingInterval        time.Duration
}

// AdminConfig gates the Galactic War admin endpoints (scenario rotation,
// direct scenario edits). PasswordHash is a bcrypt hash, never the raw
// password, so a leaked config/env dump doesn't hand out the credential.
type AdminConfig struct {
	PasswordHash string
}

type Config struct {
	MongoDB     MongoDBConfig
	Rating      RatingConfig
	GalacticWar GalacticWarConfig
	Broadcaster BroadcasterConfig
	Admin       AdminConfig
}

type KafkaConfig struct {
	// Kafka bootstrap brokers to connect to, as a comma separated list (ie: "kafka1:9092,kafka2:9092")
	Brokers string

	// Kafka cluster version (ie.: "2.1.1", "2.2.2", "2.3.0", ...)
	Version string

	// Kafka consumer group definition (ie: consumer group name)
	Group string

	// Kafka topics to be consumed, as a comma separated list (ie: "topic1,topic2,topic3")
	Topics string

	// Consumer group partition assignment strategy (ie: range, roundrobin, sticky)
	AssignmentStrategy string

	// Kafka consumer consume initial offset from oldest (default: true)
	Oldest bool

	// Sarama logging (default: false)
	Verbose bool
}
