package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" env-default:"ballotbox"`
	HTTPPort    string `env:"HTTP_PORT" env-default:"8080"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	// WorkerMetricsPort serves the worker's /metrics. The API exposes its
	// metrics on HTTPPort.
	WorkerMetricsPort string `env:"WORKER_METRICS_PORT" env-default:"9091"`

	// PostgresDSN selects the durable ledger. The API falls back to the
	// in-memory ledger when it is empty; the worker requires it.
	PostgresDSN         string `env:"POSTGRES_DSN"`
	PostgresAutoMigrate bool   `env:"POSTGRES_AUTO_MIGRATE" env-default:"false"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" env-default:"ballot."`

	InitialOwner string `env:"BALLOT_INITIAL_OWNER" env-required:"true"`
	OwnerHandoff string `env:"BALLOT_OWNER_HANDOFF"`

	IdempotencyTTL     time.Duration `env:"BALLOT_IDEMPOTENCY_TTL" env-default:"24h"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" env-default:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" env-default:"100"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}

	brokers := make([]string, 0, len(cfg.KafkaBrokers))
	for _, value := range cfg.KafkaBrokers {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	cfg.KafkaBrokers = brokers
	return cfg, nil
}
