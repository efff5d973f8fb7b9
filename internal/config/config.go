package config

import (
	"log"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"consistency-server/internal/logger"
)

// Config is the full application configuration, loaded from environment
// variables and an optional .env file.
type Config struct {
	AppEnv         string `env:"APP_ENV" env-default:"development"`
	Logger         LoggerConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	RabbitMQ       RabbitMQConfig
	Vision         VisionConfig
	Thresholds     ThresholdConfig
	PushGatewayURL string `env:"PUSHGATEWAY_URL" env-default:""`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `env:"LOG_ENCODING" env-default:"json"`
	OutputPath string `env:"LOG_OUTPUT_PATH" env-default:""`
}

// PostgresConfig holds the connection settings of the verification database.
type PostgresConfig struct {
	DSN             string `env:"POSTGRES_DSN" env-required:"true"`
	MaxConns        int    `env:"POSTGRES_MAX_CONNS" env-default:"10"`
	ConnTimeoutSec  int    `env:"POSTGRES_CONN_TIMEOUT_SEC" env-default:"10"`
	QueryTimeoutSec int    `env:"POSTGRES_QUERY_TIMEOUT_SEC" env-default:"30"`
}

// RedisConfig holds the connection settings of the regeneration-guard store.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// RabbitMQConfig configures the task queue connection.
type RabbitMQConfig struct {
	URL              string      `env:"RABBITMQ_URL" env-required:"true"`
	ConsumerName     string      `env:"RABBITMQ_CONSUMER_NAME" env-default:"verification_worker"`
	TaskQueue        QueueConfig `env-prefix:"RABBITMQ_VERIFICATION_TASK_QUEUE_"`
	ResultQueueName  string      `env:"VERIFICATION_RESULT_QUEUE" env-default:"verification_results"`
	RegenQueueName   string      `env:"REGENERATION_TASK_QUEUE" env-default:"regeneration_tasks"`
	ResultExchange   string      `env:"RABBITMQ_RESULT_EXCHANGE" env-default:""`
	ResultRoutingKey string      `env:"RABBITMQ_RESULT_ROUTING_KEY" env-default:""`
}

// QueueConfig describes one RabbitMQ queue declaration.
type QueueConfig struct {
	Name       string `env:"NAME" env-default:"verification_tasks"`
	Durable    bool   `env:"DURABLE" env-default:"true"`
	AutoDelete bool   `env:"AUTO_DELETE" env-default:"false"`
	Exclusive  bool   `env:"EXCLUSIVE" env-default:"false"`
	NoWait     bool   `env:"NO_WAIT" env-default:"false"`
}

// VisionConfig points at the optional embedding/detection backend. When
// EmbedBaseURL is empty or the backend does not answer the health probe, the
// scorer falls back to histogram/pixel similarity.
type VisionConfig struct {
	EmbedBaseURL  string `env:"VISION_EMBED_BASE_URL" env-default:""`
	DetectBaseURL string `env:"VISION_DETECT_BASE_URL" env-required:"true"`
	TimeoutSec    int    `env:"VISION_TIMEOUT_SEC" env-default:"60"`
}

// ThresholdConfig gathers every calibration knob of the verification pipeline.
// Miscalibration is a config change, not a code fix.
type ThresholdConfig struct {
	// ConsistencyMin is the global pass threshold for consistency scores.
	ConsistencyMin float64 `env:"CONSISTENCY_MIN_SCORE" env-default:"0.7"`
	// ReferenceAccept is the score above which a candidate is itself stored
	// as a new reference.
	ReferenceAccept float64 `env:"REFERENCE_ACCEPT_SCORE" env-default:"0.8"`
	// ReferenceCap bounds the per-character reference set (FIFO eviction).
	ReferenceCap int `env:"REFERENCE_CAP" env-default:"10"`
	// MinLearnerSupport is the minimum number of approved outcomes backing a
	// parameter suggestion. Canonical value: 5.
	MinLearnerSupport int `env:"MIN_LEARNER_SUPPORT" env-default:"5"`
	// SuccessQuality is the quality score an approved outcome needs to count
	// toward suggestions.
	SuccessQuality float64 `env:"SUCCESS_QUALITY_SCORE" env-default:"0.7"`

	// Intent confidences. These are policy values carried over from review,
	// not derived from data.
	SoloConfidence       float64 `env:"INTENT_SOLO_CONFIDENCE" env-default:"0.95"`
	MultipleConfidence   float64 `env:"INTENT_MULTIPLE_CONFIDENCE" env-default:"0.90"`
	ConflictedConfidence float64 `env:"INTENT_CONFLICTED_CONFIDENCE" env-default:"0.30"`
	UnclearConfidence    float64 `env:"INTENT_UNCLEAR_CONFIDENCE" env-default:"0.60"`
}

// Load reads the configuration from environment variables and the .env file.
func Load() *Config {
	// Ignore a missing .env file, production passes real env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	return &cfg
}

// LoggerConfigFor adapts the env-tagged logger section to the logger package.
func (c *Config) LoggerConfigFor() logger.Config {
	return logger.Config{
		Level:      c.Logger.Level,
		Encoding:   c.Logger.Encoding,
		OutputPath: c.Logger.OutputPath,
	}
}
