package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Source         SourceConfig
	Filter         FilterConfig
	Pipeline       PipelineConfig
	Cache          CacheConfig
	Ledger         LedgerConfig
	Classifier     ClassifierConfig
	Notifier       NotifierConfig
	Ops            OpsConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres       PostgresConfig
	Redis          RedisConfig
	MongoDB        MongoDBConfig
	RunMigrations  bool   `mapstructure:"run_migrations"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers           []string    `mapstructure:"brokers"`
	GroupID           string      `mapstructure:"group_id"`
	InputTopic        string      `mapstructure:"input_topic"`
	OutputTopic       string      `mapstructure:"output_topic"`
	ConfigUpdateTopic string      `mapstructure:"config_update_topic"`
	DLQTopic          string      `mapstructure:"dlq_topic"`
	Retry             RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SourceConfig selects where notification events are fetched from. The api
// source polls an HTTP endpoint; the kafka source consumes the broker's
// input topic.
type SourceConfig struct {
	Type string          `mapstructure:"type"` // "api" or "kafka"
	API  APISourceConfig `mapstructure:"api"`
}

type APISourceConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
	RPS      float64       `mapstructure:"rps"`
	Retry    RetryConfig   `mapstructure:"retry"`
}

// FilterConfig controls which events enter the pipeline. Categories is the
// eligible-category allowlist; Expression is an optional CEL predicate
// applied on top of it.
type FilterConfig struct {
	Categories []string `mapstructure:"categories"`
	Expression string   `mapstructure:"expression"`
}

type PipelineConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// CacheConfig bounds the in-process seen cache. When the cache reaches
// Capacity it is trimmed down to LowWater, oldest entries first.
type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
	LowWater int `mapstructure:"low_water"`
}

type LedgerConfig struct {
	Backend     string `mapstructure:"backend"` // "postgres", "redis" or "mongodb"
	RecentLimit int    `mapstructure:"recent_limit"`
}

type ClassifierConfig struct {
	Type    string              `mapstructure:"type"` // "api" or "cel"
	Timeout time.Duration       `mapstructure:"timeout"`
	API     ClassifierAPIConfig `mapstructure:"api"`
	CEL     ClassifierCELConfig `mapstructure:"cel"`
}

type ClassifierAPIConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type ClassifierCELConfig struct {
	Expression        string `mapstructure:"expression"`
	ImportantReason   string `mapstructure:"important_reason"`
	UnimportantReason string `mapstructure:"unimportant_reason"`
}

type NotifierConfig struct {
	Type    string        `mapstructure:"type"` // "webhook" or "kafka"
	Timeout time.Duration `mapstructure:"timeout"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type OpsConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
