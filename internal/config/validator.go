package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateSource(cfg.Source, cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validatePipeline(cfg.Pipeline); err != nil {
		errors = append(errors, err)
	}

	if err := validateCache(cfg.Cache); err != nil {
		errors = append(errors, err)
	}

	if err := validateLedger(cfg.Ledger, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateClassifier(cfg.Classifier); err != nil {
		errors = append(errors, err)
	}

	if err := validateNotifier(cfg.Notifier, cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	return validateKafka(cfg.Kafka)
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateSource(cfg SourceConfig, broker BrokerConfig) error {
	switch cfg.Type {
	case "api":
		if cfg.API.BaseURL == "" {
			return &ValidationError{
				Field:   "source.api.base_url",
				Message: "API source base URL is required",
			}
		}
		if cfg.API.Timeout <= 0 {
			return &ValidationError{
				Field:   "source.api.timeout",
				Message: "timeout must be positive",
			}
		}
		if cfg.API.PageSize <= 0 {
			return &ValidationError{
				Field:   "source.api.page_size",
				Message: "page_size must be positive",
			}
		}
		return nil
	case "kafka":
		if !broker.Enabled {
			return &ValidationError{
				Field:   "source.type",
				Message: "kafka source requires broker.enabled",
			}
		}
		if broker.Kafka.InputTopic == "" {
			return &ValidationError{
				Field:   "broker.kafka.input_topic",
				Message: "input topic is required for the kafka source",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "source.type",
			Message: fmt.Sprintf("unknown source type: %s (supported: api, kafka)", cfg.Type),
		}
	}
}

func validatePipeline(cfg PipelineConfig) error {
	if cfg.PollInterval <= 0 {
		return &ValidationError{
			Field:   "pipeline.poll_interval",
			Message: "poll interval must be positive",
		}
	}

	if cfg.BatchTimeout <= 0 {
		return &ValidationError{
			Field:   "pipeline.batch_timeout",
			Message: "batch timeout must be positive",
		}
	}

	if cfg.BatchTimeout >= cfg.PollInterval {
		return &ValidationError{
			Field:   "pipeline.batch_timeout",
			Message: "batch timeout should be shorter than the poll interval",
		}
	}

	return nil
}

func validateCache(cfg CacheConfig) error {
	if cfg.Capacity <= 0 {
		return &ValidationError{
			Field:   "cache.capacity",
			Message: "capacity must be positive",
		}
	}

	if cfg.LowWater <= 0 || cfg.LowWater >= cfg.Capacity {
		return &ValidationError{
			Field:   "cache.low_water",
			Message: fmt.Sprintf("low_water must be between 1 and capacity-1, got %d", cfg.LowWater),
		}
	}

	return nil
}

func validateLedger(cfg LedgerConfig, db DatabaseConfig) error {
	switch cfg.Backend {
	case "postgres":
		if db.Postgres.Host == "" {
			return &ValidationError{
				Field:   "ledger.backend",
				Message: "postgres backend requires database.postgres configuration",
			}
		}
	case "redis":
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "ledger.backend",
				Message: "redis backend requires database.redis configuration",
			}
		}
	case "mongodb":
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "ledger.backend",
				Message: "mongodb backend requires database.mongodb configuration",
			}
		}
	default:
		return &ValidationError{
			Field:   "ledger.backend",
			Message: fmt.Sprintf("unknown ledger backend: %s (supported: postgres, redis, mongodb)", cfg.Backend),
		}
	}

	if cfg.RecentLimit <= 0 {
		return &ValidationError{
			Field:   "ledger.recent_limit",
			Message: "recent_limit must be positive",
		}
	}

	return nil
}

func validateClassifier(cfg ClassifierConfig) error {
	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "classifier.timeout",
			Message: "timeout must be positive",
		}
	}

	switch cfg.Type {
	case "api":
		if cfg.API.URL == "" {
			return &ValidationError{
				Field:   "classifier.api.url",
				Message: "classifier API URL is required",
			}
		}
		return nil
	case "cel":
		if cfg.CEL.Expression == "" {
			return &ValidationError{
				Field:   "classifier.cel.expression",
				Message: "classifier CEL expression is required",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "classifier.type",
			Message: fmt.Sprintf("unknown classifier type: %s (supported: api, cel)", cfg.Type),
		}
	}
}

func validateNotifier(cfg NotifierConfig, broker BrokerConfig) error {
	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "notifier.timeout",
			Message: "timeout must be positive",
		}
	}

	switch cfg.Type {
	case "webhook":
		if cfg.Webhook.URL == "" {
			return &ValidationError{
				Field:   "notifier.webhook.url",
				Message: "webhook URL is required",
			}
		}
		return nil
	case "kafka":
		if !broker.Enabled {
			return &ValidationError{
				Field:   "notifier.type",
				Message: "kafka notifier requires broker.enabled",
			}
		}
		if broker.Kafka.OutputTopic == "" {
			return &ValidationError{
				Field:   "broker.kafka.output_topic",
				Message: "output topic is required for the kafka notifier",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "notifier.type",
			Message: fmt.Sprintf("unknown notifier type: %s (supported: webhook, kafka)", cfg.Type),
		}
	}
}
