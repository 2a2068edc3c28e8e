package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"lookout/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", "15s")
	viper.SetDefault("server.write_timeout_seconds", "15s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("classifier.type", "api")
	viper.SetDefault("notifier.type", "webhook")
	viper.SetDefault("pipeline.poll_interval", "30s")
	viper.SetDefault("pipeline.batch_timeout", "25s")
	viper.SetDefault("cache.capacity", 1000)
	viper.SetDefault("cache.low_water", 900)
	viper.SetDefault("ledger.backend", "postgres")
	viper.SetDefault("ledger.recent_limit", 100)
	viper.SetDefault("source.type", "api")
	viper.SetDefault("database.migrations_path", "migrations/postgres")
	viper.SetDefault("broker.kafka.input_topic", constants.DefaultInputTopic)
	viper.SetDefault("broker.kafka.output_topic", constants.DefaultOutputTopic)
	viper.SetDefault("source.api.timeout", "10s")
	viper.SetDefault("source.api.page_size", 50)
	viper.SetDefault("classifier.timeout", "5s")
	viper.SetDefault("notifier.timeout", "5s")
	viper.SetDefault("filter.categories", []string{"mention", "review_requested", "assignment"})
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")
	viper.BindEnv("broker.kafka.output_topic", "BROKER_KAFKA_OUTPUT_TOPIC")
	viper.BindEnv("broker.kafka.config_update_topic", "BROKER_KAFKA_CONFIG_UPDATE_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("source.api.base_url", "SOURCE_API_BASE_URL")
	viper.BindEnv("source.api.token", "SOURCE_API_TOKEN")

	viper.BindEnv("classifier.api.url", "CLASSIFIER_API_URL")
	viper.BindEnv("classifier.api.token", "CLASSIFIER_API_TOKEN")

	viper.BindEnv("notifier.webhook.url", "NOTIFIER_WEBHOOK_URL")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
