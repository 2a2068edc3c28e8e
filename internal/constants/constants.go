package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	DefaultInputTopic  = "notification_events"
	DefaultOutputTopic = "lookout_alerts"
)

const (
	DefaultMongoDBName = "lookout"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	SourceTypeAPI   = "api"
	SourceTypeKafka = "kafka"
)

const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendRedis    = "redis"
	LedgerBackendMongoDB  = "mongodb"
)

const (
	ClassifierTypeAPI = "api"
	ClassifierTypeCEL = "cel"
)

const (
	NotifierTypeWebhook = "webhook"
	NotifierTypeKafka   = "kafka"
)
