package ledger

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"lookout/internal/config"
	"lookout/internal/constants"
)

type Backends struct {
	Postgres *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Database
}

// New builds the configured ledger backend wrapped in the circuit breaker
// decorator.
func New(cfg config.LedgerConfig, cbCfg config.CircuitBreakerConfig, backends Backends) (Ledger, error) {
	var base Ledger

	switch cfg.Backend {
	case constants.LedgerBackendPostgres:
		if backends.Postgres == nil {
			return nil, fmt.Errorf("postgres ledger backend selected but no connection available")
		}
		base = NewPostgresLedger(backends.Postgres)
	case constants.LedgerBackendRedis:
		if backends.Redis == nil {
			return nil, fmt.Errorf("redis ledger backend selected but no connection available")
		}
		base = NewRedisLedger(backends.Redis)
	case constants.LedgerBackendMongoDB:
		if backends.Mongo == nil {
			return nil, fmt.Errorf("mongodb ledger backend selected but no connection available")
		}
		base = NewMongoLedger(backends.Mongo)
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.Backend)
	}

	return NewCircuitBreakerLedger(base, cbCfg), nil
}
