package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Common struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"banking-logs"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type Database struct {
	DatabaseURL        string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int    `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int    `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

type AccountsConfig struct {
	Common
	Database

	ReaperEnabled   bool          `env:"REAPER_ENABLED" envDefault:"true"`
	ReaperInterval  time.Duration `env:"REAPER_INTERVAL" envDefault:"24h"`
	ReaperThreshold time.Duration `env:"REAPER_THRESHOLD" envDefault:"24h"`

	MaxAllocationAttempts int `env:"MAX_ALLOCATION_ATTEMPTS" envDefault:"10"`
}

type TransactionsConfig struct {
	Common
	Database

	AccountServiceURL string `env:"ACCOUNT_SERVICE_URL" envDefault:"http://accounts:8081"`
}

type GatewayConfig struct {
	Common

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER"`

	AccountServiceURL     string `env:"ACCOUNT_SERVICE_URL" envDefault:"http://accounts:8081"`
	TransactionServiceURL string `env:"TRANSACTION_SERVICE_URL" envDefault:"http://transactions:8082"`
	UserServiceURL        string `env:"USER_SERVICE_URL" envDefault:"http://users:8083"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ExecuteLockTTL   time.Duration `env:"EXECUTE_LOCK_TTL" envDefault:"60s"`
	OutcomeTimeout   time.Duration `env:"OUTCOME_WRITE_TIMEOUT" envDefault:"5s"`
	IdempotencyTTL   time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	BreakerFailures  uint32        `env:"BREAKER_CONSECUTIVE_FAILURES" envDefault:"5"`
	BreakerOpenDelay time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

const executeCalls = 5

type UsersConfig struct {
	Common

	UsersFile string `env:"USERS_FILE,required,notEmpty"`
}

func LoadAccounts() (*AccountsConfig, error) {
	cfg, err := env.ParseAs[AccountsConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadAccounts: %w", err)
	}
	if cfg.ReaperInterval <= 0 || cfg.ReaperThreshold <= 0 {
		return nil, fmt.Errorf("config.LoadAccounts: reaper interval and threshold must be positive")
	}
	if cfg.MaxAllocationAttempts < 1 {
		return nil, fmt.Errorf("config.LoadAccounts: MAX_ALLOCATION_ATTEMPTS must be at least 1")
	}
	return &cfg, nil
}

func LoadTransactions() (*TransactionsConfig, error) {
	cfg, err := env.ParseAs[TransactionsConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadTransactions: %w", err)
	}
	return &cfg, nil
}

func LoadGateway() (*GatewayConfig, error) {
	cfg, err := env.ParseAs[GatewayConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadGateway: %w", err)
	}
	// Execute makes at most executeCalls sequential downstream calls and one
	// outcome write while holding the lock.
	if worst := executeCalls*cfg.HTTPClientTimeout + cfg.OutcomeTimeout; cfg.ExecuteLockTTL <= worst {
		return nil, fmt.Errorf("config.LoadGateway: EXECUTE_LOCK_TTL %s must exceed the worst-case execute time %s", cfg.ExecuteLockTTL, worst)
	}
	return &cfg, nil
}

func LoadUsers() (*UsersConfig, error) {
	cfg, err := env.ParseAs[UsersConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadUsers: %w", err)
	}
	return &cfg, nil
}
