package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "chainguard/pkg/platform/strings"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Backend  string
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Custody  CustodyConfig

	ShutdownTimeout time.Duration
}

// PostgresConfig configures the Postgres ledger.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the Redis ledger.
type RedisConfig struct {
	URL          string
	Namespace    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures event publication. No brokers means events are
// logged only.
type KafkaConfig struct {
	Brokers           []string
	TopicPrefix       string
	ClientID          string
	Partitions        int32
	ReplicationFactor int16
	ProduceTimeout    time.Duration
	FailureThreshold  int
	SuccessThreshold  int
	ProbeInterval     int
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSigningKey  string
	JWTAudience    string
	AllowedIssuers []string
}

// CustodyConfig holds lifecycle and cipher policy.
type CustodyConfig struct {
	AllowTransferFromCreated bool
	FingerprintPepper        string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:      getString("CHAINGUARD_ADDR", ":8080"),
		LogLevel:  getString("LOG_LEVEL", "info"),
		LogFormat: getString("LOG_FORMAT", "json"),
		Backend:   getString("LEDGER_BACKEND", BackendMemory),
		Postgres: PostgresConfig{
			DSN:          getString("DATABASE_URL", ""),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          getString("REDIS_URL", ""),
			Namespace:    getString("REDIS_NAMESPACE", "chainguard"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           getList("KAFKA_BROKERS"),
			TopicPrefix:       getString("KAFKA_TOPIC_PREFIX", ""),
			ClientID:          getString("KAFKA_CLIENT_ID", "chainguard"),
			Partitions:        int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_REPLICATION_FACTOR", 1)),
			ProduceTimeout:    getDuration("KAFKA_PRODUCE_TIMEOUT", 2*time.Second),
			FailureThreshold:  getInt("EMITTER_FAILURE_THRESHOLD", 5),
			SuccessThreshold:  getInt("EMITTER_SUCCESS_THRESHOLD", 2),
			ProbeInterval:     getInt("EMITTER_PROBE_INTERVAL", 10),
		},
		Auth: AuthConfig{
			// Development default; must be overridden in production.
			JWTSigningKey:  getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTAudience:    getString("JWT_AUDIENCE", "chainguard"),
			AllowedIssuers: getList("JWT_ALLOWED_ISSUERS"),
		},
		Custody: CustodyConfig{
			AllowTransferFromCreated: getBool("CUSTODY_ALLOW_TRANSFER_FROM_CREATED", false),
			FingerprintPepper:        getString("CASE_FINGERPRINT_PEPPER", ""),
		},
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getList(key string) []string {
	return pstrings.SplitList(os.Getenv(key))
}
