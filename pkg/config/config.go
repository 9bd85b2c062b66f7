package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for a Stakeway agent
type Config struct {
	// MQTT configuration
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// External analysis collaborator configuration
	AnalysisEnabled    bool
	AnalysisEndpoint   string
	AnalysisModel      string
	AnalysisTimeoutSec int

	// Verifier agent configuration
	VerificationTTLHours int
	ProofDedupTTLHours   int

	// Advisor agent configuration
	HistoryLimit      int
	MinStake          float64
	MaxStake          float64
	BaseStake         float64
	AdviceCacheTTLMin int
	SimilarTripCount  int

	// Milestone agent configuration
	StreakMirrorTTLHours int
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MQTTBroker:   "localhost",
		MQTTPort:     1883,
		MQTTUser:     "",
		MQTTPassword: "",
		MQTTClientID: "",

		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "stakeway",
		PostgresPassword:           "",
		PostgresDB:                 "stakeway",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     10,
		PostgresMaxIdleConnections: 5,
		PostgresConnMaxLifetime:    30 * time.Minute,

		ServiceName: "stakeway-agent",
		HealthPort:  8080,
		LogLevel:    "info",

		AnalysisEnabled:    false,
		AnalysisEndpoint:   "http://localhost:11434/api/generate",
		AnalysisModel:      "llama3.2:3b",
		AnalysisTimeoutSec: 5,

		VerificationTTLHours: 72,
		ProofDedupTTLHours:   24,

		HistoryLimit:      100,
		MinStake:          5.0,
		MaxStake:          500.0,
		BaseStake:         25.0,
		AdviceCacheTTLMin: 15,
		SimilarTripCount:  5,

		StreakMirrorTTLHours: 168,
	}
}

// LoadFromEnv loads configuration from environment variables with STAKEWAY_ prefix
func (c *Config) LoadFromEnv() {
	// MQTT configuration
	if v := os.Getenv("STAKEWAY_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("STAKEWAY_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("STAKEWAY_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("STAKEWAY_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("STAKEWAY_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("STAKEWAY_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("STAKEWAY_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("STAKEWAY_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("STAKEWAY_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("STAKEWAY_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("STAKEWAY_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("STAKEWAY_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("STAKEWAY_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("STAKEWAY_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("STAKEWAY_POSTGRES_SSL_MODE"); v != "" {
		c.PostgresSSLMode = v
	}
	if v := os.Getenv("STAKEWAY_POSTGRES_MAX_CONNECTIONS"); v != "" {
		if max, err := strconv.Atoi(v); err == nil {
			c.PostgresMaxConnections = max
		}
	}

	// Service configuration
	if v := os.Getenv("STAKEWAY_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("STAKEWAY_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("STAKEWAY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// External analysis collaborator configuration
	if v := os.Getenv("STAKEWAY_ANALYSIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.AnalysisEnabled = enabled
		}
	}
	if v := os.Getenv("STAKEWAY_ANALYSIS_ENDPOINT"); v != "" {
		c.AnalysisEndpoint = v
	}
	if v := os.Getenv("STAKEWAY_ANALYSIS_MODEL"); v != "" {
		c.AnalysisModel = v
	}
	if v := os.Getenv("STAKEWAY_ANALYSIS_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.AnalysisTimeoutSec = sec
		}
	}

	// Verifier agent configuration
	if v := os.Getenv("STAKEWAY_VERIFICATION_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.VerificationTTLHours = hours
		}
	}
	if v := os.Getenv("STAKEWAY_PROOF_DEDUP_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.ProofDedupTTLHours = hours
		}
	}

	// Advisor agent configuration
	if v := os.Getenv("STAKEWAY_HISTORY_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			c.HistoryLimit = limit
		}
	}
	if v := os.Getenv("STAKEWAY_MIN_STAKE"); v != "" {
		if stake, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinStake = stake
		}
	}
	if v := os.Getenv("STAKEWAY_MAX_STAKE"); v != "" {
		if stake, err := strconv.ParseFloat(v, 64); err == nil {
			c.MaxStake = stake
		}
	}
	if v := os.Getenv("STAKEWAY_BASE_STAKE"); v != "" {
		if stake, err := strconv.ParseFloat(v, 64); err == nil {
			c.BaseStake = stake
		}
	}
	if v := os.Getenv("STAKEWAY_ADVICE_CACHE_TTL_MIN"); v != "" {
		if min, err := strconv.Atoi(v); err == nil {
			c.AdviceCacheTTLMin = min
		}
	}
	if v := os.Getenv("STAKEWAY_SIMILAR_TRIP_COUNT"); v != "" {
		if count, err := strconv.Atoi(v); err == nil {
			c.SimilarTripCount = count
		}
	}

	// Milestone agent configuration
	if v := os.Getenv("STAKEWAY_STREAK_MIRROR_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.StreakMirrorTTLHours = hours
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	// MQTT flags
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	pflag.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres username")
	pflag.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")
	pflag.StringVar(&c.PostgresSSLMode, "postgres-ssl-mode", c.PostgresSSLMode, "Postgres SSL mode")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// External analysis collaborator flags
	pflag.BoolVar(&c.AnalysisEnabled, "analysis-enabled", c.AnalysisEnabled, "Enable the external analysis collaborator")
	pflag.StringVar(&c.AnalysisEndpoint, "analysis-endpoint", c.AnalysisEndpoint, "Analysis API endpoint URL")
	pflag.StringVar(&c.AnalysisModel, "analysis-model", c.AnalysisModel, "Analysis model name")
	pflag.IntVar(&c.AnalysisTimeoutSec, "analysis-timeout", c.AnalysisTimeoutSec, "Analysis call timeout in seconds")

	// Verifier agent flags
	pflag.IntVar(&c.VerificationTTLHours, "verification-ttl-hours", c.VerificationTTLHours, "TTL for cached verification results (hours)")
	pflag.IntVar(&c.ProofDedupTTLHours, "proof-dedup-ttl-hours", c.ProofDedupTTLHours, "TTL for processed-submission markers (hours)")

	// Advisor agent flags
	pflag.IntVar(&c.HistoryLimit, "history-limit", c.HistoryLimit, "Maximum historical commitments to load per user")
	pflag.Float64Var(&c.MinStake, "min-stake", c.MinStake, "Minimum recommendable stake")
	pflag.Float64Var(&c.MaxStake, "max-stake", c.MaxStake, "Maximum recommendable stake")
	pflag.Float64Var(&c.BaseStake, "base-stake", c.BaseStake, "Base stake before scaling")
	pflag.IntVar(&c.AdviceCacheTTLMin, "advice-cache-ttl-min", c.AdviceCacheTTLMin, "TTL for cached recommendations (minutes)")
	pflag.IntVar(&c.SimilarTripCount, "similar-trip-count", c.SimilarTripCount, "Number of similar past trips to retrieve")

	// Milestone agent flags
	pflag.IntVar(&c.StreakMirrorTTLHours, "streak-mirror-ttl-hours", c.StreakMirrorTTLHours, "TTL for streak counters mirrored to Redis (hours)")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT broker is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("Redis host is required")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("Redis port must be between 1 and 65535")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.MinStake <= 0 {
		return fmt.Errorf("minimum stake must be positive")
	}
	if c.MaxStake < c.MinStake {
		return fmt.Errorf("maximum stake must not be below minimum stake")
	}
	if c.AnalysisEnabled && c.AnalysisEndpoint == "" {
		return fmt.Errorf("analysis endpoint is required when analysis is enabled")
	}
	if c.AnalysisTimeoutSec <= 0 {
		return fmt.Errorf("analysis timeout must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDB, c.PostgresSSLMode)
}

// AnalysisTimeout returns the analysis call timeout as a duration
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutSec) * time.Second
}
