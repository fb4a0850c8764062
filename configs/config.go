package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Cache     CacheConfig
	Pool      PoolConfig
	Speech    SpeechConfig
	Agent     AgentConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// CacheConfig bounds the three in-process cache tiers.
type CacheConfig struct {
	ResponseCapacity   int
	ResponseTTL        time.Duration
	TranscriptCapacity int
	TranscriptTTL      time.Duration
	LanguageCapacity   int
	LanguageTTL        time.Duration
	SweepInterval      time.Duration
}

// PoolConfig bounds the speech connection pool.
type PoolConfig struct {
	Size                int
	StaleThreshold      time.Duration
	MaintenanceInterval time.Duration
}

type SpeechConfig struct {
	Endpoint        string
	SubscriptionKey string
	Region          string
	RequestTimeout  time.Duration
}

type AgentConfig struct {
	Endpoint       string
	APIKey         string
	AgentID        string
	RequestTimeout time.Duration
}

type SessionConfig struct {
	TTL     time.Duration
	LockTTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Window            time.Duration
	KeyPrefix         string
}

type AdminConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "kancha_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			ResponseCapacity:   getIntEnv("CACHE_RESPONSE_CAPACITY", 100),
			ResponseTTL:        getDurationEnv("CACHE_RESPONSE_TTL", 5*time.Minute),
			TranscriptCapacity: getIntEnv("CACHE_TRANSCRIPT_CAPACITY", 30),
			TranscriptTTL:      getDurationEnv("CACHE_TRANSCRIPT_TTL", time.Minute),
			LanguageCapacity:   getIntEnv("CACHE_LANGUAGE_CAPACITY", 50),
			LanguageTTL:        getDurationEnv("CACHE_LANGUAGE_TTL", 2*time.Minute),
			SweepInterval:      getDurationEnv("CACHE_SWEEP_INTERVAL", time.Minute),
		},
		Pool: PoolConfig{
			Size:                getIntEnv("SPEECH_POOL_SIZE", 5),
			StaleThreshold:      getDurationEnv("SPEECH_POOL_STALE_THRESHOLD", 5*time.Minute),
			MaintenanceInterval: getDurationEnv("SPEECH_POOL_MAINTENANCE_INTERVAL", time.Minute),
		},
		Speech: SpeechConfig{
			Endpoint:        getEnvRequired("SPEECH_ENDPOINT"),
			SubscriptionKey: getEnvRequired("SPEECH_KEY"),
			Region:          getEnv("SPEECH_REGION", "centralindia"),
			RequestTimeout:  getDurationEnv("SPEECH_REQUEST_TIMEOUT", 30*time.Second),
		},
		Agent: AgentConfig{
			Endpoint:       getEnvRequired("AGENT_ENDPOINT"),
			APIKey:         getEnvRequired("AGENT_API_KEY"),
			AgentID:        getEnvRequired("AGENT_ID"),
			RequestTimeout: getDurationEnv("AGENT_REQUEST_TIMEOUT", 60*time.Second),
		},
		Session: SessionConfig{
			TTL:     getDurationEnv("SESSION_TTL", 30*time.Minute),
			LockTTL: getDurationEnv("SESSION_LOCK_TTL", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 60),
			Window:            getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:         getEnv("RATE_LIMIT_KEY_PREFIX", "kancha:ratelimit"),
		},
		Admin: AdminConfig{
			JWTSecret: getEnvRequired("ADMIN_JWT_SECRET"),
			TokenTTL:  getDurationEnv("ADMIN_TOKEN_TTL", time.Hour),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	return cfg, nil
}

// LoadAdmin reads only the admin section, for tooling that should not need
// the full service environment.
func LoadAdmin() (*AdminConfig, error) {
	_ = godotenv.Load()

	return &AdminConfig{
		JWTSecret: getEnvRequired("ADMIN_JWT_SECRET"),
		TokenTTL:  getDurationEnv("ADMIN_TOKEN_TTL", time.Hour),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
