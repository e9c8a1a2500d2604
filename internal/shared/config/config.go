package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Ledger backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Upload archive modes.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Replicate  ReplicateConfig  `mapstructure:"replicate"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Storage    StorageConfig    `mapstructure:"storage"`
	API        APIConfig        `mapstructure:"api"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// HTTPClientConfig holds outbound HTTP client configuration.
type HTTPClientConfig struct {
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	// ResponseTimeout of zero leaves single requests unbounded.
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	KeepAlive       time.Duration `mapstructure:"keep_alive"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// ReplicateConfig holds prediction service configuration.
type ReplicateConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	Version      string        `mapstructure:"version"`
	Prompt       string        `mapstructure:"prompt"`
	Weights      string        `mapstructure:"weights"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	// Timeout bounds a whole generation; zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`

	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `mapstructure:"breaker_timeout"`
}

// LedgerConfig selects where quota and history documents live.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode,
	)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// UploadConfig holds inbound upload configuration.
type UploadConfig struct {
	Archive string `mapstructure:"archive"` // none, local, s3
	Dir     string `mapstructure:"dir"`
	MaxSize int64  `mapstructure:"max_size"`
}

// StorageConfig holds object storage configuration for the s3 archive.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// APIConfig holds inbound API behaviour.
type APIConfig struct {
	DefaultUserID string `mapstructure:"default_user_id"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/ghiblify")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("GHIBLIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets
	if token := os.Getenv("REPLICATE_API_TOKEN"); token != "" {
		cfg.Replicate.Token = token
	}
	if token := os.Getenv("GHIBLIFY_REPLICATE_TOKEN"); token != "" {
		cfg.Replicate.Token = token
	}
	if password := os.Getenv("GHIBLIFY_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("GHIBLIFY_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("GHIBLIFY_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendFile, BackendRedis, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("invalid ledger backend %q", c.Ledger.Backend)
	}

	switch c.Upload.Archive {
	case ArchiveNone, ArchiveLocal, ArchiveS3:
	default:
		return fmt.Errorf("invalid upload archive %q", c.Upload.Archive)
	}

	if c.Replicate.MaxAttempts <= 0 {
		return errors.New("replicate.max_attempts must be positive")
	}
	if c.Replicate.PollInterval < 0 {
		return errors.New("replicate.poll_interval must not be negative")
	}
	if c.API.DefaultUserID == "" {
		return errors.New("api.default_user_id must not be empty")
	}
	return nil
}

// SetDefaults sets default configuration values.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.max_conns_per_host", 0)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 10*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 0)
	v.SetDefault("http_client.keep_alive", 30*time.Second)
	v.SetDefault("http_client.user_agent", "ghiblify/1.0")

	// Replicate defaults
	v.SetDefault("replicate.base_url", "https://api.replicate.com")
	v.SetDefault("replicate.version", "407b7fd425e00eedefe7db3041662a36a126f1e4988e6fbadfc49b157159f015")
	v.SetDefault("replicate.prompt", "recreate this image in ghibli style")
	v.SetDefault("replicate.weights", "https://replicate.delivery/xezq/kdtoeV1nYVVDKyRqcN4tplVSTaghKU3dqOecgapK5KVwokcUA/trained_model.tar")
	v.SetDefault("replicate.poll_interval", 1500*time.Millisecond)
	v.SetDefault("replicate.max_attempts", 20)
	v.SetDefault("replicate.timeout", 0)
	v.SetDefault("replicate.breaker_failure_threshold", 5)
	v.SetDefault("replicate.breaker_timeout", 30*time.Second)

	// Ledger defaults
	v.SetDefault("ledger.backend", BackendFile)
	v.SetDefault("ledger.dir", ".")

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "ghiblify")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.log_queries", false)

	// Upload defaults
	v.SetDefault("upload.archive", ArchiveLocal)
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_size", 20<<20)

	// Storage defaults
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.prefix", "uploads/")

	// API defaults
	v.SetDefault("api.default_user_id", "user123")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
