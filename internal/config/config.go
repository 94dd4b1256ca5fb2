package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Directory DirectoryConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	OIDC      OIDCConfig
	MinIO     MinIOConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	BasePath     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DirectoryConfig selects the user directory backend.
type DirectoryConfig struct {
	Backend  string // memory | mongo
	Fixture  string // optional JSON fixture for the memory backend
	CacheTTL time.Duration
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type OIDCConfig struct {
	URL                string
	Realm              string
	ClientID           string
	AllowInsecureToken bool
}

type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket     string
	PresignTTL time.Duration
}

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_BASE_PATH", "/api")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("DIRECTORY_CACHE_TTL", 300)
	v.SetDefault("MONGODB_DATABASE", "useradmin")
	v.SetDefault("MONGODB_COLLECTION", "users")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "useradmin")
	v.SetDefault("MINIO_PRESIGN_TTL", 900)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			BasePath:     v.GetString("SERVER_BASE_PATH"),
			ReadTimeout:  time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
		},
		Directory: DirectoryConfig{
			Backend:  strings.ToLower(strings.TrimSpace(v.GetString("DIRECTORY_BACKEND"))),
			Fixture:  v.GetString("DIRECTORY_FIXTURE"),
			CacheTTL: time.Duration(v.GetInt("DIRECTORY_CACHE_TTL")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		OIDC: OIDCConfig{
			URL:                v.GetString("OIDC_URL"),
			Realm:              v.GetString("OIDC_REALM"),
			ClientID:           v.GetString("OIDC_CLIENT_ID"),
			AllowInsecureToken: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		MinIO: MinIOConfig{
			Endpoint:   v.GetString("MINIO_ENDPOINT"),
			AccessKey:  v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:  os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:     v.GetBool("MINIO_USE_SSL"),
			Bucket:     v.GetString("MINIO_BUCKET"),
			PresignTTL: time.Duration(v.GetInt("MINIO_PRESIGN_TTL")) * time.Second,
		},
	}

	// mongo when a URI is present, memory otherwise
	if cfg.Directory.Backend == "" {
		cfg.Directory.Backend = BackendMemory
		if cfg.MongoDB.URI != "" {
			cfg.Directory.Backend = BackendMongo
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Directory.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("config: DIRECTORY_BACKEND=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("config: unknown DIRECTORY_BACKEND %q", c.Directory.Backend)
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_RPS must be positive")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config: SERVER_BASE_PATH must start with '/'")
	}
	return nil
}
