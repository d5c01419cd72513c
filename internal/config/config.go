package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Auth      Auth      `yaml:"auth"`
	Chat      Chat      `yaml:"chat"`
	Realtime  Realtime  `yaml:"realtime"`
	Notify    Notify    `yaml:"notify"`
	WebSocket WebSocket `yaml:"websocket"`
	S3        S3        `yaml:"s3"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL" env-required:"true"`

	// Connection pool settings
	MaxConns     int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns     int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`
}

// Auth holds token validation settings
type Auth struct {
	Secret   string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	Issuer   string        `yaml:"issuer" env:"JWT_ISSUER"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"24h"`
}

// Chat holds message encryption settings
type Chat struct {
	// KeySalt must match the salt every other client of the messages table uses
	KeySalt string `yaml:"key_salt" env:"CHAT_KEY_SALT"`
}

// Realtime holds change feed settings
type Realtime struct {
	Driver        string `yaml:"driver" env:"REALTIME_DRIVER" env-default:"memory"` // memory | redis
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	ChannelPrefix string `yaml:"channel_prefix" env:"REALTIME_CHANNEL_PREFIX" env-default:"chat"`
}

// Notify holds per-session notification timings
type Notify struct {
	CacheRefresh    time.Duration `yaml:"cache_refresh" env:"NOTIFY_CACHE_REFRESH" env-default:"60s"`
	ToastTTL        time.Duration `yaml:"toast_ttl" env:"NOTIFY_TOAST_TTL" env-default:"8s"`
	PermissionDelay time.Duration `yaml:"permission_delay" env:"NOTIFY_PERMISSION_DELAY" env-default:"3s"`
	PreviewLength   int           `yaml:"preview_length" env:"NOTIFY_PREVIEW_LENGTH" env-default:"50"`
}

// WebSocket holds browser connection settings
type WebSocket struct {
	PingInterval time.Duration `yaml:"ping_interval" env:"WS_PING_INTERVAL" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WS_WRITE_TIMEOUT" env-default:"10s"`
}

// S3 holds S3/MinIO storage configuration for profile images
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"avatars"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/avatars"`
}

// MustLoad loads configuration from environment and exits on error
func MustLoad() Config {
	// .env is optional, for development
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
