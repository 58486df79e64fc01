package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the server configuration (cmd/api).
type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// MasterKey guards record deletion. MasterKeyHash, a bcrypt hash, takes
	// precedence when both are set.
	MasterKey     string `env:"MASTER_KEY"`
	MasterKeyHash string `env:"MASTER_KEY_HASH"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS, default=*"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=fixly"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// ClientConfig configures the session client host (cmd/fixlyctl).
type ClientConfig struct {
	LogLevel string `env:"LOG_LEVEL, default=warn"`

	APIBase string        `env:"FIXLY_API_BASE, default=https://api.fixlytaller.com"`
	Timeout time.Duration `env:"FIXLY_TIMEOUT,  default=15s"`

	// Store selects the credential backend: sqlite, redis or memory.
	Store          string `env:"FIXLY_STORE,           default=sqlite"`
	StorePath      string `env:"FIXLY_STORE_PATH,      default=.fixly/session.db"`
	RedisNamespace string `env:"FIXLY_REDIS_NAMESPACE, default=fixly:session"`

	CapabilitiesFile string        `env:"FIXLY_CAPABILITIES"`
	KeepAlive        time.Duration `env:"FIXLY_KEEPALIVE, default=0s"`

	IdentifierField string   `env:"FIXLY_LOGIN_FIELD,  default=username"`
	SecretField     string   `env:"FIXLY_SECRET_FIELD, default=password"`
	TokenFields     []string `env:"FIXLY_TOKEN_FIELDS, default=token,jwt,accessToken"`

	Redis RedisConfig
}

// Load reads the server configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads the client configuration from environment variables.
func LoadClient(ctx context.Context) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
