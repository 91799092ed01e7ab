package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "agrilink"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv     = "AGRILINK_APP_ENV"
	EnvPort       = "AGRILINK_APP_PORT"
	EnvRedisURL   = "AGRILINK_REDIS_URL"
	EnvJWTSecret  = "AGRILINK_JWT_SECRET"
	EnvJWTIssuer  = "AGRILINK_JWT_ISSUER"
	EnvJWTExpMins = "AGRILINK_JWT_EXPIRATION_MINUTES"
)

type Config struct {
	App           AppConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Listings      ListingsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGRILINK_APP_ENV" required:"true"`
	Port         string `envconfig:"AGRILINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGRILINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGRILINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRILINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGRILINK_REDIS_ADDR"`
	Password     string        `envconfig:"AGRILINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRILINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRILINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRILINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRILINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRILINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRILINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AGRILINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AGRILINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AGRILINK_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"AGRILINK_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the access-session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGRILINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGRILINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGRILINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGRILINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGRILINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AGRILINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AGRILINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AGRILINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AGRILINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AGRILINK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AGRILINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type ListingsConfig struct {
	DefaultQueryLimit int `envconfig:"AGRILINK_LISTINGS_DEFAULT_QUERY_LIMIT" default:"20"`
	MaxQueryLimit     int `envconfig:"AGRILINK_LISTINGS_MAX_QUERY_LIMIT" default:"100"`
}
