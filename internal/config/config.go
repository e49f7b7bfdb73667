// Package config loads service settings from defaults, command-line flags,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds every runtime setting.
type Config struct {
	ServerAddress     string `env:"SERVER_ADDRESS" validate:"hostname_port"`
	GRPCHealthAddress string `env:"GRPC_HEALTH_ADDRESS" validate:"omitempty,hostname_port"`
	AppEnv            string `env:"APP_ENV" validate:"oneof=development production test"`
	LogLevel          string `env:"LOG_LEVEL" validate:"loglevel"`

	StoreDriver         string        `env:"STORE_DRIVER" validate:"oneof=mongo postgres memory"`
	MongoURI            string        `env:"MONGODB_URI" validate:"required_if=StoreDriver mongo"`
	MongoDatabase       string        `env:"MONGODB_DATABASE" validate:"required_if=StoreDriver mongo"`
	DatabaseDSN         string        `env:"DATABASE_DSN" validate:"required_if=StoreDriver postgres"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`

	JWTSecret    string        `env:"JWT_SECRET" validate:"required_without=JWTKeys"`
	JWTKeys      string        `env:"JWT_KEYS"`
	JWTActiveKid string        `env:"JWT_ACTIVE_KID"`
	JWTTTL       time.Duration `env:"JWT_TTL" validate:"gt=0"`
	AuthStrict   bool          `env:"AUTH_STRICT"`

	RateLimitMax       int           `env:"RATE_LIMIT_MAX" validate:"min=1"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" validate:"gt=0"`
	AuthRateLimitRPM   int           `env:"AUTH_RATE_LIMIT_RPM" validate:"min=1"`
	RateLimitStatsAddr string        `env:"RATE_LIMIT_STATS_REDIS_ADDR" validate:"omitempty,hostname_port"`
	RateLimitStatsPass string        `env:"RATE_LIMIT_STATS_REDIS_PASSWORD"`
	RateLimitStatsDB   int           `env:"RATE_LIMIT_STATS_REDIS_DB" validate:"min=0"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustProxy         bool          `env:"TRUST_PROXY"`
	PageSizeDefault    int64         `env:"PAGE_SIZE_DEFAULT" validate:"min=1"`
	PageSizeMax        int64         `env:"PAGE_SIZE_MAX" validate:"min=0"`
	BodyLimitBytes     int64         `env:"BODY_LIMIT_BYTES" validate:"min=1"`
}

// IsProduction reports whether internal error detail must be hidden.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func defaults() Config {
	return Config{
		ServerAddress:       ":3000",
		GRPCHealthAddress:   ":50051",
		AppEnv:              "development",
		LogLevel:            "info",
		StoreDriver:         DriverMongo,
		MongoDatabase:       "dog_adoption",
		DBConnectionTimeout: 10 * time.Second,
		JWTTTL:              24 * time.Hour,
		AuthStrict:          true,
		RateLimitMax:        100,
		RateLimitWindow:     15 * time.Minute,
		AuthRateLimitRPM:    10,
		AllowedOrigins:      []string{"http://localhost:3000"},
		PageSizeDefault:     10,
		BodyLimitBytes:      10 << 20,
	}
}

// Option customises Load.
type Option func(*options)

type options struct {
	disableFlagsParsing bool
	args                []string
	envFiles            []string
}

// WithDisableFlagsParsing skips command-line flags.
func WithDisableFlagsParsing(disable bool) Option {
	return func(o *options) { o.disableFlagsParsing = disable }
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) Option {
	return func(o *options) { o.args = args }
}

// WithEnvFiles loads the given dotenv files instead of ./.env.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

// Load builds a validated Config.
func Load(opts ...Option) (*Config, error) {
	o := &options{args: os.Args[1:]}
	for _, opt := range opts {
		opt(o)
	}

	// values already present in the environment win over the file
	if err := godotenv.Load(o.envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := defaults()
	if !o.disableFlagsParsing {
		flags := flag.NewFlagSet("dog-adoption-api", flag.ContinueOnError)
		flags.StringVar(&cfg.ServerAddress, "a", cfg.ServerAddress, "address and port to run server")
		flags.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flags.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "store driver: mongo, postgres or memory")
		flags.StringVar(&cfg.MongoURI, "m", cfg.MongoURI, "MongoDB connection URI")
		flags.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "PostgreSQL connection string")
		if err := flags.Parse(o.args); err != nil {
			return nil, err
		}
	}

	// env.Parse only touches fields whose variable is set
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
		return true
	}
	return false
}

func validate(cfg *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}
	return v.Struct(cfg)
}
