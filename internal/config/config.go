// Package config loads the service configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/storefront/store-api/internal/infrastructure/security"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"

	// MinProductionSecret is the shortest JWT secret accepted in production.
	MinProductionSecret = 32
)

type Config struct {
	Port        string   `env:"PORT,         default=5000"`
	Env         string   `env:"ENV,          default=development"`
	LogLevel    string   `env:"LOG_LEVEL,    default=info"`
	LogPretty   *bool    `env:"LOG_PRETTY, noinit"`
	APIPrefix   string   `env:"API_PREFIX,   default=/api"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`

	JWT      JWTConfig
	Password PasswordConfig
	Limits   LimitsConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type JWTConfig struct {
	Secret    string        `env:"JWT_SECRET"`
	ExpiresIn time.Duration `env:"JWT_EXPIRES_IN, default=24h"`
	Issuer    string        `env:"JWT_ISSUER,     default=store-api"`
}

type PasswordConfig struct {
	BcryptCost    int  `env:"BCRYPT_COST,             default=10"`
	MinLength     int  `env:"PASSWORD_MIN_LENGTH,     default=8"`
	RequireDigit  bool `env:"PASSWORD_REQUIRE_DIGIT,  default=true"`
	RequireUpper  bool `env:"PASSWORD_REQUIRE_UPPER,  default=true"`
	RequireLower  bool `env:"PASSWORD_REQUIRE_LOWER,  default=false"`
	RequireSymbol bool `env:"PASSWORD_REQUIRE_SYMBOL, default=false"`
}

type LimitsConfig struct {
	LoginMaxFailures   int           `env:"LOGIN_MAX_FAILURES,   default=5"`
	LoginFailureWindow time.Duration `env:"LOGIN_FAILURE_WINDOW, default=15m"`
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS,       default=5"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST,     default=10"`
	AuditWorkers       int           `env:"AUDIT_WORKERS,        default=4"`
}

type MongoConfig struct {
	URI            string `env:"MONGO_URI,             default=mongodb://localhost:27017"`
	Database       string `env:"MONGO_DB,              default=store"`
	ConnectRetries uint64 `env:"MONGO_CONNECT_RETRIES, default=5"`
}

type RedisConfig struct {
	Addr           string `env:"REDIS_ADDR,            default=localhost:6379"`
	Password       string `env:"REDIS_PASSWORD"`
	DB             int    `env:"REDIS_DB,              default=0"`
	ConnectRetries uint64 `env:"REDIS_CONNECT_RETRIES, default=5"`
}

// Load reads an optional .env file, then the environment, and validates the
// result. Variables already set in the environment win over .env entries.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return FromLookuper(ctx, envconfig.OsLookuper())
}

// FromLookuper builds a Config from l. Tests use envconfig.MapLookuper.
func FromLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks bounds and the production secret rule.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, errors.New("API_PREFIX must start with /"))
	}
	if c.IsProduction() && len(c.JWT.Secret) < MinProductionSecret {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", MinProductionSecret))
	}
	if c.JWT.ExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.Password.MinLength < 1 || c.Password.MinLength > 72 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be between 1 and 72"))
	}
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}
	if c.Limits.LoginMaxFailures < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_FAILURES must be at least 1"))
	}
	if c.Limits.LoginFailureWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_FAILURE_WINDOW must be positive"))
	}
	if c.Limits.RateLimitRPS <= 0 || c.Limits.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		errs = append(errs, errors.New("MONGO_URI and MONGO_DB are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Pretty reports whether logs go to the console writer. LOG_PRETTY wins when
// set; otherwise everything but production is pretty.
func (c *Config) Pretty() bool {
	if c.LogPretty != nil {
		return *c.LogPretty
	}
	return !c.IsProduction()
}

// SigningSecret returns the JWT secret. Outside production an empty secret is
// replaced by a random one that lives as long as the process; generated
// reports when that happened so the caller can warn about it.
func (c *Config) SigningSecret() (secret string, generated bool, err error) {
	if c.JWT.Secret != "" {
		return c.JWT.Secret, false, nil
	}
	if c.IsProduction() {
		return "", false, errors.New("config: JWT_SECRET is required in production")
	}
	s, err := security.GenerateSecret(MinProductionSecret)
	if err != nil {
		return "", false, fmt.Errorf("config: generate JWT secret: %w", err)
	}
	return s, true, nil
}
