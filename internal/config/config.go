// Package config loads server configuration from flags, an optional YAML file and GP_* env vars.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/and161185/gophpress/internal/crypto"
)

// EnvPrefix is the prefix of environment overrides, e.g. GP_JWT_SECRET for jwt.secret.
const EnvPrefix = "GP_"

// Config is the full server configuration.
type Config struct {
	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`
	GRPC struct {
		Addr    string `koanf:"addr"`
		TLSCert string `koanf:"tls_cert"`
		TLSKey  string `koanf:"tls_key"`
	} `koanf:"grpc"`
	Metrics struct {
		Addr string `koanf:"addr"`
	} `koanf:"metrics"`
	Store struct {
		Driver string `koanf:"driver"` // postgres | memory
		DSN    string `koanf:"dsn"`
	} `koanf:"store"`
	JWT struct {
		Secret string        `koanf:"secret"`
		TTL    time.Duration `koanf:"ttl"`
	} `koanf:"jwt"`
	Hash struct {
		Algorithm string `koanf:"algorithm"`
		Argon2    struct {
			Time    uint32 `koanf:"time"`
			Memory  uint32 `koanf:"memory"`
			Threads uint8  `koanf:"threads"`
		} `koanf:"argon2"`
		Bcrypt struct {
			Cost int `koanf:"cost"`
		} `koanf:"bcrypt"`
		Workers int `koanf:"workers"`
	} `koanf:"hash"`
	Limiter struct {
		Driver   string        `koanf:"driver"` // postgres | redis | none
		Window   time.Duration `koanf:"window"`
		MaxFails int           `koanf:"max_fails"`
		BlockFor time.Duration `koanf:"block_for"`
	} `koanf:"limiter"`
	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`
	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
	Dev bool `koanf:"dev"`
}

// RegisterFlags declares every config key as a flag. Flag defaults are the config defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := crypto.DefaultParams()

	fs.String("http.addr", ":8080", "HTTP listen address (empty disables)")
	fs.String("grpc.addr", ":8443", "gRPC listen address (empty disables)")
	fs.String("grpc.tls_cert", "", "gRPC TLS certificate (PEM); plaintext when empty")
	fs.String("grpc.tls_key", "", "gRPC TLS private key (PEM)")
	fs.String("metrics.addr", ":9100", "metrics/health listen address (empty disables)")
	fs.String("store.driver", "postgres", "storage backend: postgres|memory")
	fs.String("store.dsn", "postgres://gp:gp@localhost:5432/gophpress?sslmode=disable", "PostgreSQL DSN")
	fs.String("jwt.secret", "", "HS256 signing secret (required)")
	fs.Duration("jwt.ttl", 10*time.Hour, "access token lifetime")
	fs.String("hash.algorithm", string(d.Algorithm), "password hash: argon2id|bcrypt")
	fs.Uint32("hash.argon2.time", d.Time, "argon2id iterations")
	fs.Uint32("hash.argon2.memory", d.Memory, "argon2id memory (KiB)")
	fs.Uint8("hash.argon2.threads", d.Threads, "argon2id parallelism")
	fs.Int("hash.bcrypt.cost", d.BcryptCost, "bcrypt cost")
	fs.Int("hash.workers", 0, "max concurrent hash computations (0 = GOMAXPROCS)")
	fs.String("limiter.driver", "postgres", "login limiter backend: postgres|redis|none")
	fs.Duration("limiter.window", 15*time.Minute, "failure counting window")
	fs.Int("limiter.max_fails", 5, "failures before lockout")
	fs.Duration("limiter.block_for", 15*time.Minute, "lockout duration")
	fs.String("redis.addr", "localhost:6379", "redis address")
	fs.String("redis.password", "", "redis password")
	fs.Int("redis.db", 0, "redis database")
	fs.String("log.level", "info", "log level")
	fs.String("log.format", "json", "log format: json|console")
	fs.Bool("dev", false, "development mode (gRPC reflection)")
}

// Load merges the YAML file (if path is non-empty), GP_* env vars and flags.
// Explicitly set flags win over env, env wins over the file, and flag defaults fill the rest.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	envKeys := envKeyMap(fs)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("config flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	return &cfg, nil
}

// EnvName returns the environment variable overriding a config key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func envKeyMap(fs *pflag.FlagSet) map[string]string {
	m := map[string]string{}
	fs.VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, ".") || f.Name == "dev" {
			m[EnvName(f.Name)] = f.Name
		}
	})
	return m
}

// HashParams converts the hash section to crypto params.
func (c *Config) HashParams() crypto.HashParams {
	return crypto.HashParams{
		Algorithm:  crypto.Algorithm(c.Hash.Algorithm),
		Time:       c.Hash.Argon2.Time,
		Memory:     c.Hash.Argon2.Memory,
		Threads:    c.Hash.Argon2.Threads,
		BcryptCost: c.Hash.Bcrypt.Cost,
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []error
	if c.JWT.Secret == "" {
		problems = append(problems, fmt.Errorf("jwt.secret is required (flag --jwt.secret or %s)", EnvName("jwt.secret")))
	}
	if c.JWT.TTL <= 0 {
		problems = append(problems, errors.New("jwt.ttl must be positive"))
	}
	if err := c.HashParams().Validate(); err != nil {
		problems = append(problems, fmt.Errorf("hash: %w", err))
	}
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			problems = append(problems, errors.New("store.dsn is required for postgres"))
		}
	default:
		problems = append(problems, fmt.Errorf("store.driver %q: want postgres or memory", c.Store.Driver))
	}
	switch c.Limiter.Driver {
	case "none":
	case "postgres":
		if c.Store.Driver != "postgres" {
			problems = append(problems, errors.New("limiter.driver=postgres needs store.driver=postgres"))
		}
		fallthrough
	case "redis":
		if c.Limiter.MaxFails <= 0 || c.Limiter.Window <= 0 || c.Limiter.BlockFor <= 0 {
			problems = append(problems, errors.New("limiter window, max_fails and block_for must be positive"))
		}
	default:
		problems = append(problems, fmt.Errorf("limiter.driver %q: want postgres, redis or none", c.Limiter.Driver))
	}
	if (c.GRPC.TLSCert == "") != (c.GRPC.TLSKey == "") {
		problems = append(problems, errors.New("grpc.tls_cert and grpc.tls_key must be set together"))
	}
	if c.HTTP.Addr == "" && c.GRPC.Addr == "" {
		problems = append(problems, errors.New("at least one of http.addr and grpc.addr must be set"))
	}
	return errors.Join(problems...)
}

// ConfigFileFromEnv returns GP_CONFIG when the --config flag was not given.
func ConfigFileFromEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPrefix + "CONFIG")
}
