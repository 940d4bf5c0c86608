package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver         string
	URL            string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int
	MigrateOnStart bool
	SeedOnStart    bool
	// SeedFile is an optional YAML course list used instead of the starter catalog.
	SeedFile       string
}

type RedisConfig struct {
	URL         string
	Host        string
	Port        int
	Username    string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// CacheConfig controls the active-course snapshot. A zero TTL disables caching.
type CacheConfig struct {
	TTL          time.Duration
	KeyPrefix    string
	WarmSchedule string
}

type AuthConfig struct {
	JWTSecret string
	// HeaderIdentity accepts X-User-Id / X-User-Role when no bearer token is sent.
	// Development only.
	HeaderIdentity  bool
	CoordinatorRole string
}

type RateLimitConfig struct {
	EnrollPerMinute int
	EnrollBurst     int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	ServiceName string
}

func Load() (*Config, error) {
	cfg := read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads the environment but only validates the database section.
// Offline tools such as the migrator use it.
func LoadDatabase() (*DatabaseConfig, error) {
	cfg := read()
	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}
	return &cfg.Database, nil
}

func read() *Config {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
			URL:            v.GetString("DATABASE_URL"),
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetInt("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			Name:           v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConns:       v.GetInt("DB_MAX_CONNS"),
			MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
			SeedOnStart:    v.GetBool("DB_SEED_ON_START"),
			SeedFile:       v.GetString("DB_SEED_FILE"),
		},
		Redis: RedisConfig{
			URL:         v.GetString("REDIS_URL"),
			Host:        v.GetString("REDIS_HOST"),
			Port:        v.GetInt("REDIS_PORT"),
			Username:    v.GetString("REDIS_USERNAME"),
			Password:    v.GetString("REDIS_PASSWORD"),
			DB:          v.GetInt("REDIS_DB"),
			DialTimeout: v.GetDuration("REDIS_DIAL_TIMEOUT"),
		},
		Cache: CacheConfig{
			TTL:          v.GetDuration("CACHE_TTL"),
			KeyPrefix:    v.GetString("CACHE_KEY_PREFIX"),
			WarmSchedule: strings.TrimSpace(v.GetString("CACHE_WARM_SCHEDULE")),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("JWT_SECRET"),
			HeaderIdentity:  v.GetBool("AUTH_HEADER_IDENTITY"),
			CoordinatorRole: v.GetString("COORDINATOR_ROLE"),
		},
		RateLimit: RateLimitConfig{
			EnrollPerMinute: v.GetInt("ENROLL_RATE_PER_MINUTE"),
			EnrollBurst:     v.GetInt("ENROLL_RATE_BURST"),
		},
		App: AppConfig{
			Environment: v.GetString("APP_ENV"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			Version:     v.GetString("APP_VERSION"),
			ServiceName: v.GetString("SERVICE_NAME"),
		},
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("REQUEST_TIMEOUT", 15*time.Second)

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "portalacademico")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIGRATE_ON_START", true)
	v.SetDefault("DB_SEED_ON_START", true)

	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)

	v.SetDefault("CACHE_TTL", 60*time.Second)
	v.SetDefault("CACHE_KEY_PREFIX", "portalacademico:")
	v.SetDefault("CACHE_WARM_SCHEDULE", "")

	v.SetDefault("AUTH_HEADER_IDENTITY", false)
	v.SetDefault("COORDINATOR_ROLE", "coordinator")

	v.SetDefault("ENROLL_RATE_PER_MINUTE", 30)
	v.SetDefault("ENROLL_RATE_BURST", 5)

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("SERVICE_NAME", "portal-academico")
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}

	if c.Auth.JWTSecret == "" && !c.Auth.HeaderIdentity {
		return fmt.Errorf("JWT_SECRET is required unless AUTH_HEADER_IDENTITY is enabled")
	}

	if c.RateLimit.EnrollPerMinute < 0 || c.RateLimit.EnrollBurst < 0 {
		return fmt.Errorf("ENROLL_RATE_PER_MINUTE and ENROLL_RATE_BURST must not be negative")
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.URL == "" && c.Host == "" {
			return fmt.Errorf("DATABASE_URL or DB_HOST is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Driver)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// PostgresDSN returns the connection string. DATABASE_URL takes precedence over
// the individual fields, which are escaped into a postgres:// URL.
func (c *DatabaseConfig) PostgresDSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Addr returns host:port for the redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
