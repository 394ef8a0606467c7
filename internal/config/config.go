package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/reliefops/reliefhub/internal/database"
)

const (
	SessionStoreDatabase = "database"
	SessionStoreRedis    = "redis"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the application configuration loaded from environment variables.
// It is read once at startup and not modified afterwards.
type Config struct {
	DBDriver   string `env:"RELIEFHUB_DB_DRIVER" envDefault:"mysql"`
	DBHost     string `env:"RELIEFHUB_DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"RELIEFHUB_DB_PORT" envDefault:"3306"`
	DBName     string `env:"RELIEFHUB_DB_NAME" envDefault:"disaster_relief"`
	DBUser     string `env:"RELIEFHUB_DB_USER" envDefault:"root"`
	DBPassword string `env:"RELIEFHUB_DB_PASSWORD"`
	DBCharset  string `env:"RELIEFHUB_DB_CHARSET" envDefault:"utf8mb4"`
	DBPath     string `env:"RELIEFHUB_DB_PATH" envDefault:"./data/reliefhub.db"` // SQLite only
	SchemaFile string `env:"RELIEFHUB_SCHEMA_FILE"`                              // Overrides the embedded schema

	BcryptCost int `env:"RELIEFHUB_BCRYPT_COST" envDefault:"10"`

	SessionLifetime time.Duration `env:"RELIEFHUB_SESSION_LIFETIME" envDefault:"1h"`
	SessionStore    string        `env:"RELIEFHUB_SESSION_STORE" envDefault:"database"`
	SessionCleanup  string        `env:"RELIEFHUB_SESSION_CLEANUP" envDefault:"@every 15m"`
	SessionCookie   string        `env:"RELIEFHUB_SESSION_COOKIE" envDefault:"DRMS_SESSION"`
	RedisURL        string        `env:"RELIEFHUB_REDIS_URL"`

	// Upload limits are carried for the presentation layer; nothing here enforces them
	UploadMaxSize      int64    `env:"RELIEFHUB_UPLOAD_MAX_SIZE" envDefault:"5242880"`
	UploadAllowedTypes []string `env:"RELIEFHUB_UPLOAD_ALLOWED_TYPES" envDefault:"jpg,jpeg,png,pdf,doc,docx" envSeparator:","`

	ServerHost string `env:"RELIEFHUB_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"RELIEFHUB_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"RELIEFHUB_ENV" envDefault:"development"`

	LogLevel      string `env:"RELIEFHUB_LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"RELIEFHUB_LOG_FILE"`
	LogMaxSizeMB  int    `env:"RELIEFHUB_LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"RELIEFHUB_LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"RELIEFHUB_LOG_MAX_AGE_DAYS" envDefault:"30"`
	LogCompress   bool   `env:"RELIEFHUB_LOG_COMPRESS" envDefault:"true"`

	// Relief alerts; each provider is enabled by setting its URL
	AlertWebhookURL      string            `env:"RELIEFHUB_ALERT_WEBHOOK_URL"`
	AlertWebhookMethod   string            `env:"RELIEFHUB_ALERT_WEBHOOK_METHOD" envDefault:"POST"`
	AlertWebhookBody     string            `env:"RELIEFHUB_ALERT_WEBHOOK_BODY"`
	AlertWebhookHeaders  map[string]string `env:"RELIEFHUB_ALERT_WEBHOOK_HEADERS" envSeparator:"," envKeyValSeparator:":"`
	AlertDiscordURL      string            `env:"RELIEFHUB_ALERT_DISCORD_URL"`
	AlertDiscordUsername string            `env:"RELIEFHUB_ALERT_DISCORD_USERNAME"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Database returns the connection manager settings
func (c Config) Database() database.Config {
	return database.Config{
		Driver:     database.Dialect(c.DBDriver),
		Host:       c.DBHost,
		Port:       c.DBPort,
		Name:       c.DBName,
		User:       c.DBUser,
		Password:   c.DBPassword,
		Charset:    c.DBCharset,
		Path:       c.DBPath,
		SchemaFile: c.SchemaFile,
	}
}

// Load reads the given dotenv files when they exist (".env" when none are named),
// then parses environment variables and validates the result.
// Variables already set in the environment win over dotenv values.
func Load(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch database.Dialect(c.DBDriver) {
	case database.DialectMySQL, database.DialectSQLite:
	default:
		return fmt.Errorf("RELIEFHUB_DB_DRIVER must be mysql or sqlite, got %q", c.DBDriver)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("RELIEFHUB_BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if c.SessionLifetime <= 0 {
		return fmt.Errorf("RELIEFHUB_SESSION_LIFETIME must be positive, got %s", c.SessionLifetime)
	}

	if !slices.Contains([]string{SessionStoreDatabase, SessionStoreRedis}, c.SessionStore) {
		return fmt.Errorf("RELIEFHUB_SESSION_STORE must be database or redis, got %q", c.SessionStore)
	}
	if c.SessionStore == SessionStoreRedis && c.RedisURL == "" {
		return fmt.Errorf("RELIEFHUB_REDIS_URL is required when RELIEFHUB_SESSION_STORE is redis")
	}

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("RELIEFHUB_ENV must be development or production, got %q", c.Env)
	}

	for name, raw := range map[string]string{
		"RELIEFHUB_ALERT_WEBHOOK_URL": c.AlertWebhookURL,
		"RELIEFHUB_ALERT_DISCORD_URL": c.AlertDiscordURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL", name)
		}
	}

	return nil
}
