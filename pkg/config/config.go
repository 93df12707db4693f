package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PATRIMONIO"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "PATRIMONIO_APP_ENV"
	EnvPort     = "PATRIMONIO_APP_PORT"
	EnvDBDSN    = "PATRIMONIO_DB_DSN"
	EnvDBHost   = "PATRIMONIO_DB_HOST"
	EnvDBUser   = "PATRIMONIO_DB_USER"
	EnvDBName   = "PATRIMONIO_DB_NAME"
	EnvRedisURL = "PATRIMONIO_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Import    ImportConfig
	Inventory InventoryConfig
	Eventing  EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PATRIMONIO_APP_ENV" required:"true"`
	Port         string `envconfig:"PATRIMONIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PATRIMONIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PATRIMONIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PATRIMONIO_DB_DSN"`
	Driver string `envconfig:"PATRIMONIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PATRIMONIO_DB_HOST"`
	LegacyPort     int    `envconfig:"PATRIMONIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PATRIMONIO_DB_USER"`
	LegacyPassword string `envconfig:"PATRIMONIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"PATRIMONIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"PATRIMONIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PATRIMONIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PATRIMONIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PATRIMONIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PATRIMONIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"PATRIMONIO_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PATRIMONIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PATRIMONIO_REDIS_ADDR"`
	Password     string        `envconfig:"PATRIMONIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"PATRIMONIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PATRIMONIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PATRIMONIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PATRIMONIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PATRIMONIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PATRIMONIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ImportConfig tunes the GEAFIN batch importer. The chunk size bounds both
// transaction length and worst-case cancellation latency, so the default
// stays deliberately small.
type ImportConfig struct {
	ChunkSize    int   `envconfig:"PATRIMONIO_IMPORT_CHUNK_SIZE" default:"25"`
	MaxUploadMB  int   `envconfig:"PATRIMONIO_IMPORT_MAX_UPLOAD_MB" default:"32"`
	DefaultUnit  int   `envconfig:"PATRIMONIO_IMPORT_DEFAULT_UNIT" default:"0"`
	MaxBatchRows int64 `envconfig:"PATRIMONIO_IMPORT_MAX_BATCH_ROWS" default:"200000"`
}

type InventoryConfig struct {
	SyncBatchLimit int `envconfig:"PATRIMONIO_INVENTORY_SYNC_BATCH_LIMIT" default:"500"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PATRIMONIO_IDEMPOTENCY_TTL" default:"168h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
