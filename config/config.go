package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de alphaspike.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Scan     ScanConfig     `yaml:"scan"`
	Backtest BacktestConfig `yaml:"backtest"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig controla dónde viven el histórico de precios y el tier frío.
type StorageConfig struct {
	Driver     string `yaml:"driver"`      // sqlite | postgres
	DSN        string `yaml:"dsn"`         // URL de Postgres; en sqlite tiene prioridad sobre sqlite_path
	SQLitePath string `yaml:"sqlite_path"` // ruta al archivo SQLite, o ":memory:"
}

// RedisConfig apunta al tier caliente. Addr vacío = sin tier caliente.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// CacheConfig controla la expiración del tier caliente.
type CacheConfig struct {
	TTLDays int `yaml:"ttl_days"`
}

// ScanConfig controla el orquestador de scans.
type ScanConfig struct {
	Workers int `yaml:"workers"`
}

// BacktestConfig controla el motor de backtest.
type BacktestConfig struct {
	HoldingDays int `yaml:"holding_days"`
	Workers     int `yaml:"workers"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un archivo YAML inexistente no es error: se usan defaults + entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// CacheTTL devuelve la expiración del tier caliente como time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLDays) * 24 * time.Hour
}

// RedisTimeout devuelve el timeout por operación contra Redis.
func (c *Config) RedisTimeout() time.Duration {
	return time.Duration(c.Redis.TimeoutMs) * time.Millisecond
}

// StorageDSN devuelve el DSN efectivo para el driver configurado.
func (c *Config) StorageDSN() string {
	if c.Storage.DSN != "" {
		return c.Storage.DSN
	}
	return c.Storage.SQLitePath
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"STORAGE_DRIVER", &cfg.Storage.Driver},
		{"STORAGE_DSN", &cfg.Storage.DSN},
		{"SQLITE_PATH", &cfg.Storage.SQLitePath},
		{"REDIS_ADDR", &cfg.Redis.Addr},
		{"REDIS_PASSWORD", &cfg.Redis.Password},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"REDIS_DB", &cfg.Redis.DB},
		{"FEATURE_CACHE_TTL_DAYS", &cfg.Cache.TTLDays},
		{"HOLDING_DAYS", &cfg.Backtest.HoldingDays},
	}
	for _, i := range ints {
		v := os.Getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s=%q: %w", i.key, v, err)
		}
		*i.dst = n
	}

	// MAX_WORKERS dimensiona ambos pools
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env MAX_WORKERS=%q: %w", v, err)
		}
		cfg.Scan.Workers = n
		cfg.Backtest.Workers = n
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "alphaspike.db"
	}
	if cfg.Redis.TimeoutMs <= 0 {
		cfg.Redis.TimeoutMs = 2000
	}
	if cfg.Cache.TTLDays <= 0 {
		cfg.Cache.TTLDays = 14
	}
	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = 6
	}
	if cfg.Backtest.HoldingDays <= 0 {
		cfg.Backtest.HoldingDays = 5
	}
	if cfg.Backtest.Workers <= 0 {
		cfg.Backtest.Workers = 6
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
