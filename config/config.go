package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"app_env"`
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	DBDriver    string `mapstructure:"db_driver"` // postgres | sqlite
	DatabaseURL string `mapstructure:"database_url"`
	DBHost      string `mapstructure:"db_host"`
	DBUser      string `mapstructure:"db_user"`
	DBPassword  string `mapstructure:"db_password"`
	DBName      string `mapstructure:"db_name"`
	DBPort      string `mapstructure:"db_port"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	RedisAddr string `mapstructure:"redis_addr"`
	RedisPwd  string `mapstructure:"redis_password"`

	WebOrigin    string        `mapstructure:"web_origin"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	SeenThrottle time.Duration `mapstructure:"seen_throttle"`

	LoginMaxFailures int           `mapstructure:"login_max_failures"`
	LoginLockout     time.Duration `mapstructure:"login_lockout"`

	TxTimeout     time.Duration `mapstructure:"tx_timeout"`
	StatsCacheTTL time.Duration `mapstructure:"stats_cache_ttl"`
	CodeAttempts  int           `mapstructure:"code_attempts"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	BootstrapUsername string `mapstructure:"bootstrap_admin_username"`
	BootstrapPassword string `mapstructure:"bootstrap_admin_password"`
	BootstrapName     string `mapstructure:"bootstrap_admin_name"`
}

var defaults = map[string]any{
	"app_env":   "dev",
	"port":      "3001",
	"log_level": "INFO",

	"db_driver":    "postgres",
	"database_url": "",
	"db_host":      "127.0.0.1",
	"db_user":      "postgres",
	"db_password":  "postgres",
	"db_name":      "tkj_lending",
	"db_port":      "5432",
	"sqlite_path":  "tkj_lending.db",

	"redis_addr":     "127.0.0.1:6379",
	"redis_password": "",

	"web_origin":    "http://localhost:5173",
	"jwt_secret":    "",
	"session_ttl":   24 * time.Hour,
	"seen_throttle": 5 * time.Minute,

	"login_max_failures": 5,
	"login_lockout":      15 * time.Minute,

	"tx_timeout":      5 * time.Second,
	"stats_cache_ttl": 30 * time.Second,
	"code_attempts":   8,

	"metrics_enabled": true,

	"bootstrap_admin_username": "",
	"bootstrap_admin_password": "",
	"bootstrap_admin_name":     "Administrator",
}

// LoadEnv reads .env into the process environment when the file exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Load resolves configuration from defaults, an optional CONFIG_FILE and the environment,
// in increasing order of precedence.
func Load() (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" && c.Env != "dev" {
		return fmt.Errorf("JWT_SECRET is required outside dev")
	}
	if c.CodeAttempts <= 0 {
		return fmt.Errorf("CODE_ATTEMPTS must be positive")
	}
	return nil
}

// PostgresDSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

// Secret returns the signing key, with a fixed key in dev only.
func (c Config) Secret() []byte {
	if c.JWTSecret == "" {
		return []byte("tkj-dev-secret-change-me")
	}
	return []byte(c.JWTSecret)
}
