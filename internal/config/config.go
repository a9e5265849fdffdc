package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Загрузка конфигурации из config.yaml через cleanenv

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	RatesAPI RatesAPIConfig `yaml:"rates_api"`
	Chart    ChartConfig    `yaml:"chart"`
	Telegram TelegramConfig `yaml:"telegram"`
	Warmup   WarmupConfig   `yaml:"warmup"`
	Logger   LoggerConfig   `yaml:"logger"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":3000" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres" validate:"oneof=postgres memory redis"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName          string        `yaml:"dbname" env:"POSTGRES_DB" env-default:"rates"`
	SSLMode         string        `yaml:"sslmode" env-default:"disable"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	MaxConns        int32         `yaml:"max_conns" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"30m"`
	Migrate         bool          `yaml:"migrate" env-default:"true"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379" validate:"required"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0" validate:"gte=0"`
	Prefix   string `yaml:"prefix" env-default:"exchange-rates:"`
}

type RatesAPIConfig struct {
	BaseURL   string        `yaml:"base_url" env:"RATES_API_URL" env-default:"https://api.exchangeratesapi.io" validate:"required,url"`
	AccessKey string        `yaml:"access_key" env:"RATES_API_KEY"`
	Timeout   time.Duration `yaml:"timeout" env-default:"8s"`
	UserAgent string        `yaml:"user_agent" env-default:"exchange-rates-bot/1.0"`
}

type ChartConfig struct {
	BaseURL  string        `yaml:"base_url" env:"CHART_URL" env-default:"https://quickchart.io" validate:"required,url"`
	ShortURL bool          `yaml:"short_url" env-default:"false"`
	Timeout  time.Duration `yaml:"timeout" env-default:"8s"`
}

// TelegramConfig - режим polling или webhook.
// Для webhook нужен public_url, Telegram шлёт апдейты на public_url + /bot<token>.
type TelegramConfig struct {
	Enabled         bool          `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"true"`
	Token           string        `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	Mode            string        `yaml:"mode" env:"TELEGRAM_MODE" env-default:"polling" validate:"oneof=polling webhook"`
	PublicURL       string        `yaml:"public_url" env:"TELEGRAM_PUBLIC_URL" validate:"omitempty,url"`
	WebhookListen   string        `yaml:"webhook_listen" env:"TELEGRAM_WEBHOOK_LISTEN" env-default:":8443"`
	WebhookSecret   string        `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET"`
	LongPollTimeout time.Duration `yaml:"long_poll_timeout" env-default:"10s"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout" env-default:"15s"`
}

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// WarmupConfig - фоновый прогрев кэша курсов
type WarmupConfig struct {
	Enabled  bool          `yaml:"enabled" env:"WARMUP_ENABLED" env-default:"false"`
	Interval time.Duration `yaml:"interval" env-default:"10m" validate:"gt=0"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" validate:"oneof=text json"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Try to read from config file if specified
	configPath := fetchConfigPath()
	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, err
		}
		return cfg, Validate(cfg)
	}

	// Read from environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, Validate(cfg)
}

// Validate проверяет значения после загрузки (теги validate)
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Mode == ModeWebhook && cfg.Telegram.PublicURL == "" {
		return errors.New("invalid config: telegram.public_url is required in webhook mode")
	}
	return nil
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "c", "", "config file path")
	flag.Parse()
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
