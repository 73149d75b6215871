package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENV" env-default:"development"`
	DBDSN       string `env:"DB_DSN" env-required:"true"`

	RunMigrations bool `env:"RUN_MIGRATIONS" env-default:"true"`

	HTTPServer HTTPServer
	Booking    Booking
	Redis      Redis
	Kafka      Kafka
	Telegram   Telegram
	Payments   Payments

	// bcrypt-хэш ключа для админских эндпоинтов
	AdminAPIKeyHash string `env:"ADMIN_API_KEY_HASH" env-required:"true"`
}

type HTTPServer struct {
	Address         string        `env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type Booking struct {
	Timezone           string        `env:"ACADEMY_TIMEZONE" env-default:"Australia/Sydney"`
	PublicBaseURL      string        `env:"PUBLIC_BASE_URL" env-default:"http://localhost:3000"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" env-default:"168h"`
	TokenRetention     time.Duration `env:"TOKEN_RETENTION" env-default:"720h"`
	TokenSweepInterval time.Duration `env:"TOKEN_SWEEP_INTERVAL" env-default:"24h"`
	SlotListLimit      int           `env:"SLOT_LIST_LIMIT" env-default:"50"`
}

type Redis struct {
	Addr        string        `env:"REDIS_ADDR"`
	SlotLockTTL time.Duration `env:"SLOT_LOCK_TTL" env-default:"10s"`
}

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `env:"KAFKA_TOPIC" env-default:"academy.bookings"`
}

type Telegram struct {
	Token       string `env:"TELEGRAM_TOKEN"`
	AdminChatID int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`
}

type Payments struct {
	CheckoutURL string `env:"PAYMENTS_CHECKOUT_URL"`
	APIKey      string `env:"PAYMENTS_API_KEY"`
}

// Load reads .env (if present) and then the process environment
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}
	if c.Booking.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Booking.SlotListLimit <= 0 || c.Booking.SlotListLimit > 200 {
		return fmt.Errorf("SLOT_LIST_LIMIT must be between 1 and 200")
	}
	if c.Telegram.Token != "" && c.Telegram.AdminChatID == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
