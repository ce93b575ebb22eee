package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		Port        string   `env:"PORT" envDefault:"5250"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
		GinMode     string   `env:"GIN_MODE" envDefault:"release"`
	}

	Database struct {
		// Driver selects the store: sqlite or mongo
		Driver        string        `env:"DB_DRIVER" envDefault:"sqlite"`
		Path          string        `env:"DB_PATH" envDefault:"database/recyclehub.db"`
		MongoURI      string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
		MongoDatabase string        `env:"MONGODB_DATABASE" envDefault:"recyclehub"`
		Timeout       time.Duration `env:"DB_TIMEOUT" envDefault:"10s"`
	}

	Pricing struct {
		WindowDays   int     `env:"PRICING_WINDOW_DAYS" envDefault:"30"`
		HistoryLimit int     `env:"PRICING_HISTORY_LIMIT" envDefault:"30"`
		MinPrice     float64 `env:"PRICING_MIN_PRICE" envDefault:"0.01"`

		// Retries after a concurrent modification of the same price record
		MaxRetries int           `env:"PRICING_MAX_RETRIES" envDefault:"3"`
		RetryDelay time.Duration `env:"PRICING_RETRY_DELAY" envDefault:"50ms"`

		// Materials priced in parallel per pickup and per batch run
		Concurrency int `env:"PRICING_CONCURRENCY" envDefault:"4"`

		// Per-process quote cache. It only sees commits made by this process,
		// so it is disabled when REDIS_ADDR shares locks between instances.
		QuoteCacheSize int           `env:"PRICING_QUOTE_CACHE_SIZE" envDefault:"256"`
		QuoteCacheTTL  time.Duration `env:"PRICING_QUOTE_CACHE_TTL" envDefault:"5m"`

		// Interval of the batch re-price of all materials, 0 disables it
		RecomputeInterval time.Duration `env:"PRICING_RECOMPUTE_INTERVAL" envDefault:"24h"`
	}

	EventQueue struct {
		Size           int `env:"EVENT_QUEUE_SIZE" envDefault:"100"`
		ProcessorCount int `env:"EVENT_PROCESSOR_COUNT" envDefault:"2"`
	}

	Redis struct {
		// Empty address keeps pricing locks in process
		Addr     string        `env:"REDIS_ADDR"`
		Password string        `env:"REDIS_PASSWORD"`
		DB       int           `env:"REDIS_DB" envDefault:"0"`
		LockTTL  time.Duration `env:"REDIS_LOCK_TTL" envDefault:"10s"`
	}

	RabbitMQ struct {
		// Empty URL disables the broker and events stay in process
		URL   string `env:"RABBITMQ_URL"`
		Queue string `env:"RABBITMQ_QUEUE" envDefault:"pickup_events"`
	}

	Geocoding struct {
		// Fills in coordinates for pickups submitted with an address only
		Enabled     bool          `env:"GEOCODING_ENABLED" envDefault:"false"`
		URL         string        `env:"GEOCODING_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
		UserAgent   string        `env:"GEOCODING_USER_AGENT" envDefault:"RecycleHub/1.0"`
		MinInterval time.Duration `env:"GEOCODING_MIN_INTERVAL" envDefault:"1s"`
	}

	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
	}

	CatalogPath string `env:"CATALOG_PATH" envDefault:"config/catalog.toml"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func (c *Config) QuoteCacheEnabled() bool {
	return c.Redis.Addr == "" && c.Pricing.QuoteCacheSize > 0
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
