package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Airtable AirtableConfig `envPrefix:"AIRTABLE_"`
	Catalog  CatalogConfig  `envPrefix:"CATALOG_"`
	Store    StoreConfig    `envPrefix:"STORE_"`
	Mirror   MirrorConfig   `envPrefix:"MIRROR_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Order    OrderConfig    `envPrefix:"ORDER_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type ServerConfig struct {
	Addr         string   `env:"ADDR" envDefault:"0.0.0.0:8080"`
	AllowOrigins string   `env:"ALLOW_ORIGINS" envDefault:".*"`
	CacheMaxAge  int      `env:"CACHE_MAX_AGE" envDefault:"60"`
	CacheSWR     int      `env:"CACHE_STALE_WHILE_REVALIDATE" envDefault:"30"`
	SkipLogPaths []string `env:"SKIP_LOG_PATHS" envDefault:"/health,/metrics"`
}

type AirtableConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://api.airtable.com"`
	APIKey  string `env:"API_KEY"`
	BaseID  string `env:"BASE_ID" envDefault:"app6l7wwHD0gaZ78F"`
	Table   string `env:"TABLE" envDefault:"aym7"`
}

type CatalogConfig struct {
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	FreshFor     time.Duration `env:"FRESH_FOR" envDefault:"60s"`
}

type StoreConfig struct {
	ItemsPerPage int           `env:"ITEMS_PER_PAGE" envDefault:"20"`
	CheckoutMode string        `env:"CHECKOUT_MODE" envDefault:"two_phase"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SweepEvery   time.Duration `env:"SWEEP_EVERY" envDefault:"5m"`
}

// MirrorConfig selects where session state is mirrored: memory, redis or mongodb.
type MirrorConfig struct {
	Driver string        `env:"DRIVER" envDefault:"memory"`
	TTL    time.Duration `env:"TTL" envDefault:"720h"`
}

type DatabaseConfig struct {
	Hosts    []string `env:"HOSTS" envDefault:"localhost:27017"`
	Direct   bool     `env:"DIRECT" envDefault:"true"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Database string   `env:"DATABASE" envDefault:"storefront"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type KafkaConfig struct {
	Enabled  bool     `env:"ENABLED" envDefault:"false"`
	Brokers  []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic    string   `env:"TOPIC" envDefault:"storefront.orders"`
	ClientID string   `env:"CLIENT_ID" envDefault:"storefront"`
}

type OrderConfig struct {
	ShopName        string `env:"SHOP_NAME" envDefault:"فروشگاه آنلاین AYM"`
	SerialPrefix    string `env:"SERIAL_PREFIX" envDefault:"AYM"`
	WhatsAppNumber  string `env:"WHATSAPP_NUMBER" envDefault:"93789281770"`
	WhatsAppBaseURL string `env:"WHATSAPP_BASE_URL" envDefault:"https://wa.me"`
}

type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
	Dev   bool   `env:"DEV" envDefault:"false"`
}

const (
	CheckoutTwoPhase = "two_phase"
	CheckoutLegacy   = "legacy"
)

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Store.CheckoutMode {
	case CheckoutTwoPhase, CheckoutLegacy:
	default:
		return fmt.Errorf("invalid STORE_CHECKOUT_MODE %q", c.Store.CheckoutMode)
	}
	switch c.Mirror.Driver {
	case "memory", "redis", "mongodb":
	default:
		return fmt.Errorf("invalid MIRROR_DRIVER %q", c.Mirror.Driver)
	}
	if _, err := regexp.Compile(c.Server.AllowOrigins); err != nil {
		return fmt.Errorf("invalid SERVER_ALLOW_ORIGINS: %w", err)
	}
	if c.Store.ItemsPerPage <= 0 {
		return fmt.Errorf("STORE_ITEMS_PER_PAGE must be positive, got %d", c.Store.ItemsPerPage)
	}
	return nil
}
