// Package config loads service configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Store    Store    `yaml:"store"`
	Cart     Cart     `yaml:"cart"`
	Pricing  Pricing  `yaml:"pricing"`
	Orders   Orders   `yaml:"orders"`
	Auth     Auth     `yaml:"auth"`
	Notify   Notify   `yaml:"notify"`
	Payment  Payment  `yaml:"payment"`
	Uploads  Uploads  `yaml:"uploads"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
	Mongo    Mongo    `yaml:"mongo"`
}

type HTTP struct {
	Port               string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"30s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size" env:"HTTP_MAX_BODY" env-default:"1048576"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Store struct {
	// Driver selects where orders and reservations live: memory, sqlite or postgres.
	Driver     string `yaml:"driver" env:"STORE_DRIVER" env-default:"memory"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"restaurant.db"`
}

type Cart struct {
	// Persistence is one of memory, file, redis or mongo.
	Persistence string `yaml:"persistence" env:"CART_PERSISTENCE" env-default:"memory"`
	Dir         string `yaml:"dir" env:"CART_DIR" env-default:"data/carts"`
	CookieName  string `yaml:"cookie_name" env:"CART_COOKIE" env-default:"cart_id"`
}

type Pricing struct {
	FreeDeliveryThreshold string `yaml:"free_delivery_threshold" env:"PRICING_FREE_DELIVERY_THRESHOLD" env-default:"35.00"`
	DeliveryFee           string `yaml:"delivery_fee" env:"PRICING_DELIVERY_FEE" env-default:"3.99"`
	TaxRate               string `yaml:"tax_rate" env:"PRICING_TAX_RATE" env-default:"0.0825"`
}

type Orders struct {
	// StrictTransitions makes admins obey the same status edges as owners.
	StrictTransitions bool `yaml:"strict_transitions" env:"ORDERS_STRICT_TRANSITIONS" env-default:"false"`
}

type Auth struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"change-me-in-production"`
	SessionTTL    time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	CookieName    string        `yaml:"cookie_name" env:"SESSION_COOKIE" env-default:"session"`
	SecureCookie  bool          `yaml:"secure_cookie" env:"SESSION_COOKIE_SECURE" env-default:"false"`
	AdminPassword string        `yaml:"admin_password" env:"ADMIN_PASSWORD" env-default:"adminpass"`
	// Revocation is memory or redis.
	Revocation string `yaml:"revocation" env:"AUTH_REVOCATION" env-default:"memory"`
}

type Notify struct {
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"WS_IDLE_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WS_WRITE_TIMEOUT" env-default:"10s"`
	SendBuffer   int           `yaml:"send_buffer" env:"WS_SEND_BUFFER" env-default:"64"`
	AdminOnly    bool          `yaml:"admin_only" env:"WS_ADMIN_ONLY" env-default:"true"`

	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"KAFKA_TOPIC" env-default:"restaurant-events"`
	AMQPURL      string   `yaml:"amqp_url" env:"AMQP_URL"`
	AMQPExchange string   `yaml:"amqp_exchange" env:"AMQP_EXCHANGE" env-default:"restaurant_events"`
}

type Payment struct {
	PayPalBaseURL      string        `yaml:"paypal_base_url" env:"PAYPAL_BASE_URL" env-default:"https://api-m.sandbox.paypal.com"`
	PayPalClientID     string        `yaml:"paypal_client_id" env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string        `yaml:"paypal_client_secret" env:"PAYPAL_CLIENT_SECRET"`
	Timeout            time.Duration `yaml:"timeout" env:"PAYPAL_TIMEOUT" env-default:"10s"`
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures" env:"PAYPAL_BREAKER_MAX_FAILURES" env-default:"5"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout" env:"PAYPAL_BREAKER_OPEN_TIMEOUT" env-default:"30s"`
}

type Uploads struct {
	Dir     string `yaml:"dir" env:"UPLOADS_DIR" env-default:"uploads"`
	MaxSize int64  `yaml:"max_size" env:"UPLOADS_MAX_SIZE" env-default:"10485760"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"restaurant"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"restaurant"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"restaurant"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DB" env-default:"restaurant"`
}

// Load reads .env (if present), then CONFIG_PATH (if set), then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Cart.Persistence {
	case "memory", "file", "redis", "mongo":
	default:
		return fmt.Errorf("unknown cart persistence %q", c.Cart.Persistence)
	}
	switch c.Auth.Revocation {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown revocation backend %q", c.Auth.Revocation)
	}
	if c.Env == "prod" && c.Auth.JWTSecret == "change-me-in-production" {
		return errors.New("JWT_SECRET must be set in prod")
	}
	if c.Notify.SendBuffer <= 0 {
		return errors.New("WS_SEND_BUFFER must be positive")
	}
	if c.Notify.IdleTimeout <= 0 {
		return errors.New("WS_IDLE_TIMEOUT must be positive")
	}
	if c.Notify.WriteTimeout <= 0 {
		return errors.New("WS_WRITE_TIMEOUT must be positive")
	}
	return nil
}
