package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` name the environment variable.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ClientURL  string `envconfig:"CLIENT_URL" default:"http://localhost:5173"`
	BackendURL string `envconfig:"BACKEND_URL" default:"http://localhost:5000"`
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	JWT        JWTConfig
	SMTP       SMTPConfig
	Google     GoogleOAuthConfig
	Orders     OrdersConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"5000"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL connection and pool settings.
type PostgresConfig struct {
	Host            string        `envconfig:"POSTGRES_HOST" required:"true"`
	Port            string        `envconfig:"POSTGRES_PORT" default:"5432"`
	User            string        `envconfig:"POSTGRES_USER" required:"true"`
	Password        string        `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName          string        `envconfig:"POSTGRES_DBNAME" required:"true"`
	SSLMode         string        `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"POSTGRES_CONN_MAX_IDLE_TIME" default:"30s"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`
	Issuer string        `envconfig:"JWT_ISSUER" default:"storefront-service"`
}

// SMTPConfig holds outbound mail settings. An empty Host disables delivery.
type SMTPConfig struct {
	Host     string        `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int           `envconfig:"SMTP_PORT" default:"587"`
	User     string        `envconfig:"SMTP_USER"`
	Password string        `envconfig:"SMTP_PASS"`
	From     string        `envconfig:"SMTP_FROM" default:"Storefront"`
	Timeout  time.Duration `envconfig:"SMTP_TIMEOUT" default:"20s"`
}

// GoogleOAuthConfig holds Google sign-in credentials. Sign-in is disabled without a client id.
type GoogleOAuthConfig struct {
	ClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
}

// OrdersConfig tunes order placement.
// TrackingIDAttempts=1 means a tracking id collision fails the request without regeneration.
type OrdersConfig struct {
	TrackingIDAttempts int           `envconfig:"ORDERS_TRACKING_ID_ATTEMPTS" default:"1"`
	TrackingIDDelay    time.Duration `envconfig:"ORDERS_TRACKING_ID_RETRY_DELAY" default:"10ms"`
	LowStockThreshold  int           `envconfig:"ORDERS_LOW_STOCK_THRESHOLD" default:"5"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if cfg.Orders.TrackingIDAttempts < 1 {
		return nil, fmt.Errorf("invalid ORDERS_TRACKING_ID_ATTEMPTS: %d, must be >= 1", cfg.Orders.TrackingIDAttempts)
	}
	log.Printf("Configuration loaded successfully for APP_ENV: %s", cfg.AppEnv)
	return &cfg, nil
}
