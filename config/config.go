package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageBackendMemory = "memory"
	StorageBackendMinio  = "minio"
	StorageBackendGCS    = "gcs"

	MQBackendNone     = "none"
	MQBackendMemory   = "memory"
	MQBackendRabbitMQ = "rabbitmq"
	MQBackendPubSub   = "pubsub"
)

type Config struct {
	AppName    string `env:"APP_NAME" envDefault:"Tailored API"`
	Env        string `env:"ENV" envDefault:"prod"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`

	Auth    AuthConfig
	CORS    CORSConfig
	Storage StorageConfig
	MQ      MQConfig
}

type AuthConfig struct {
	JWTSecret          string `env:"JWT_SECRET_KEY"`
	JWTAlgorithm       string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	TokenTTLMinutes    int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"1440"`
	PasswordIterations int    `env:"PASSWORD_HASH_ITERATIONS" envDefault:"100000"`
}

// TokenTTL returns the configured token lifetime.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

type CORSConfig struct {
	Origins        []string `env:"BACKEND_CORS_ORIGINS" envSeparator:","`
	FrontendOrigin string   `env:"FRONTEND_ORIGIN"`
}

// AllowedOrigins merges both origin settings, dropping blanks and duplicates
// while keeping order. With nothing configured every origin is allowed.
func (c CORSConfig) AllowedOrigins() []string {
	seen := make(map[string]struct{})
	var origins []string
	for _, origin := range append(append([]string{}, c.Origins...), c.FrontendOrigin) {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	Bucket  string `env:"STORAGE_BUCKET" envDefault:"exports"`
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

type MQConfig struct {
	Backend       string `env:"MQ_BACKEND" envDefault:"none"`
	EventsChannel string `env:"ACCOUNT_EVENTS_CHANNEL" envDefault:"account-events"`
	RabbitMQ      RabbitMQConfig
	PubSub        PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE" envDefault:"false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH_COUNT" envDefault:"0"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

// LoadConfig reads configuration from the environment. In dev a local .env
// file is loaded first. The signing secret is not checked here; the token
// service rejects a missing secret when the server is built.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		cfg.Auth.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.MQ.Backend = strings.ToLower(strings.TrimSpace(cfg.MQ.Backend))

	return cfg, nil
}
