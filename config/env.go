package config

import (
	"log"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings holds every env-driven knob of the service.
type Settings struct {
	Port string `envconfig:"PORT" default:"8080"`

	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBHost     string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort     string `envconfig:"DB_PORT" default:"3306"`
	DBName     string `envconfig:"DB_NAME"`

	DBMaxOpenConns          int  `envconfig:"DB_MAX_OPEN_CONNS" default:"50"`
	DBMaxIdleConns          int  `envconfig:"DB_MAX_IDLE_CONNS" default:"25"`
	DBConnMaxLifetimeSecond int  `envconfig:"DB_CONN_MAX_LIFETIME_SECONDS" default:"300"`
	DBConnMaxIdleTimeSecond int  `envconfig:"DB_CONN_MAX_IDLE_TIME_SECONDS" default:"60"`
	SkipMigrations          bool `envconfig:"SKIP_MIGRATIONS" default:"false"`

	RedisEnabled bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisAddress string `envconfig:"REDIS_ADDRESS" default:"localhost:6379"`

	PubSubProjectID       string `envconfig:"PUBSUB_PROJECT_ID"`
	PubSubTopic           string `envconfig:"PUBSUB_TOPIC"`
	PubSubCredentialsJSON string `envconfig:"PUBSUB_CREDENTIALS_JSON"`

	GoEnv              string `envconfig:"GO_ENV" default:"development"`
	CorsAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	PhoneRegion        string `envconfig:"PHONE_REGION" default:"PK"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"error"`

	RateLimitEnabled       bool  `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	RateLimitWindowSeconds int64 `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`
	RateLimitMaxRequests   int64 `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"600"`
}

var (
	env     Settings
	envOnce sync.Once
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// Env returns the process settings, read once from the environment.
func Env() *Settings {
	envOnce.Do(func() {
		if err := envconfig.Process("", &env); err != nil {
			log.Fatalf("error loading env vars: %v", err)
		}
	})
	return &env
}

func (s *Settings) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(s.GoEnv), "production")
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (s *Settings) AllowedOrigins() []string {
	parts := strings.Split(s.CorsAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
