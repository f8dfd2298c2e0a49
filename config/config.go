package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port             string
	GinMode          string
	LogLevel         string
	StoreDriver      string
	MongoURI         string
	DBName           string
	DatabaseURL      string
	JWTSecret        string
	TokenTTL         time.Duration
	RequestTimeout   time.Duration
	CORSAllowOrigins []string
	KafkaBrokers     []string
	KafkaTopic       string
	OutboxPoll       time.Duration
}

// LoadEnv reads a .env file into the process environment when one exists.
func LoadEnv() {
	_ = godotenv.Load()
}

// GetEnv returns the trimmed value of key, or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// Load builds the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:             GetEnv("PORT", "8080"),
		GinMode:          GetEnv("GIN_MODE", "release"),
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
		StoreDriver:      strings.ToLower(GetEnv("STORE_DRIVER", DriverPostgres)),
		MongoURI:         GetEnv("MONGO_URI", ""),
		DBName:           GetEnv("DB_NAME", ""),
		DatabaseURL:      GetEnv("DATABASE_URL", ""),
		JWTSecret:        GetEnv("JWT_SECRET", ""),
		CORSAllowOrigins: splitCSV(GetEnv("CORS_ALLOW_ORIGINS", "*")),
		KafkaBrokers:     splitCSV(GetEnv("KAFKA_BROKERS", "")),
		KafkaTopic:       GetEnv("KAFKA_TOPIC", "storefront.orders"),
	}

	var err error
	if cfg.RequestTimeout, err = millis("REQUEST_TIMEOUT_MS", 5000); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPoll, err = millis("OUTBOX_POLL_MS", 1000); err != nil {
		return Config{}, err
	}
	hours, err := strconv.Atoi(GetEnv("TOKEN_TTL_HOURS", "24"))
	if err != nil || hours <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL_HOURS must be a positive integer")
	}
	cfg.TokenTTL = time.Duration(hours) * time.Hour

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.DBName == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}
	return nil
}

// KafkaEnabled reports whether order events should be relayed.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func millis(key string, fallback int) (time.Duration, error) {
	ms, err := strconv.Atoi(GetEnv(key, strconv.Itoa(fallback)))
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
