// Package config loads runtime settings from MAUZENFAN_* environment
// variables, optionally seeded from a .env file.
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

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	JWTSecret string
	JWTIssuer string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	// FCMCredentialsFile is a service account JSON file. FCM is disabled
	// when it is empty.
	FCMCredentialsFile string
	FCMProjectID       string

	PushTimeout     time.Duration
	PushConcurrency int
	DispatchQueue   int

	KafkaBrokers []string
	KafkaTopic   string

	WeatherEnabled  bool
	WeatherInterval time.Duration
}

// Load reads the environment. A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		Port:               getenv("MAUZENFAN_PORT", "8080"),
		DBPath:             getenv("MAUZENFAN_DB_PATH", "mauzenfan.db"),
		LogLevel:           getenv("MAUZENFAN_LOG_LEVEL", "info"),
		LogFormat:          getenv("MAUZENFAN_LOG_FORMAT", "text"),
		JWTSecret:          os.Getenv("MAUZENFAN_JWT_SECRET"),
		JWTIssuer:          getenv("MAUZENFAN_JWT_ISSUER", "mauzenfan"),
		VAPIDPublicKey:     os.Getenv("MAUZENFAN_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:    os.Getenv("MAUZENFAN_VAPID_PRIVATE_KEY"),
		VAPIDSubscriber:    getenv("MAUZENFAN_VAPID_SUBSCRIBER", "mailto:noreply@mauzenfan.app"),
		FCMCredentialsFile: os.Getenv("MAUZENFAN_FCM_CREDENTIALS"),
		FCMProjectID:       os.Getenv("MAUZENFAN_FCM_PROJECT_ID"),
		KafkaTopic:         getenv("MAUZENFAN_KAFKA_TOPIC", "mauzenfan.fanout"),
	}

	if brokers := os.Getenv("MAUZENFAN_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.PushTimeout, err = getDuration("MAUZENFAN_PUSH_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.WeatherInterval, err = getDuration("MAUZENFAN_WEATHER_INTERVAL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PushConcurrency, err = getInt("MAUZENFAN_PUSH_CONCURRENCY", 4); err != nil {
		return Config{}, err
	}
	if cfg.DispatchQueue, err = getInt("MAUZENFAN_DISPATCH_QUEUE", 256); err != nil {
		return Config{}, err
	}
	if cfg.WeatherEnabled, err = getBool("MAUZENFAN_WEATHER_ENABLED", true); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("MAUZENFAN_JWT_SECRET is required")
	}
	if (cfg.VAPIDPublicKey == "") != (cfg.VAPIDPrivateKey == "") {
		return Config{}, errors.New("MAUZENFAN_VAPID_PUBLIC_KEY and MAUZENFAN_VAPID_PRIVATE_KEY must be set together")
	}
	if cfg.FCMCredentialsFile != "" && cfg.FCMProjectID == "" {
		return Config{}, errors.New("MAUZENFAN_FCM_PROJECT_ID is required when FCM credentials are set")
	}
	return cfg, nil
}

// WebPushEnabled reports whether VAPID keys are configured.
func (c Config) WebPushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: must be a positive integer", key)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
