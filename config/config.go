package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Backend  BackendConfig
	Telegram TelegramConfig
	Delivery DeliveryConfig
	Customer CustomerConfig
	Metrics  MetricsConfig
	LogLevel logrus.Level
}

type BackendConfig struct {
	URL     string
	Timeout time.Duration // 0 = no timeout
}

type TelegramConfig struct {
	Token         string
	RatePerSecond float64 // updates per chat
	RateBurst     int
}

type DeliveryConfig struct {
	Fee decimal.Decimal
}

// CustomerConfig holds the placeholder customer sent with every order.
type CustomerConfig struct {
	Name    string
	Phone   string
	Address string
}

type MetricsConfig struct {
	Addr string
}

const DefaultBackendURL = "http://localhost:8000"

func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Empty values fall back to defaults.
func FromEnv(lookup func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return def
	}

	timeout, err := time.ParseDuration(get("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("HTTP_TIMEOUT: %w", err)
	}
	if timeout < 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be >= 0")
	}
	fee, err := decimal.NewFromString(get("DELIVERY_FEE", "4.99"))
	if err != nil {
		return nil, fmt.Errorf("DELIVERY_FEE: %w", err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("DELIVERY_FEE must be >= 0")
	}
	rps, err := strconv.ParseFloat(get("RATE_PER_SECOND", "2"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("RATE_PER_SECOND must be a positive number")
	}
	burst, err := strconv.Atoi(get("RATE_BURST", "5"))
	if err != nil || burst <= 0 {
		return nil, fmt.Errorf("RATE_BURST must be a positive integer")
	}
	level, err := logrus.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return &Config{
		Backend: BackendConfig{
			URL:     strings.TrimRight(get("BACKEND_URL", DefaultBackendURL), "/"),
			Timeout: timeout,
		},
		Telegram: TelegramConfig{
			Token:         get("TOKEN", ""),
			RatePerSecond: rps,
			RateBurst:     burst,
		},
		Delivery: DeliveryConfig{
			Fee: fee,
		},
		Customer: CustomerConfig{
			Name:    get("CUSTOMER_NAME", "Guest"),
			Phone:   get("CUSTOMER_PHONE", "000-000-0000"),
			Address: get("CUSTOMER_ADDRESS", "123 Demo Street"),
		},
		Metrics: MetricsConfig{
			Addr: get("METRICS_ADDR", ""),
		},
		LogLevel: level,
	}, nil
}
