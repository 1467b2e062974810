package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Gateway  GatewayConfig
	Platform PlatformConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// DatabaseConfig with an empty URL disables order persistence.
type DatabaseConfig struct {
	URL string
}

// RedisConfig with an empty Addr disables the submission guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig with no brokers disables checkout events.
type KafkaConfig struct {
	Brokers       []string
	TopicCheckout string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type GatewayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
	Name      string
}

type PlatformConfig struct {
	StoreDomain  string
	AccessToken  string
	APIVersion   string
	ClientID     string
	ClientSecret string
	Scopes       string
	AppURL       string
}

type BusinessConfig struct {
	HomeCountry        string
	StoreTag           string
	RequestTimeout     time.Duration
	SubmissionGuardTTL time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	timeoutSeconds, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "15"))
	guardTTLSeconds, _ := strconv.Atoi(getEnv("SUBMISSION_GUARD_TTL_SECONDS", "86400"))
	if timeoutSeconds <= 0 {
		timeoutSeconds = 15
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8787"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: splitList(getEnv("FRONTEND_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicCheckout: getEnv("KAFKA_TOPIC_CHECKOUT_EVENTS", "checkout-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "checkout-reconciliation-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
		Gateway: GatewayConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
			Currency:  getEnv("GATEWAY_CURRENCY", "INR"),
			Name:      getEnv("GATEWAY_NAME", "Razorpay"),
		},
		Platform: PlatformConfig{
			StoreDomain:  getEnv("SHOPIFY_STORE", ""),
			AccessToken:  getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:   getEnv("SHOPIFY_API_VERSION", "2025-01"),
			ClientID:     getEnv("SHOPIFY_API_KEY", ""),
			ClientSecret: getEnv("SHOPIFY_API_SECRET", ""),
			Scopes:       getEnv("SCOPES", "read_products,write_orders,read_discounts"),
			AppURL:       getEnv("BASE_URL", "http://localhost:8787"),
		},
		Business: BusinessConfig{
			HomeCountry:        getEnv("HOME_COUNTRY", "India"),
			StoreTag:           getEnv("STORE_TAG", "SSCheckout"),
			RequestTimeout:     time.Duration(timeoutSeconds) * time.Second,
			SubmissionGuardTTL: time.Duration(guardTTLSeconds) * time.Second,
		},
	}

	if missing := cfg.MissingRequired(); len(missing) > 0 {
		log.Printf("WARNING: required env vars are missing: %s", strings.Join(missing, ", "))
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

// MissingRequired lists the env vars the checkout pipeline cannot run without.
func (c *Config) MissingRequired() []string {
	var missing []string
	if c.Gateway.KeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if c.Gateway.KeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if c.Platform.StoreDomain == "" {
		missing = append(missing, "SHOPIFY_STORE")
	}
	if c.Platform.AccessToken == "" {
		missing = append(missing, "SHOPIFY_ACCESS_TOKEN")
	}
	return missing
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
