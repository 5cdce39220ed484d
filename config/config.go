package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Shop     ShopConfig
	Session  SessionConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// ShopConfig points at the upstream shop API that serves the catalog
// and accepts order submissions.
type ShopConfig struct {
	APIOrigin       string
	CDNOrigin       string
	PaymentMethods  []string
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
}

type SessionConfig struct {
	IdleTTL time.Duration
}

// DatabaseConfig holds the order-archive database. An empty URL disables
// archiving.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds the catalog cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// KafkaConfig holds the checkout analytics topic. Empty Brokers disable
// the pipeline.
type KafkaConfig struct {
	Brokers       []string
	TopicCheckout string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	requestTimeout, _ := strconv.Atoi(getEnv("SHOP_REQUEST_TIMEOUT_SECONDS", "10"))
	refreshInterval, _ := strconv.Atoi(getEnv("CATALOG_REFRESH_SECONDS", "300"))
	cacheTTL, _ := strconv.Atoi(getEnv("CATALOG_CACHE_TTL_SECONDS", "300"))
	sessionTTL, _ := strconv.Atoi(getEnv("SESSION_IDLE_TTL_SECONDS", "1800"))

	apiOrigin := getEnv("SHOP_API_ORIGIN", "https://larek-api.nomoreparties.co")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Shop: ShopConfig{
			APIOrigin:       apiOrigin + "/api/weblarek",
			CDNOrigin:       getEnv("SHOP_CDN_ORIGIN", apiOrigin+"/content/weblarek"),
			PaymentMethods:  strings.Split(getEnv("PAYMENT_METHODS", "card,cash"), ","),
			RequestTimeout:  time.Duration(requestTimeout) * time.Second,
			RefreshInterval: time.Duration(refreshInterval) * time.Second,
		},
		Session: SessionConfig{
			IdleTTL: time.Duration(sessionTTL) * time.Second,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			CacheTTL: time.Duration(cacheTTL) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			TopicCheckout: getEnv("KAFKA_TOPIC_CHECKOUT_EVENTS", "checkout-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-archive-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, shop=%s", cfg.Server.Env, cfg.Server.Port, cfg.Shop.APIOrigin)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
