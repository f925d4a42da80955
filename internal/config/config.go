package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

// ServiceConfig points at one consumed external HTTP service. Timeout
// bounds every call; a timed-out payment call is an unknown outcome, not
// a retryable failure.
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AppConfig struct {
	Port     string
	Postgres PostgresConfig
	Redis    RedisConfig
	S3       S3Config

	Ledger   ServiceConfig
	Balance  ServiceConfig
	Document ServiceConfig

	ReceiptDir        string
	FilesPublicPrefix string
	ExternalURL       string

	BalanceCacheTTL time.Duration
	ReceiptFileTTL  time.Duration
	SessionIdleTTL  time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func mustSeconds(s string) time.Duration {
	return time.Duration(mustAtoi(s)) * time.Second
}

func Load() AppConfig {
	return AppConfig{
		Port: getenv("APP_PORT", "8020"),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "root"),
			Password: getenv("PG_PASSWORD", "hello-world"),
			DBName:   getenv("PG_DB", "feepay"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", "hello-world"),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "5")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "10")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Prefix:      getenv("REDIS_PREFIX", "feepay_engine_"),
		},
		S3: S3Config{
			Enabled:         mustBool(getenv("S3_ENABLED", "false")),
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "receipts"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", ""),
		},
		Ledger: ServiceConfig{
			BaseURL: getenv("LEDGER_BASE_URL", "http://127.0.0.1:9010"),
			Timeout: mustSeconds(getenv("LEDGER_TIMEOUT", "30")),
		},
		Balance: ServiceConfig{
			BaseURL: getenv("BALANCE_BASE_URL", "http://127.0.0.1:9011"),
			Timeout: mustSeconds(getenv("BALANCE_TIMEOUT", "15")),
		},
		Document: ServiceConfig{
			BaseURL: getenv("DOCUMENT_BASE_URL", "http://127.0.0.1:9012"),
			Timeout: mustSeconds(getenv("DOCUMENT_TIMEOUT", "30")),
		},
		ReceiptDir:        getenv("RECEIPT_DIR", "./receipts"),
		FilesPublicPrefix: getenv("FILES_PUBLIC_PREFIX", "/files"),
		ExternalURL:       getenv("EXTERNAL_URL", ""),
		BalanceCacheTTL:   mustSeconds(getenv("BALANCE_CACHE_TTL", "300")),
		ReceiptFileTTL:    mustSeconds(getenv("RECEIPT_FILE_TTL", "1800")),
		SessionIdleTTL:    mustSeconds(getenv("SESSION_IDLE_TTL", "1800")),
	}
}
