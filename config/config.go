package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	S3        S3Config
	Breaker   BreakerConfig
	Scheduler SchedulerConfig
	Session   SessionConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type LogConfig struct {
	Level  string
	Format string // console, json
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// StorageConfig selects the persistent storage adapter backing the cart
// snapshot and the dark mode flag.
type StorageConfig struct {
	Backend      string // memory, file, redis, database, s3
	FilePath     string
	QuotaBytes   int64
	WriteTimeout time.Duration
	KeyPrefix    string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

type SchedulerConfig struct {
	ResyncSpec string
}

// SessionConfig OwnerUserID 가 0 이면 처음 인증한 사용자가 장바구니를 소유
type SessionConfig struct {
	OwnerUserID uint
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Storage: StorageConfig{
			Backend:      getEnv("STORAGE_BACKEND", "file"),
			FilePath:     getEnv("STORAGE_FILE_PATH", "./data/storage.json"),
			QuotaBytes:   parseInt64(getEnv("STORAGE_QUOTA_BYTES", "5242880"), 5<<20),
			WriteTimeout: parseDuration(getEnv("STORAGE_WRITE_TIMEOUT", "3s"), 3*time.Second),
			KeyPrefix:    getEnv("STORAGE_KEY_PREFIX", "storefront"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       int(parseInt64(getEnv("REDIS_DB", "0"), 0)),
			TTL:      parseDuration(getEnv("REDIS_TTL", "0s"), 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", "storefront-client-state"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Breaker: BreakerConfig{
			MaxFailures: uint32(parseInt64(getEnv("BREAKER_MAX_FAILURES", "5"), 5)),
			OpenTimeout: parseDuration(getEnv("BREAKER_OPEN_TIMEOUT", "30s"), 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			ResyncSpec: getEnv("SCHEDULER_RESYNC_SPEC", "@every 30s"),
		},
		Session: SessionConfig{
			OwnerUserID: parseUint(getEnv("CART_OWNER_ID", "0"), 0),
		},
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
		if config.Server.Environment == "development" {
			config.Log.Level = "debug"
		}
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt64(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}

func parseUint(s string, fallback uint) uint {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		log.Printf("Invalid unsigned integer %s, using default %d", s, fallback)
		return fallback
	}
	return uint(n)
}
