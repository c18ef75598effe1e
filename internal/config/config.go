package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	AuthSecret             string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLMinutes int
	EnforceStockFloor      bool
	ValidateReturnQty      bool
}

// Load reads a .env file if present, then the environment. Missing keys
// fall back to development defaults.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	accessTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "20"))
	if err != nil || accessTTL < 1 {
		accessTTL = 20
	}
	refreshTTL, err := strconv.Atoi(getEnv("REFRESH_TOKEN_TTL_MINUTES", "1440"))
	if err != nil || refreshTTL < 1 {
		refreshTTL = 1440
	}

	return Config{
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		AuthSecret:             strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:  accessTTL,
		RefreshTokenTTLMinutes: refreshTTL,
		EnforceStockFloor:      getBool("ENFORCE_STOCK_FLOOR", true),
		ValidateReturnQty:      getBool("VALIDATE_RETURN_QTY", true),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
