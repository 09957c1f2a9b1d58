package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port          string
	AllowedOrigin string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BranchID      string

	// Fulfillment policy inputs. Fallbacks follow the documented defaults:
	// tax 16%, 1 point per 10.00 of order total, daily earn limit 1000.
	TaxRatePercent   decimal.Decimal
	PointsPerUnit    int
	CurrencyUnit     decimal.Decimal
	DailyPointsLimit int
	AllowOversell    bool

	AuthSecret            string
	AccessTokenTTLMinutes int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	pointsPerUnit, err := strconv.Atoi(getEnv("POINTS_PER_UNIT", "1"))
	if err != nil || pointsPerUnit < 0 {
		pointsPerUnit = 1
	}
	dailyLimit, err := strconv.Atoi(getEnv("DAILY_POINTS_LIMIT", "1000"))
	if err != nil || dailyLimit < 1 {
		dailyLimit = 1000
	}

	return Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		BranchID:      getEnv("DEFAULT_BRANCH_ID", "main-branch"),

		TaxRatePercent:   getDecimal("TAX_RATE_PERCENT", "16"),
		PointsPerUnit:    pointsPerUnit,
		CurrencyUnit:     getDecimal("POINTS_CURRENCY_UNIT", "10"),
		DailyPointsLimit: dailyLimit,
		AllowOversell:    getBool("ALLOW_OVERSELL", true),

		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
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

func getDecimal(key string, fallback string) decimal.Decimal {
	raw := getEnv(key, fallback)
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || parsed.Sign() < 0 {
		parsed, _ = decimal.NewFromString(fallback)
	}
	return parsed
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
