package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bandit   BanditConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
	LogJSON     bool
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	StatsTTLSecs  int
}

// BanditConfig holds the selection and attribution tunables. The stored
// per-profile row in bandit_configs overrides these at load time.
type BanditConfig struct {
	Profile             string
	Alpha               float64
	RewardHalfLifeHrs   float64
	AttributionWindowHr int
	MinSamplesForBest   int
	EligibilityExpr     string
}

// JobsConfig controls the background tickers.
type JobsConfig struct {
	AttributionIntervalMins  int
	IndexRebuildIntervalMins int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "shelfScout"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogJSON:     getEnvBool("LOG_JSON", false),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "shelfscout"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			StatsTTLSecs:  getEnvInt("REDIS_STATS_TTL_SECONDS", 30),
		},
		Bandit: BanditConfig{
			Profile:             getEnv("BANDIT_PROFILE", "default"),
			Alpha:               getEnvFloat("BANDIT_ALPHA", 0),
			RewardHalfLifeHrs:   getEnvFloat("BANDIT_REWARD_HALF_LIFE_HOURS", 0),
			AttributionWindowHr: getEnvInt("BANDIT_ATTRIBUTION_WINDOW_HOURS", 0),
			MinSamplesForBest:   getEnvInt("BANDIT_MIN_SAMPLES_FOR_BEST", 0),
			EligibilityExpr:     getEnv("ELIGIBILITY_EXPRESSION", ""),
		},
		Jobs: JobsConfig{
			AttributionIntervalMins:  getEnvInt("ATTRIBUTION_INTERVAL_MINUTES", 15),
			IndexRebuildIntervalMins: getEnvInt("INDEX_REBUILD_INTERVAL_MINUTES", 60),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
