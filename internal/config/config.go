package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cast"
)

type Config struct {
	Port            int
	DatabaseURL     string
	RedisAddr       string
	JWTSecret       string
	TMDBAPIKey      string
	TMDBLanguage    string
	DataDir         string
	SiteBaseURL     string
	SyncConcurrency int
	RefreshCron     string
}

func Load() *Config {
	return &Config{
		Port:            envInt("PORT", 8080),
		DatabaseURL:     env("DATABASE_URL", "postgres://tmusync:tmusync@db:5432/tmusync?sslmode=disable"),
		RedisAddr:       env("REDIS_ADDR", "redis:6379"),
		JWTSecret:       env("JWT_SECRET", "change-me-in-production"),
		TMDBAPIKey:      env("TMDB_API_KEY", ""),
		TMDBLanguage:    env("TMDB_LANGUAGE", "en-US"),
		DataDir:         env("DATA_DIR", "/data"),
		SiteBaseURL:     env("SITE_BASE_URL", "http://localhost:8080"),
		SyncConcurrency: envInt("SYNC_CONCURRENCY", 2),
		RefreshCron:     env("REFRESH_CRON", "0 3 * * *"),
	}
}

// MergeFromDB overlays settings-table values onto the env-derived config.
// Unknown keys are ignored; parse failures keep the existing value.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "tmdb_api_key":
			c.TMDBAPIKey = value
		case "tmdb_language":
			c.TMDBLanguage = value
		case "site_base_url":
			c.SiteBaseURL = value
		case "sync_concurrency":
			if v := cast.ToInt(value); v > 0 {
				c.SyncConcurrency = v
			}
		case "refresh_cron":
			if value != "" {
				c.RefreshCron = value
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
