package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	DatabaseURL   string
	RedisAddr     string
	CacheDir      string
	JWTSecret     string
	JWTExpiry     time.Duration
	ScanWorkers   int
	JobWorkers    int
	RescanCron    string
	AdminUser     string
	AdminPassword string
}

func Load() *Config {
	return &Config{
		Port:          envInt("PORT", 8080),
		DatabaseURL:   env("DATABASE_URL", "postgres://curatorr:curatorr@db:5432/curatorr?sslmode=disable"),
		RedisAddr:     env("REDIS_ADDR", "redis:6379"),
		CacheDir:      env("CACHE_DIR", "/data/cache"),
		JWTSecret:     env("JWT_SECRET", "change-me-in-production"),
		JWTExpiry:     envDuration("JWT_EXPIRY", 24*time.Hour),
		ScanWorkers:   envInt("SCAN_WORKERS", 4),
		JobWorkers:    envInt("JOB_WORKERS", 2),
		RescanCron:    env("RESCAN_CRON", "0 3 * * *"),
		AdminUser:     env("ADMIN_USER", "admin"),
		AdminPassword: env("ADMIN_PASSWORD", ""),
	}
}

// MergeFromDB overlays operator-tunable settings stored in system_settings
// over the environment values.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM system_settings")
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
		case "scan_workers":
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				c.ScanWorkers = v
			}
		case "rescan_cron":
			c.RescanCron = value
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
