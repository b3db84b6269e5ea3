package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values. Secrets must come
// from the environment (or a local .env file) in production deployments.
type AppConfig struct {
	AppPort   string
	GinMode   string
	JWTSecret string
	// DatabaseURI selects the storage backend: a plain path or sqlite:// URI
	// opens an embedded SQLite database, a mysql DSN opens MySQL.
	DatabaseURI string
	// StaticDir is where the built application shell lives; unrecognized
	// non-API routes fall back to its index.html.
	StaticDir      string
	AllowedOrigins []string
	// Cookie attributes for the session token.
	CookieDomain string
	CookieSecure bool
	// Redis for feed caching. Optional: an unreachable Redis degrades to
	// cache misses.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// devJWTSecret mirrors the historical fallback secret. Deployments are
// expected to override it via JWT_SECRET.
const devJWTSecret = "verse-secret-key-123"

var cfg AppConfig
var loaded bool

// Load reads configuration from the environment, consulting a .env file when
// present. It should be called once during boot; later calls return the
// cached value.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = godotenv.Load()

	cfg = AppConfig{
		AppPort:        getEnv("APP_PORT", "3000"),
		GinMode:        getEnv("GIN_MODE", "release"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DatabaseURI:    getEnv("DATABASE_URI", "verse.db"),
		StaticDir:      getEnv("STATIC_DIR", "./dist"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:   getEnvBool("COOKIE_SECURE", true),
		RedisHost:      getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:      getEnvInt("REDIS_PORT", 6379),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPath:        getEnv("LOG_PATH", ""),
		LogMaxSizeMB:   getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:  getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:  getEnvInt("LOG_MAX_AGE_DAYS", 7),
		LogCompress:    getEnvBool("LOG_COMPRESS", false),
	}

	if cfg.JWTSecret == "" {
		log.Println("warning: JWT_SECRET not set, using built-in development secret")
		cfg.JWTSecret = devJWTSecret
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTesting overrides the cached configuration. Test helper only.
func SetForTesting(c AppConfig) {
	cfg = c
	loaded = true
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

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
