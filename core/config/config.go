package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration, read from the environment
// after .env has been loaded
type Config struct {
	Env        string
	Version    string
	ServerPort string

	// Database
	DBDriver string
	DBDSN    string

	// Storage for export files
	StorageProvider  string
	StoragePath      string
	StorageBaseURL   string
	StorageAPIKey    string
	StorageAPISecret string
	StorageEndpoint  string
	StorageBucket    string
	StorageRegion    string
	StorageAccountID string
	CDN              string

	// Auth
	AuthEnabled bool
	JWTSecret   string

	// Upstream dealership backend
	UpstreamBaseURL   string
	UpstreamToken     string
	UpstreamRPS       float64
	UpstreamTimeout   time.Duration
	UpstreamEndpoints map[string]string

	// Dataset sync
	SyncCron string
	SyncTags []string

	// Table search
	SearchFallback  string
	FilterCacheSize int

	WebSocketEnabled bool
	LogPath          string
	LogLevel         string

	Middleware MiddlewareConfig
}

// MiddlewareConfig toggles the optional HTTP middleware
type MiddlewareConfig struct {
	CORSEnabled      bool
	CORSOrigins      []string
	RecoverEnabled   bool
	RequestIDEnabled bool
	LoggingEnabled   bool
	LogSkipPaths     []string
	// BodyLimit caps request bodies, e.g. "40M"; empty disables the cap
	BodyLimit string
}

// IsLoggingRequired reports whether requests to path should be logged
func (m *MiddlewareConfig) IsLoggingRequired(path string) bool {
	if !m.LoggingEnabled {
		return false
	}
	for _, skip := range m.LogSkipPaths {
		if skip != "" && strings.HasPrefix(path, skip) {
			return false
		}
	}
	return true
}

// NewConfig reads the configuration from environment variables
func NewConfig() *Config {
	port := getEnv("SERVER_PORT", ":8100")
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		port = ":" + port
	}

	return &Config{
		Env:        getEnv("ENV", "development"),
		Version:    getEnv("APP_VERSION", "1.0.0"),
		ServerPort: port,

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "storage/backoffice.db"),

		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		StoragePath:      getEnv("STORAGE_PATH", "storage/exports"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "/storage/exports"),
		StorageAPIKey:    os.Getenv("STORAGE_API_KEY"),
		StorageAPISecret: os.Getenv("STORAGE_API_SECRET"),
		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageBucket:    os.Getenv("STORAGE_BUCKET"),
		StorageRegion:    os.Getenv("STORAGE_REGION"),
		StorageAccountID: os.Getenv("STORAGE_ACCOUNT_ID"),
		CDN:              os.Getenv("CDN"),

		AuthEnabled: getEnvBool("AUTH_ENABLED", false),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		UpstreamBaseURL:   strings.TrimRight(os.Getenv("UPSTREAM_BASE_URL"), "/"),
		UpstreamToken:     os.Getenv("UPSTREAM_TOKEN"),
		UpstreamRPS:       getEnvFloat("UPSTREAM_RPS", 5),
		UpstreamTimeout:   getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		UpstreamEndpoints: parsePairs(os.Getenv("UPSTREAM_ENDPOINTS")),

		SyncCron: getEnv("SYNC_CRON", "*/15 * * * *"),
		SyncTags: splitList(os.Getenv("SYNC_TAGS")),

		SearchFallback:  getEnv("SEARCH_FALLBACK", "legacy"),
		FilterCacheSize: getEnvInt("FILTER_CACHE_SIZE", 10000),

		WebSocketEnabled: getEnvBool("WS_ENABLED", true),
		LogPath:          getEnv("LOG_PATH", "logs"),
		LogLevel:         getEnv("LOG_LEVEL", "debug"),

		Middleware: MiddlewareConfig{
			CORSEnabled:      getEnvBool("CORS_ENABLED", false),
			CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			RecoverEnabled:   getEnvBool("RECOVER_ENABLED", true),
			RequestIDEnabled: getEnvBool("REQUEST_ID_ENABLED", true),
			LoggingEnabled:   getEnvBool("REQUEST_LOGGING", true),
			LogSkipPaths:     splitList(getEnv("LOG_SKIP_PATHS", "/health,/metrics,/static,/storage")),
			BodyLimit:        getEnv("BODY_LIMIT", "40M"),
		},
	}
}

// IsProduction reports whether the app runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePairs reads "tag:path,tag2:path2"
func parsePairs(raw string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitList(raw) {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
