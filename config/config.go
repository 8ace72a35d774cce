package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Source drivers understood by storage.Open.
const (
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataSource  string
	SQLitePath  string
	SourceTable string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	HTTPAddr         string
	ReloadEachRender bool
	ReportCacheSize  int
	TopN             int
	HistogramBins    int

	ChromeBin       string
	SnapshotBaseURL string
	SnapshotDir     string
	SnapshotWidth   int
	SnapshotHeight  int
	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int

	ParquetCompression string
	LogLevel           string

	DashboardConfigPath string
	Dashboard           Dashboard
}

// Load reads the .env file and returns a populated Config struct. The YAML
// dashboard file named by DASHBOARD_CONFIG, if any, is merged over the
// built-in dashboard texts.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		DataSource:  strings.ToLower(getEnv("DATA_SOURCE", SourceSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "banco_ev.db"),
		SourceTable: getEnv("SOURCE_TABLE", "consolidado"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "booktrends"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "booktrends"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		HTTPAddr:         getEnv("HTTP_ADDR", "127.0.0.1:8501"),
		ReloadEachRender: getEnvBool("RELOAD_EACH_RENDER", true),
		ReportCacheSize:  getEnvInt("REPORT_CACHE_SIZE", 128),
		TopN:             getEnvInt("TOP_N", 5),
		HistogramBins:    getEnvInt("HISTOGRAM_BINS", 0),

		ChromeBin:       getEnv("CHROME_BIN", ""),
		SnapshotBaseURL: getEnv("SNAPSHOT_BASE_URL", ""),
		SnapshotDir:     getEnv("SNAPSHOT_DIR", "./output/snapshots"),
		SnapshotWidth:   getEnvInt("SNAPSHOT_WIDTH", 1400),
		SnapshotHeight:  getEnvInt("SNAPSHOT_HEIGHT", 900),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 2),
		RateLimitMs:     getEnvInt("RATE_LIMIT_MS", 500),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),

		ParquetCompression: strings.ToLower(getEnv("PARQUET_COMPRESSION", "snappy")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		DashboardConfigPath: getEnv("DASHBOARD_CONFIG", ""),
		Dashboard:           DefaultDashboard(),
	}

	if cfg.DashboardConfigPath != "" {
		if err := cfg.Dashboard.MergeFile(cfg.DashboardConfigPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
