package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var parquetCodecs = map[string]bool{
	"snappy":       true,
	"gzip":         true,
	"zstd":         true,
	"uncompressed": true,
}

// Validate rejects settings the rest of the application cannot work with.
func (c *Config) Validate() error {
	switch c.DataSource {
	case SourceSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is empty: %w", ErrInvalidConfig)
		}
	case SourcePostgres:
	default:
		return fmt.Errorf("config: unknown DATA_SOURCE %q: %w", c.DataSource, ErrInvalidConfig)
	}
	if c.SourceTable == "" {
		return fmt.Errorf("config: SOURCE_TABLE is empty: %w", ErrInvalidConfig)
	}
	if c.TopN < 1 {
		return fmt.Errorf("config: TOP_N must be positive, got %d: %w", c.TopN, ErrInvalidConfig)
	}
	if c.HistogramBins < 0 {
		return fmt.Errorf("config: HISTOGRAM_BINS must not be negative: %w", ErrInvalidConfig)
	}
	if c.ReportCacheSize < 0 {
		return fmt.Errorf("config: REPORT_CACHE_SIZE must not be negative: %w", ErrInvalidConfig)
	}
	if !parquetCodecs[c.ParquetCompression] {
		return fmt.Errorf("config: unknown PARQUET_COMPRESSION %q: %w", c.ParquetCompression, ErrInvalidConfig)
	}
	return nil
}
