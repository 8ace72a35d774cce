package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"book-trends/config"
	"book-trends/models"
	"book-trends/services"
	"book-trends/utils"
)

// dialect holds what differs between the supported SQL engines.
type dialect struct {
	name        string
	tableExists string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`,
	}
	postgresDialect = dialect{
		name:        "postgres",
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1 AND table_schema = ANY(current_schemas(false))`,
	}
)

// SQLSource reads the listing table with one unfiltered SELECT * per Load.
type SQLSource struct {
	db      *sql.DB
	dialect dialect
	table   string
	cleaner *services.Cleaner
	logger  *utils.Logger

	genderOnce sync.Once
}

// Open returns the source selected by cfg.DataSource.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*SQLSource, error) {
	switch cfg.DataSource {
	case config.SourcePostgres:
		return NewPostgresSource(ctx, cfg.DSN(), cfg.SourceTable, logger)
	default:
		return NewSQLiteSource(ctx, cfg.SQLitePath, cfg.SourceTable, logger)
	}
}

// NewSQLiteSource opens the SQLite file at path read-only. A missing file
// is an error rather than a fresh empty database.
func NewSQLiteSource(ctx context.Context, path, table string, logger *utils.Logger) (*SQLSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite: %q: %w (%v)", path, ErrSourceNotFound, err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	return newSQLSource(ctx, db, sqliteDialect, table, logger)
}

// sqliteDSN builds a URI filename that makes every pooled connection
// read-only, not just the first one.
func sqliteDSN(path string) string {
	u := url.URL{Path: filepath.ToSlash(path)}
	return "file:" + u.EscapedPath() + "?mode=ro&_pragma=query_only(1)"
}

// NewPostgresSource connects to PostgreSQL. The connection is checked once;
// there are no retries.
func NewPostgresSource(ctx context.Context, dsn, table string, logger *utils.Logger) (*SQLSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return newSQLSource(ctx, db, postgresDialect, table, logger)
}

func newSQLSource(ctx context.Context, db *sql.DB, d dialect, table string, logger *utils.Logger) (*SQLSource, error) {
	s := &SQLSource{
		db:      db,
		dialect: d,
		table:   table,
		cleaner: services.NewCleaner(logger),
		logger:  logger,
	}
	if err := s.checkTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLSource) checkTable(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.tableExists, s.table).Scan(&n); err != nil {
		return fmt.Errorf("%s: look up table %q: %w", s.dialect.name, s.table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %q: %w", s.dialect.name, s.table, ErrTableNotFound)
	}
	return nil
}

// Load runs SELECT * on the table, maps columns by name and cleans the rows.
func (s *SQLSource) Load(ctx context.Context) (*models.RecordSet, error) {
	raw, err := s.fetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	records := s.cleaner.Clean(raw)
	set := models.NewRecordSet(records)
	s.logger.Debug("[storage] Loaded %d records from %s (version %s)", set.Len(), s.table, set.Version())
	return set, nil
}

func (s *SQLSource) fetchRaw(ctx context.Context) ([]models.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(s.table))
	if err != nil {
		return nil, fmt.Errorf("%s: select %q: %w", s.dialect.name, s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns: %w", s.dialect.name, err)
	}
	names := make([]string, len(cols))
	present := make(map[string]bool, len(cols))
	for i, c := range cols {
		names[i] = strings.ToLower(c)
		present[names[i]] = true
	}
	for _, req := range models.RequiredColumns {
		if !present[req] {
			return nil, fmt.Errorf("%s: %q.%s: %w", s.dialect.name, s.table, req, ErrMissingColumn)
		}
	}
	if !present[models.ColGender] {
		s.genderOnce.Do(func() {
			s.logger.Warn("[storage] %q has no %s column: author gender is absent for every record and the gender filter offers no values",
				s.table, models.ColGender)
		})
	}

	var raw []models.RawRecord
	row := 0
	for rows.Next() {
		row++
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan row %d: %w", s.dialect.name, row, err)
		}

		rec := models.RawRecord{Row: row, Values: make(map[string]any, len(names))}
		for i, name := range names {
			rec.Values[name] = values[i]
		}
		raw = append(raw, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate rows: %w", s.dialect.name, err)
	}
	return raw, nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
