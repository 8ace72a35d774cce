package storage

import (
	"context"
	"errors"

	"book-trends/models"
)

var (
	// ErrSourceNotFound means the configured database file does not exist.
	ErrSourceNotFound = errors.New("data source not found")
	// ErrTableNotFound means the source has no table with the configured name.
	ErrTableNotFound = errors.New("table not found")
	// ErrMissingColumn means the source table lacks a required column.
	ErrMissingColumn = errors.New("required column missing")
)

// RecordSource loads the full record set. Every call reads the source
// again; the returned set is immutable.
type RecordSource interface {
	Load(ctx context.Context) (*models.RecordSet, error)
	Close() error
}

// RecordWriter is the interface every export format satisfies. Write is
// called once with the complete subset.
type RecordWriter interface {
	Write(records []models.Record) error
	Close() error
}
