package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"book-trends/models"
)

// CSVWriter writes records to CSV using the source column names as header.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVFileWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVFileWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w, err := newCSVWriter(f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// NewCSVWriter writes to w, which the caller keeps owning.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	return newCSVWriter(w, nil)
}

func newCSVWriter(w io.Writer, closer io.Closer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.ExportColumns); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	cw.Flush()
	return &CSVWriter{closer: closer, writer: cw}, nil
}

// Write appends one row per record.
func (c *CSVWriter) Write(records []models.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		if err := c.writer.Write(csvRow(r)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file, if the writer owns one.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if c.closer != nil {
		return c.closer.Close()
	}
	return c.writer.Error()
}

func csvRow(r models.Record) []string {
	optInt := func(v int) string {
		if v == 0 {
			return ""
		}
		return strconv.Itoa(v)
	}
	return []string{
		r.DateKey(),
		strconv.Itoa(r.RankPosition),
		r.Title,
		r.Author,
		r.Price.StringFixed(2),
		r.AuthorNationality,
		r.AuthorGender,
		r.Genre,
		optInt(r.PageCount),
		optInt(r.PublicationYear),
	}
}
