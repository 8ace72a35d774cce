package storage

import (
	"context"
	"fmt"
	"sync"

	"book-trends/models"
	"book-trends/utils"
)

// Loader hands out the current record set. With reload enabled every Get
// queries the source again, so each render sees the table as it is now;
// otherwise the set loaded at start-up is reused.
type Loader struct {
	src    RecordSource
	reload bool
	logger *utils.Logger

	mu  sync.RWMutex
	set *models.RecordSet
}

// NewLoader performs the initial load. Failing it is fatal for callers: the
// dashboard cannot start without its table.
func NewLoader(ctx context.Context, src RecordSource, reload bool, logger *utils.Logger) (*Loader, error) {
	set, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: initial load: %w", err)
	}
	if set.Len() == 0 {
		logger.Warn("[storage] Source table is empty; every report will be empty")
	}
	logger.Info("[storage] Loaded %d records (version %s)", set.Len(), set.Version())
	return &Loader{src: src, reload: reload, logger: logger, set: set}, nil
}

// Get returns the record set for one render.
func (l *Loader) Get(ctx context.Context) (*models.RecordSet, error) {
	if !l.reload {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return l.set, nil
	}

	set, err := l.src.Load(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if set.Fingerprint() != l.set.Fingerprint() {
		l.logger.Info("[storage] Source changed: %s → %s (%d records)", l.set.Version(), set.Version(), set.Len())
	}
	l.set = set
	l.mu.Unlock()
	return set, nil
}

// Close closes the underlying source.
func (l *Loader) Close() error {
	return l.src.Close()
}
