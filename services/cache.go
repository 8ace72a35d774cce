package services

import (
	lru "github.com/hashicorp/golang-lru"

	"book-trends/models"
	"book-trends/utils"
)

// ReportCache memoises reports per (dataset version, resolved criteria).
// The version changes with the data, so a hit is always identical to a
// fresh Generate. Cached reports are shared and must not be mutated.
type ReportCache struct {
	svc    *ReportService
	cache  *lru.Cache
	logger *utils.Logger
}

// NewReportCache wraps svc with an LRU of the given size. Size 0 disables caching.
func NewReportCache(svc *ReportService, size int, logger *utils.Logger) (*ReportCache, error) {
	rc := &ReportCache{svc: svc, logger: logger}
	if size > 0 {
		cache, err := lru.New(size)
		if err != nil {
			return nil, err
		}
		rc.cache = cache
	}
	return rc, nil
}

// Report returns the cached report for (set, c) or generates it.
func (rc *ReportCache) Report(set *models.RecordSet, c models.Criteria) *models.Report {
	if rc.cache == nil {
		return rc.svc.Generate(set, c)
	}

	key := set.Version() + "|" + Resolve(set, c).Key()
	if cached, ok := rc.cache.Get(key); ok {
		rc.logger.Debug("[cache] hit %s", key)
		return cached.(*models.Report)
	}

	report := rc.svc.Generate(set, c)
	rc.cache.Add(key, report)
	return report
}

// Len returns the number of cached reports.
func (rc *ReportCache) Len() int {
	if rc.cache == nil {
		return 0
	}
	return rc.cache.Len()
}
