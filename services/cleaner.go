package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"book-trends/models"
	"book-trends/utils"
)

const maxRankPosition = 100

var (
	// priceRegexp captures the numeric part of a price once separators are normalised
	priceRegexp = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	dateLayouts = []string{
		models.DateLayout,
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
		"02/01/2006",
	}
)

// Cleaner transforms RawRecords scanned from the source into validated Records.
// The first Clean reports at INFO/WARN; later calls (reloads of the same
// source) report at DEBUG.
type Cleaner struct {
	logger  *utils.Logger
	cleaned atomic.Bool
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

type rankKey struct {
	date string
	rank int
}

// Clean normalises raw rows and drops the ones that break record invariants:
// unparseable date, rank outside 1..100, duplicate rank within a date,
// missing or negative price. Missing page counts and publication years are
// kept as 0, meaning unknown.
func (c *Cleaner) Clean(raw []models.RawRecord) []models.Record {
	report, warn := c.logger.Debug, c.logger.Debug
	if !c.cleaned.Swap(true) {
		report, warn = c.logger.Info, c.logger.Warn
	}

	seen := make(map[rankKey]struct{})
	result := make([]models.Record, 0, len(raw))

	for _, r := range raw {
		rec, err := c.cleanOne(r)
		if err != nil {
			warn("[cleaner] Dropping row %d: %v", r.Row, err)
			continue
		}

		key := rankKey{date: rec.DateKey(), rank: rec.RankPosition}
		if _, dup := seen[key]; dup {
			warn("[cleaner] Dropping row %d: duplicate rank %d on %s", r.Row, key.rank, key.date)
			continue
		}
		seen[key] = struct{}{}

		result = append(result, rec)
	}

	report("[cleaner] Cleaned %d → %d records (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

func (c *Cleaner) cleanOne(r models.RawRecord) (models.Record, error) {
	v := r.Values

	date, ok := parseDate(v[models.ColDate])
	if !ok {
		return models.Record{}, fmt.Errorf("unparseable date %v", v[models.ColDate])
	}

	rank, ok := parseInt(v[models.ColPosition])
	if !ok || rank < 1 || rank > maxRankPosition {
		return models.Record{}, fmt.Errorf("rank %v outside 1..%d", v[models.ColPosition], maxRankPosition)
	}

	price, ok := c.parsePrice(v[models.ColPrice])
	if !ok {
		return models.Record{}, fmt.Errorf("unparseable price %v", v[models.ColPrice])
	}
	if price.IsNegative() {
		return models.Record{}, fmt.Errorf("negative price %s", price)
	}

	pages, ok := parseInt(v[models.ColPages])
	if !ok || pages < 0 {
		if v[models.ColPages] != nil {
			c.logger.Debug("[cleaner] Row %d: page count %v treated as unknown", r.Row, v[models.ColPages])
		}
		pages = 0
	}

	year, ok := parseInt(v[models.ColYear])
	if !ok {
		year = 0
	}

	return models.Record{
		CollectionDate:    date,
		RankPosition:      rank,
		Title:             normaliseText(toString(v[models.ColTitle])),
		Author:            normaliseText(toString(v[models.ColAuthor])),
		Price:             price,
		AuthorNationality: normaliseCategory(toString(v[models.ColNationality])),
		AuthorGender:      normaliseCategory(toString(v[models.ColGender])),
		Genre:             normaliseCategory(toString(v[models.ColGenre])),
		PageCount:         pages,
		PublicationYear:   year,
	}, nil
}

// parsePrice accepts numeric driver values and text prices.
// Examples:
//
//	"R$ 39,90"   → 39.90
//	"1.234,56"   → 1234.56
//	"1,234.56"   → 1234.56
//	"39.9"       → 39.9
func (c *Cleaner) parsePrice(raw any) (decimal.Decimal, bool) {
	switch val := raw.(type) {
	case nil:
		return decimal.Decimal{}, false
	case int64:
		return decimal.NewFromInt(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	}

	s := strings.ToLower(strings.TrimSpace(toString(raw)))
	if s == "" {
		return decimal.Decimal{}, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	match := priceRegexp.FindString(s)
	if match == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseDate(raw any) (time.Time, bool) {
	switch val := raw.(type) {
	case time.Time:
		return time.Date(val.Year(), val.Month(), val.Day(), 0, 0, 0, 0, time.UTC), true
	case nil:
		return time.Time{}, false
	}

	s := strings.TrimSpace(toString(raw))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseInt accepts integers, integral floats (as written by dataframe tools
// that promote int columns with nulls to float) and numeric text.
func parseInt(raw any) (int, bool) {
	switch val := raw.(type) {
	case nil:
		return 0, false
	case int64:
		return int(val), true
	case int:
		return val, true
	case int32:
		return int(val), true
	case float64:
		if math.IsNaN(val) || val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	}

	s := strings.TrimSpace(toString(raw))
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
		return int(f), true
	}
	return 0, false
}

func toString(raw any) string {
	switch val := raw.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		if math.IsNaN(val) {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

// normaliseCategory is normaliseText plus the null spellings dataframe
// exports leave behind.
func normaliseCategory(s string) string {
	s = normaliseText(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null", "<na>":
		return ""
	}
	return s
}
