package models

import (
	"fmt"
	"strings"
	"time"
)

// Criteria is a filter selection. A nil field means "not selected"; Date is
// required by the report and falls back to the default date when nil.
type Criteria struct {
	Date        *time.Time
	Gender      *string
	Nationality *string
}

// StringOpt returns a pointer to s, or nil when s is blank.
func StringOpt(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// DateOpt returns a pointer to t truncated to its calendar day in UTC.
func DateOpt(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// ParseDate parses a DateLayout string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("models: parse date %q: %w", s, err)
	}
	return t, nil
}

// Key renders the criteria as a stable string, used for cache keys and URLs.
func (c Criteria) Key() string {
	var b strings.Builder
	b.WriteString("date=")
	if c.Date != nil {
		b.WriteString(c.Date.Format(DateLayout))
	}
	b.WriteString("|gender=")
	if c.Gender != nil {
		b.WriteString(*c.Gender)
	}
	b.WriteString("|nationality=")
	if c.Nationality != nil {
		b.WriteString(*c.Nationality)
	}
	return b.String()
}

// Matches reports whether r satisfies every selected criterion. An unset
// Date matches nothing; callers resolve the default first.
func (c Criteria) Matches(r Record) bool {
	if c.Date == nil || !r.CollectionDate.Equal(*c.Date) {
		return false
	}
	if c.Gender != nil && r.AuthorGender != *c.Gender {
		return false
	}
	if c.Nationality != nil && r.AuthorNationality != *c.Nationality {
		return false
	}
	return true
}
