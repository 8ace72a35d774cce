package services

import (
	"slices"
	"time"

	"book-trends/models"
)

// Options lists the distinct values available for each selection control.
// Dates are most recent first; genders and nationalities keep the order in
// which they first appear in the set. Absent values are never offered.
func Options(set *models.RecordSet) models.FilterOptions {
	opts := models.FilterOptions{
		Dates:         []string{},
		Genders:       []string{},
		Nationalities: []string{},
	}

	dates := distinctDates(set)
	for _, d := range dates {
		opts.Dates = append(opts.Dates, d.Format(models.DateLayout))
	}

	seenGender := make(map[string]struct{})
	seenNat := make(map[string]struct{})
	for i := 0; i < set.Len(); i++ {
		r := set.At(i)
		if r.AuthorGender != "" {
			if _, ok := seenGender[r.AuthorGender]; !ok {
				seenGender[r.AuthorGender] = struct{}{}
				opts.Genders = append(opts.Genders, r.AuthorGender)
			}
		}
		if r.AuthorNationality != "" {
			if _, ok := seenNat[r.AuthorNationality]; !ok {
				seenNat[r.AuthorNationality] = struct{}{}
				opts.Nationalities = append(opts.Nationalities, r.AuthorNationality)
			}
		}
	}
	return opts
}

// DefaultDate is the second most recent collection date, so the dashboard
// opens on the last complete snapshot. With a single date that date is
// used; an empty set has no default.
func DefaultDate(set *models.RecordSet) *time.Time {
	dates := distinctDates(set)
	switch len(dates) {
	case 0:
		return nil
	case 1:
		return models.DateOpt(dates[0])
	default:
		return models.DateOpt(dates[1])
	}
}

// Resolve fills an unset date with DefaultDate. Other fields are left as is.
func Resolve(set *models.RecordSet, c models.Criteria) models.Criteria {
	if c.Date == nil {
		c.Date = DefaultDate(set)
	} else {
		c.Date = models.DateOpt(*c.Date)
	}
	return c
}

// Apply returns the records matching every selected criterion, in source
// order. An unresolved date selects nothing.
func Apply(set *models.RecordSet, c models.Criteria) []models.Record {
	out := make([]models.Record, 0)
	for i := 0; i < set.Len(); i++ {
		r := set.At(i)
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func distinctDates(set *models.RecordSet) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for i := 0; i < set.Len(); i++ {
		d := set.At(i).CollectionDate
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int {
		return b.Compare(a)
	})
	return dates
}
