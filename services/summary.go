package services

import (
	"math"

	"github.com/shopspring/decimal"

	"book-trends/models"
)

// Summarize reduces the filtered subset to the dashboard metrics. On an empty
// subset the means and the latest year stay nil and the counts are zero.
// Unknown page counts and publication years (0) are skipped.
func Summarize(records []models.Record) models.Summary {
	s := models.Summary{Count: len(records)}
	if len(records) == 0 {
		return s
	}

	total := decimal.Zero
	var pageSum, pageN int64
	years := make(map[int]struct{})
	authors := make(map[string]struct{})
	nationalities := make(map[string]struct{})
	latest := 0

	for _, r := range records {
		total = total.Add(r.Price)
		if r.PageCount > 0 {
			pageSum += int64(r.PageCount)
			pageN++
		}
		if r.PublicationYear != 0 {
			years[r.PublicationYear] = struct{}{}
			if latest == 0 || r.PublicationYear > latest {
				latest = r.PublicationYear
			}
		}
		if r.Author != "" {
			authors[r.Author] = struct{}{}
		}
		if r.AuthorNationality != "" {
			nationalities[r.AuthorNationality] = struct{}{}
		}
	}

	mean := total.Div(decimal.NewFromInt(int64(len(records)))).Round(2)
	s.MeanPrice = &mean

	if pageN > 0 {
		pages := int64(math.Round(float64(pageSum) / float64(pageN)))
		s.MeanPages = &pages
	}
	if latest != 0 {
		s.LatestYear = &latest
	}

	s.DistinctYears = len(years)
	s.DistinctAuthors = len(authors)
	s.DistinctNationalities = len(nationalities)
	return s
}
