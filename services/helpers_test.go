package services

import (
	"time"

	"github.com/shopspring/decimal"

	"book-trends/models"
	"book-trends/utils"
)

func newTestLogger() *utils.Logger { return utils.NopLogger() }

var (
	day1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	day3 = time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
)

type bookOpt func(*models.Record)

func withGender(g string) bookOpt      { return func(r *models.Record) { r.AuthorGender = g } }
func withNationality(n string) bookOpt { return func(r *models.Record) { r.AuthorNationality = n } }
func withGenre(g string) bookOpt       { return func(r *models.Record) { r.Genre = g } }
func withAuthor(a string) bookOpt      { return func(r *models.Record) { r.Author = a } }
func withPages(p int) bookOpt          { return func(r *models.Record) { r.PageCount = p } }
func withYear(y int) bookOpt           { return func(r *models.Record) { r.PublicationYear = y } }

// book builds a record with sensible defaults for the fields a test does not care about.
func book(date time.Time, rank int, price string, opts ...bookOpt) models.Record {
	r := models.Record{
		CollectionDate:    date,
		RankPosition:      rank,
		Title:             "Livro",
		Author:            "Autor",
		Price:             decimal.RequireFromString(price),
		AuthorNationality: "Brasil",
		AuthorGender:      "Feminino",
		Genre:             "Romance",
		PageCount:         200,
		PublicationYear:   2020,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func ptr[T any](v T) *T { return &v }
