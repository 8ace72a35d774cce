package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of collection dates.
const DateLayout = "2006-01-02"

// Source column names of the consolidado table.
const (
	ColDate        = "dt"
	ColPosition    = "posicao"
	ColTitle       = "titulo"
	ColAuthor      = "autor"
	ColPrice       = "preco"
	ColNationality = "nacionalidade_autor"
	ColGender      = "genero_autor"
	ColGenre       = "genero"
	ColPages       = "paginas"
	ColYear        = "ano_publicacao"
)

// RequiredColumns must be present in the source table. ColGender is optional:
// older snapshots were collected without it.
var RequiredColumns = []string{
	ColDate, ColPosition, ColTitle, ColAuthor, ColPrice,
	ColNationality, ColGenre, ColPages, ColYear,
}

// ExportColumns is the column order used by CSV and Parquet exports.
var ExportColumns = []string{
	ColDate, ColPosition, ColTitle, ColAuthor, ColPrice,
	ColNationality, ColGender, ColGenre, ColPages, ColYear,
}

// RawRecord is one row exactly as scanned from the source, keyed by column
// name. Values keep whatever dynamic type the driver produced.
type RawRecord struct {
	Row    int
	Values map[string]any
}

// Record is one ranked listing on a given collection date. Empty categorical
// fields mean the value is absent in the source.
type Record struct {
	CollectionDate    time.Time
	RankPosition      int
	Title             string
	Author            string
	Price             decimal.Decimal
	AuthorNationality string
	AuthorGender      string
	Genre             string
	PageCount         int
	PublicationYear   int
}

// DateKey returns the collection date in DateLayout.
func (r Record) DateKey() string {
	return r.CollectionDate.Format(DateLayout)
}

type recordJSON struct {
	Date        string          `json:"dt"`
	Position    int             `json:"posicao"`
	Title       string          `json:"titulo"`
	Author      string          `json:"autor"`
	Price       decimal.Decimal `json:"preco"`
	Nationality *string         `json:"nacionalidade_autor"`
	Gender      *string         `json:"genero_autor"`
	Genre       *string         `json:"genero"`
	Pages       int             `json:"paginas"`
	Year        int             `json:"ano_publicacao"`
}

// MarshalJSON uses the source column names and emits absent categories as null.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Date:        r.DateKey(),
		Position:    r.RankPosition,
		Title:       r.Title,
		Author:      r.Author,
		Price:       r.Price,
		Nationality: nullable(r.AuthorNationality),
		Gender:      nullable(r.AuthorGender),
		Genre:       nullable(r.Genre),
		Pages:       r.PageCount,
		Year:        r.PublicationYear,
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
