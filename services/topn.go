package services

import (
	"slices"

	"book-trends/models"
)

// TopColumns is the projection of the top-N table, with display labels.
var TopColumns = []models.Column{
	{Key: models.ColPosition, Label: "Posição"},
	{Key: models.ColTitle, Label: "Título"},
	{Key: models.ColAuthor, Label: "Autor"},
	{Key: models.ColPrice, Label: "Preço"},
	{Key: models.ColNationality, Label: "Nacionalidade do autor"},
	{Key: models.ColGenre, Label: "Gênero"},
	{Key: models.ColPages, Label: "Páginas"},
	{Key: models.ColYear, Label: "Ano de publicação"},
}

// TopN returns the records ranked 1..n in ascending rank order. Fewer rows
// are returned when the subset does not hold all of them.
func TopN(records []models.Record, n int) models.TopTable {
	rows := make([]models.Record, 0, n)
	for _, r := range records {
		if r.RankPosition < n+1 {
			rows = append(rows, r)
		}
	}
	slices.SortStableFunc(rows, func(a, b models.Record) int {
		return a.RankPosition - b.RankPosition
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return models.TopTable{
		Columns: slices.Clone(TopColumns),
		Rows:    rows,
	}
}
