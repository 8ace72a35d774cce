package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Chart identifiers shared by the report builder and every presenter.
const (
	ChartPositionByNationality = "position_by_nationality"
	ChartCountByNationality    = "count_by_nationality"
	ChartPositionByGenre       = "position_by_genre"
	ChartCountByGenre          = "count_by_genre"
	ChartPriceByNationality    = "price_by_nationality"
	ChartPriceByGenre          = "price_by_genre"
	ChartPriceByPages          = "price_by_pages"
	ChartPriceByYear           = "price_by_year"
	ChartPriceHistogram        = "price_histogram"
	ChartPriceBox              = "price_box"
)

// Dashboard holds the user-facing texts of the dashboard.
type Dashboard struct {
	Title        string            `yaml:"title"`
	Subtitle     string            `yaml:"subtitle"`
	UnknownLabel string            `yaml:"unknown_label"`
	EmptyMarker  string            `yaml:"empty_marker"`
	Charts       map[string]string `yaml:"charts"`
}

// DefaultDashboard returns the built-in texts.
func DefaultDashboard() Dashboard {
	return Dashboard{
		Title:        "Book Trends",
		Subtitle:     "O Book Trends é uma aplicação que coleta dados dos 100 livros mais vendidos do dia na Estante Virtual.",
		UnknownLabel: "Não informado",
		EmptyMarker:  "—",
		Charts: map[string]string{
			ChartPositionByNationality: "Posição média por nacionalidade do autor",
			ChartCountByNationality:    "Quantidade de livros por nacionalidade do autor",
			ChartPositionByGenre:       "Posição média por gênero da obra",
			ChartCountByGenre:          "Quantidade de livros por gênero da obra",
			ChartPriceByNationality:    "Preço médio por nacionalidade do autor",
			ChartPriceByGenre:          "Preço médio por gênero da obra",
			ChartPriceByPages:          "Preço médio por número de páginas do livro",
			ChartPriceByYear:           "Preço médio por ano de publicação",
			ChartPriceHistogram:        "Distribuição de preço",
			ChartPriceBox:              "Preço (box plot)",
		},
	}
}

// ChartTitle returns the configured title for a chart id, or the id itself.
func (d Dashboard) ChartTitle(id string) string {
	if t, ok := d.Charts[id]; ok && t != "" {
		return t
	}
	return id
}

// MergeFile overlays the non-empty values of a YAML file onto d.
func (d *Dashboard) MergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read dashboard file %q: %w", path, err)
	}
	return d.Merge(raw)
}

// Merge overlays the non-empty values of a YAML document onto d.
func (d *Dashboard) Merge(raw []byte) error {
	var override Dashboard
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return fmt.Errorf("config: parse dashboard yaml: %w", err)
	}

	if override.Title != "" {
		d.Title = override.Title
	}
	if override.Subtitle != "" {
		d.Subtitle = override.Subtitle
	}
	if override.UnknownLabel != "" {
		d.UnknownLabel = override.UnknownLabel
	}
	if override.EmptyMarker != "" {
		d.EmptyMarker = override.EmptyMarker
	}
	if d.Charts == nil {
		d.Charts = make(map[string]string, len(override.Charts))
	}
	for id, title := range override.Charts {
		if title != "" {
			d.Charts[id] = title
		}
	}
	return nil
}
