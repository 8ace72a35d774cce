package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"

	"book-trends/config"
	"book-trends/models"
	"book-trends/services"
)

type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

type chartSlot struct {
	ID    string
	Title string
	Empty bool
}

type section struct {
	Title  string
	Charts []chartSlot
}

// chartData is what the dashboard script needs to draw one chart.
type chartData struct {
	Kind    string          `json:"kind"`
	Title   string          `json:"title"`
	Labels  []string        `json:"labels,omitempty"`
	Values  []float64       `json:"values,omitempty"`
	Centers []float64       `json:"centers,omitempty"`
	Widths  []float64       `json:"widths,omitempty"`
	Box     *models.BoxPlot `json:"box,omitempty"`
}

type dashboardView struct {
	Title          string
	Subtitle       string
	DatasetVersion string
	RecordCount    int
	Dates          []selectOption
	Genders        []selectOption
	Nationalities  []selectOption
	Metrics        []services.Metric
	TopHeaders     []string
	TopRows        [][]string
	Sections       []section
	Charts         template.JS
	ReportURL      string
	CSVURL         string
	ParquetURL     string
	SnapshotURL    string
}

var dashboardSections = []struct {
	title string
	ids   []string
}{
	{"Preferências por nacionalidade do autor", []string{config.ChartPositionByNationality, config.ChartCountByNationality}},
	{"Preferências por gênero da obra", []string{config.ChartPositionByGenre, config.ChartCountByGenre}},
	{"Distribuição de preço", []string{config.ChartPriceHistogram, config.ChartPriceBox}},
	{"Preço médio por nacionalidade, gênero, número de páginas e ano de publicação", []string{
		config.ChartPriceByNationality, config.ChartPriceByGenre, config.ChartPriceByPages, config.ChartPriceByYear,
	}},
}

func newDashboardView(dash config.Dashboard, rep *models.Report, query url.Values) (*dashboardView, error) {
	charts := chartsOf(dash, rep)
	raw, err := json.Marshal(charts)
	if err != nil {
		return nil, fmt.Errorf("server: marshal charts: %w", err)
	}

	v := &dashboardView{
		Title:          dash.Title,
		Subtitle:       dash.Subtitle,
		DatasetVersion: rep.DatasetVersion,
		RecordCount:    rep.Summary.Count,
		Dates:          selectOptions(rep.Options.Dates, rep.Criteria.Date, ""),
		Genders:        selectOptions(rep.Options.Genders, rep.Criteria.Gender, "(todos)"),
		Nationalities:  selectOptions(rep.Options.Nationalities, rep.Criteria.Nationality, "(todas)"),
		Metrics:        services.SummaryMetrics(rep.Summary, dash.EmptyMarker),
		Charts:         template.JS(raw),
	}

	for _, c := range rep.Top.Columns {
		v.TopHeaders = append(v.TopHeaders, c.Label)
	}
	for _, r := range rep.Top.Rows {
		v.TopRows = append(v.TopRows, services.TopRowCells(r, dash.UnknownLabel))
	}

	for _, s := range dashboardSections {
		sec := section{Title: s.title}
		for _, id := range s.ids {
			c := charts[id]
			sec.Charts = append(sec.Charts, chartSlot{ID: id, Title: c.Title, Empty: c.empty()})
		}
		v.Sections = append(v.Sections, sec)
	}

	qs := query.Encode()
	if qs != "" {
		qs = "?" + qs
	}
	v.ReportURL = "/api/report" + qs
	v.CSVURL = "/export.csv" + qs
	v.ParquetURL = "/export.parquet" + qs
	v.SnapshotURL = "/snapshot.png" + qs
	return v, nil
}

func (c chartData) empty() bool {
	switch c.Kind {
	case "box":
		return c.Box == nil
	case "histogram":
		return len(c.Centers) == 0
	default:
		return len(c.Values) == 0
	}
}

func chartsOf(dash config.Dashboard, rep *models.Report) map[string]chartData {
	out := make(map[string]chartData, len(rep.Series)+2)
	for _, s := range rep.Series {
		c := chartData{Kind: s.Kind, Title: s.Title, Labels: []string{}, Values: []float64{}}
		for _, p := range s.Points {
			c.Labels = append(c.Labels, p.Key)
			c.Values = append(c.Values, p.Value)
		}
		out[s.ID] = c
	}

	hist := chartData{Kind: "histogram", Title: rep.PriceHistogram.Title, Centers: []float64{}, Values: []float64{}, Widths: []float64{}}
	for _, b := range rep.PriceHistogram.Bins {
		width := b.Upper - b.Lower
		hist.Centers = append(hist.Centers, b.Lower+width/2)
		hist.Widths = append(hist.Widths, width)
		hist.Values = append(hist.Values, float64(b.Count))
	}
	out[config.ChartPriceHistogram] = hist

	out[config.ChartPriceBox] = chartData{Kind: "box", Title: dash.ChartTitle(config.ChartPriceBox), Box: rep.PriceBox}
	return out
}

// selectOptions builds a select control. A non-empty allLabel adds a leading
// "not selected" entry.
func selectOptions(values []string, selected *string, allLabel string) []selectOption {
	out := make([]selectOption, 0, len(values)+1)
	if allLabel != "" {
		out = append(out, selectOption{Value: "", Label: allLabel, Selected: selected == nil})
	}
	for _, v := range values {
		out = append(out, selectOption{Value: v, Label: v, Selected: selected != nil && *selected == v})
	}
	return out
}
