package services

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"book-trends/config"
	"book-trends/models"
)

// Printer renders a Report as a terminal report.
type Printer struct {
	w    io.Writer
	dash config.Dashboard
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, dash config.Dashboard) *Printer {
	return &Printer{w: w, dash: dash}
}

// Print writes every section of r.
func (p *Printer) Print(r *models.Report) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)
	title := color.New(color.FgMagenta, color.Bold)
	section := color.New(color.FgYellow, color.Bold)

	title.Fprintf(p.w, "\n%s\n  %s\n%s\n\n", sep, strings.ToUpper(p.dash.Title), sep)

	fmt.Fprintf(p.w, "  Data de coleta : %s\n", p.orEmpty(r.Criteria.Date))
	fmt.Fprintf(p.w, "  Gênero (autor) : %s\n", p.orAll(r.Criteria.Gender))
	fmt.Fprintf(p.w, "  Nacionalidade  : %s\n", p.orAll(r.Criteria.Nationality))
	fmt.Fprintf(p.w, "  Registros      : %d\n\n", r.Summary.Count)

	section.Fprintf(p.w, "  Resumo\n")
	fmt.Fprintf(p.w, "  %s\n", thin)
	for _, m := range SummaryMetrics(r.Summary, p.dash.EmptyMarker) {
		fmt.Fprintf(p.w, "  %-34s %s\n", m.Label, m.Value)
	}
	fmt.Fprintln(p.w)

	section.Fprintf(p.w, "  Lista com os %d livros mais comprados\n", len(r.Top.Rows))
	fmt.Fprintf(p.w, "  %s\n", thin)
	if len(r.Top.Rows) == 0 {
		fmt.Fprintf(p.w, "  Nenhum livro para os filtros selecionados\n")
	} else {
		table := tablewriter.NewWriter(p.w)
		headers := make([]string, 0, len(r.Top.Columns))
		for _, c := range r.Top.Columns {
			headers = append(headers, c.Label)
		}
		table.SetHeader(headers)
		for _, row := range r.Top.Rows {
			table.Append(TopRowCells(row, p.dash.UnknownLabel))
		}
		table.Render()
	}
	fmt.Fprintln(p.w)

	for _, s := range r.Series {
		section.Fprintf(p.w, "  %s\n", s.Title)
		fmt.Fprintf(p.w, "  %s\n", thin)
		p.printSeries(s)
		fmt.Fprintln(p.w)
	}

	if r.PriceBox != nil {
		b := r.PriceBox
		section.Fprintf(p.w, "  %s\n", b.Title)
		fmt.Fprintf(p.w, "  %s\n", thin)
		fmt.Fprintf(p.w, "  min %.2f | Q1 %.2f | mediana %.2f | Q3 %.2f | max %.2f | outliers %d\n\n",
			b.Min, b.Q1, b.Median, b.Q3, b.Max, len(b.Outliers))
	}

	title.Fprintf(p.w, "%s\n\n", sep)
}

func (p *Printer) printSeries(s models.Series) {
	if len(s.Points) == 0 {
		fmt.Fprintf(p.w, "  Sem dados\n")
		return
	}
	max := 0.0
	for _, pt := range s.Points {
		if pt.Value > max {
			max = pt.Value
		}
	}
	for _, pt := range s.Points {
		width := 0
		if max > 0 {
			width = int(pt.Value / max * 30)
		}
		fmt.Fprintf(p.w, "  %-28s %s %s\n", truncate(pt.Key, 28), strings.Repeat("█", width), formatValue(s.Measure, pt.Value))
	}
}

func (p *Printer) orEmpty(s *string) string {
	if s == nil {
		return p.dash.EmptyMarker
	}
	return *s
}

func (p *Printer) orAll(s *string) string {
	if s == nil {
		return "(todos)"
	}
	return *s
}

// Metric is one labelled summary value, already formatted for display.
type Metric struct {
	Label string
	Value string
}

// SummaryMetrics formats the six dashboard metrics. Missing values render as empty.
func SummaryMetrics(s models.Summary, empty string) []Metric {
	price := empty
	if s.MeanPrice != nil {
		price = s.MeanPrice.StringFixed(2)
	}
	pages := empty
	if s.MeanPages != nil {
		pages = strconv.FormatInt(*s.MeanPages, 10)
	}
	latest := empty
	if s.LatestYear != nil {
		latest = strconv.Itoa(*s.LatestYear)
	}
	return []Metric{
		{"Preço de venda por livro", price},
		{"Média de páginas por livro", pages},
		{"Total de anos de publicação", strconv.Itoa(s.DistinctYears)},
		{"Total de autores", strconv.Itoa(s.DistinctAuthors)},
		{"Total de nacionalidades", strconv.Itoa(s.DistinctNationalities)},
		{"Ano de publicação mais recente", latest},
	}
}

// TopRowCells projects a record onto the TopColumns as display strings.
func TopRowCells(r models.Record, unknown string) []string {
	orUnknown := func(s string) string {
		if s == "" {
			return unknown
		}
		return s
	}
	pages, year := "", ""
	if r.PageCount > 0 {
		pages = strconv.Itoa(r.PageCount)
	}
	if r.PublicationYear != 0 {
		year = strconv.Itoa(r.PublicationYear)
	}
	return []string{
		strconv.Itoa(r.RankPosition),
		r.Title,
		r.Author,
		r.Price.StringFixed(2),
		orUnknown(r.AuthorNationality),
		orUnknown(r.Genre),
		pages,
		year,
	}
}

func formatValue(measure string, v float64) string {
	switch measure {
	case "count":
		return strconv.FormatFloat(v, 'f', 0, 64)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
