package models

import (
	"github.com/shopspring/decimal"
)

// FilterOptions lists the values each selection control offers.
type FilterOptions struct {
	Dates         []string `json:"dates"`
	Genders       []string `json:"genders"`
	Nationalities []string `json:"nationalities"`
}

// SelectedCriteria is the resolved selection echoed back to presenters.
type SelectedCriteria struct {
	Date        *string `json:"date"`
	Gender      *string `json:"gender"`
	Nationality *string `json:"nationality"`
}

// Summary holds the scalar metrics of the filtered subset. Nil pointers mean
// "no data": the subset was empty.
type Summary struct {
	Count                 int              `json:"count"`
	MeanPrice             *decimal.Decimal `json:"mean_price"`
	MeanPages             *int64           `json:"mean_pages"`
	DistinctYears         int              `json:"distinct_years"`
	DistinctAuthors       int              `json:"distinct_authors"`
	DistinctNationalities int              `json:"distinct_nationalities"`
	LatestYear            *int             `json:"latest_year"`
}

// Column is one projected column of the top-N table.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// TopTable holds the best ranked records of the subset, in rank order.
type TopTable struct {
	Columns []Column `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Chart kinds understood by presenters.
const (
	KindBar = "bar"
	KindPie = "pie"
)

// Point is one (group key, reduced value) pair. Count is the group size.
type Point struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Series is a grouped aggregate driving one chart.
type Series struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Kind      string  `json:"kind"`
	Dimension string  `json:"dimension"`
	Measure   string  `json:"measure"`
	Points    []Point `json:"points"`
}

// Bin is one histogram bucket covering [Lower, Upper); the last bucket is closed.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is a binned frequency distribution.
type Histogram struct {
	Title string `json:"title"`
	Bins  []Bin  `json:"bins"`
}

// BoxPlot is a five-number summary with Tukey fences.
type BoxPlot struct {
	Title       string    `json:"title"`
	N           int       `json:"n"`
	Min         float64   `json:"min"`
	Q1          float64   `json:"q1"`
	Median      float64   `json:"median"`
	Q3          float64   `json:"q3"`
	Max         float64   `json:"max"`
	IQR         float64   `json:"iqr"`
	LowerFence  float64   `json:"lower_fence"`
	UpperFence  float64   `json:"upper_fence"`
	WhiskerLow  float64   `json:"whisker_low"`
	WhiskerHigh float64   `json:"whisker_high"`
	Outliers    []float64 `json:"outliers"`
}

// Report is the complete view model of one render.
type Report struct {
	DatasetVersion string           `json:"dataset_version"`
	Criteria       SelectedCriteria `json:"criteria"`
	Options        FilterOptions    `json:"options"`
	Records        []Record         `json:"-"`
	Summary        Summary          `json:"summary"`
	Top            TopTable         `json:"top"`
	Series         []Series         `json:"series"`
	PriceHistogram Histogram        `json:"price_histogram"`
	PriceBox       *BoxPlot         `json:"price_box"`
}

// SeriesByID returns the series with the given id.
func (r *Report) SeriesByID(id string) (Series, bool) {
	for _, s := range r.Series {
		if s.ID == id {
			return s, true
		}
	}
	return Series{}, false
}
