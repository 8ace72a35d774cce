package services

import (
	"book-trends/config"
	"book-trends/models"
	"book-trends/utils"
)

// ReportOptions tunes report generation.
type ReportOptions struct {
	TopN          int
	HistogramBins int
	Dashboard     config.Dashboard
}

// ReportService turns a record set and a filter selection into a Report.
type ReportService struct {
	logger *utils.Logger
	opts   ReportOptions
	agg    *Aggregator
}

func NewReportService(logger *utils.Logger, opts ReportOptions) *ReportService {
	if opts.TopN < 1 {
		opts.TopN = 5
	}
	if opts.Dashboard.Charts == nil {
		opts.Dashboard = config.DefaultDashboard()
	}
	return &ReportService{
		logger: logger,
		opts:   opts,
		agg:    NewAggregator(opts.Dashboard.UnknownLabel),
	}
}

// Generate builds the report for criteria over set. It never fails: an empty
// or unmatched selection yields empty series and nil metrics. The set is
// only read.
func (s *ReportService) Generate(set *models.RecordSet, c models.Criteria) *models.Report {
	c = Resolve(set, c)
	subset := Apply(set, c)

	s.logger.Debug("[report] %s → %d of %d records", c.Key(), len(subset), set.Len())

	dash := s.opts.Dashboard
	series := func(id, kind string, dim Dimension, measure string, points []models.Point) models.Series {
		return models.Series{
			ID:        id,
			Title:     dash.ChartTitle(id),
			Kind:      kind,
			Dimension: dim.Column,
			Measure:   measure,
			Points:    points,
		}
	}

	prices := Prices(subset)
	box := BoxPlot(prices)
	if box != nil {
		box.Title = dash.ChartTitle(config.ChartPriceBox)
	}

	return &models.Report{
		DatasetVersion: set.Version(),
		Criteria:       selected(c),
		Options:        Options(set),
		Records:        subset,
		Summary:        Summarize(subset),
		Top:            TopN(subset, s.opts.TopN),
		Series: []models.Series{
			series(config.ChartPositionByNationality, models.KindBar, DimNationality, models.ColPosition,
				s.agg.MeanPositionBy(subset, DimNationality)),
			series(config.ChartCountByNationality, models.KindPie, DimNationality, "count",
				s.agg.CountBy(subset, DimNationality)),
			series(config.ChartPositionByGenre, models.KindBar, DimGenre, models.ColPosition,
				s.agg.MeanPositionBy(subset, DimGenre)),
			series(config.ChartCountByGenre, models.KindPie, DimGenre, "count",
				s.agg.CountBy(subset, DimGenre)),
			series(config.ChartPriceByNationality, models.KindBar, DimNationality, models.ColPrice,
				s.agg.MeanPriceBy(subset, DimNationality)),
			series(config.ChartPriceByGenre, models.KindBar, DimGenre, models.ColPrice,
				s.agg.MeanPriceBy(subset, DimGenre)),
			series(config.ChartPriceByPages, models.KindBar, DimPages, models.ColPrice,
				s.agg.MeanPriceBy(subset, DimPages)),
			series(config.ChartPriceByYear, models.KindBar, DimYear, models.ColPrice,
				s.agg.MeanPriceBy(subset, DimYear)),
		},
		PriceHistogram: models.Histogram{
			Title: dash.ChartTitle(config.ChartPriceHistogram),
			Bins:  Histogram(prices, s.opts.HistogramBins),
		},
		PriceBox: box,
	}
}

func selected(c models.Criteria) models.SelectedCriteria {
	var out models.SelectedCriteria
	if c.Date != nil {
		d := c.Date.Format(models.DateLayout)
		out.Date = &d
	}
	out.Gender = c.Gender
	out.Nationality = c.Nationality
	return out
}
