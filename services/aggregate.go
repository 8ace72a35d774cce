package services

import (
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"book-trends/models"
)

// Dimension is a grouping key over records. key reports false for records
// whose value is unknown and must stay out of every group.
type Dimension struct {
	Column string
	key    func(r models.Record, unknown string) (string, bool)
}

var (
	DimNationality = Dimension{Column: models.ColNationality, key: func(r models.Record, unknown string) (string, bool) {
		return categoryKey(r.AuthorNationality, unknown)
	}}
	DimGenre = Dimension{Column: models.ColGenre, key: func(r models.Record, unknown string) (string, bool) {
		return categoryKey(r.Genre, unknown)
	}}
	DimPages = Dimension{Column: models.ColPages, key: func(r models.Record, _ string) (string, bool) {
		return intKey(r.PageCount)
	}}
	DimYear = Dimension{Column: models.ColYear, key: func(r models.Record, _ string) (string, bool) {
		return intKey(r.PublicationYear)
	}}
)

// Absent categories are grouped under the unknown label so that group
// counts always add up to the subset size.
func categoryKey(v, unknown string) (string, bool) {
	if v == "" {
		return unknown, true
	}
	return v, true
}

func intKey(v int) (string, bool) {
	if v == 0 {
		return "", false
	}
	return strconv.Itoa(v), true
}

type groupAcc struct {
	key      string
	count    int
	rankSum  int64
	priceSum decimal.Decimal
}

// Aggregator computes grouped (key, value) series over a filtered subset.
type Aggregator struct {
	unknown string
}

// NewAggregator creates an Aggregator that files absent categories under unknownLabel.
func NewAggregator(unknownLabel string) *Aggregator {
	return &Aggregator{unknown: unknownLabel}
}

// groups accumulates records per key in first-encountered key order.
func (a *Aggregator) groups(records []models.Record, dim Dimension) []*groupAcc {
	index := make(map[string]*groupAcc)
	var order []*groupAcc
	for _, r := range records {
		k, ok := dim.key(r, a.unknown)
		if !ok {
			continue
		}
		g, found := index[k]
		if !found {
			g = &groupAcc{key: k, priceSum: decimal.Zero}
			index[k] = g
			order = append(order, g)
		}
		g.count++
		g.rankSum += int64(r.RankPosition)
		g.priceSum = g.priceSum.Add(r.Price)
	}
	return order
}

// MeanPositionBy returns the mean rank per group, best (lowest) first.
func (a *Aggregator) MeanPositionBy(records []models.Record, dim Dimension) []models.Point {
	groups := a.groups(records, dim)
	points := make([]models.Point, 0, len(groups))
	for _, g := range groups {
		points = append(points, models.Point{
			Key:   g.key,
			Value: float64(g.rankSum) / float64(g.count),
			Count: g.count,
		})
	}
	sortPoints(points, true)
	return points
}

// CountBy returns the group sizes, largest first.
func (a *Aggregator) CountBy(records []models.Record, dim Dimension) []models.Point {
	groups := a.groups(records, dim)
	points := make([]models.Point, 0, len(groups))
	for _, g := range groups {
		points = append(points, models.Point{
			Key:   g.key,
			Value: float64(g.count),
			Count: g.count,
		})
	}
	sortPoints(points, false)
	return points
}

// MeanPriceBy returns the mean price per group, most expensive first.
func (a *Aggregator) MeanPriceBy(records []models.Record, dim Dimension) []models.Point {
	groups := a.groups(records, dim)
	points := make([]models.Point, 0, len(groups))
	for _, g := range groups {
		mean := g.priceSum.Div(decimal.NewFromInt(int64(g.count)))
		points = append(points, models.Point{
			Key:   g.key,
			Value: mean.InexactFloat64(),
			Count: g.count,
		})
	}
	sortPoints(points, false)
	return points
}

// sortPoints orders by value; equal values keep first-encountered order.
func sortPoints(points []models.Point, ascending bool) {
	slices.SortStableFunc(points, func(x, y models.Point) int {
		switch {
		case x.Value == y.Value:
			return 0
		case (x.Value < y.Value) == ascending:
			return -1
		default:
			return 1
		}
	})
}
