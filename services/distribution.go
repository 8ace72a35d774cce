package services

import (
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"book-trends/models"
)

// tukeyK is the fence multiplier of the box plot.
const tukeyK = 1.5

// Prices extracts the prices of records as floats for distribution views.
func Prices(records []models.Record) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		out = append(out, r.Price.InexactFloat64())
	}
	return out
}

// SturgesBins is ceil(log2 n) + 1, the default bin count.
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// Histogram bins values into equal-width buckets spanning [min, max]. A
// non-positive bins picks SturgesBins. Every value lands in exactly one bin.
func Histogram(values []float64, bins int) []models.Bin {
	if len(values) == 0 {
		return []models.Bin{}
	}
	if bins <= 0 {
		bins = SturgesBins(len(values))
	}

	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		return []models.Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]models.Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// BoxPlot computes the five-number summary of values with fences at 1.5×IQR.
// Whiskers reach the most extreme values inside the fences; everything
// beyond them is an outlier. Returns nil for no values.
func BoxPlot(values []float64) *models.BoxPlot {
	if len(values) == 0 {
		return nil
	}

	data := stats.Float64Data(values)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)

	b := &models.BoxPlot{N: len(values), Min: min, Max: max, Outliers: []float64{}}
	if len(values) == 1 {
		b.Q1, b.Median, b.Q3 = min, min, min
	} else {
		q, err := stats.Quartile(data)
		if err != nil {
			return nil
		}
		b.Q1, b.Median, b.Q3 = q.Q1, q.Q2, q.Q3
	}

	b.IQR = b.Q3 - b.Q1
	b.LowerFence = b.Q1 - tukeyK*b.IQR
	b.UpperFence = b.Q3 + tukeyK*b.IQR

	b.WhiskerLow, b.WhiskerHigh = b.Median, b.Median
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	first := true
	for _, v := range sorted {
		if v < b.LowerFence || v > b.UpperFence {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		if first {
			b.WhiskerLow = v
			first = false
		}
		b.WhiskerHigh = v
	}
	return b
}
