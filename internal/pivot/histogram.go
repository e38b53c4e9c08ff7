package pivot

import (
	"cmp"
	"fmt"
	"slices"

	"sales-dashboard/internal/models"
)

// DefaultBinWidth is the age bucket width used by the dashboard histogram.
const DefaultBinWidth = 5

// Histogram buckets ages by floor(age/width)*width, labelled "start-end".
// Bins come back in ascending order of their start.
func Histogram(ages []int, width int) []models.HistogramBin {
	if width <= 0 {
		width = DefaultBinWidth
	}

	counts := make(map[int]int)
	for _, age := range ages {
		counts[binStart(age, width)]++
	}

	bins := make([]models.HistogramBin, 0, len(counts))
	for start, count := range counts {
		bins = append(bins, models.HistogramBin{
			Label: fmt.Sprintf("%d-%d", start, start+width-1),
			Start: start,
			Count: count,
		})
	}
	slices.SortFunc(bins, func(a, b models.HistogramBin) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return bins
}

// binStart floors toward negative infinity so -1 lands in [-5,-1], not [0,4].
func binStart(age, width int) int {
	q := age / width
	if age%width != 0 && age < 0 {
		q--
	}
	return q * width
}
