// Package locale formats dashboard numbers and labels for Japanese readers.
package locale

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/pivot"
)

var printer = message.NewPrinter(language.Japanese)

// FormatYen renders whole yen with grouping, e.g. ¥1,234,567.
func FormatYen(amount float64) string {
	return printer.Sprintf("¥%d", int64(math.Round(amount)))
}

// FormatCount renders a head count, e.g. 1,234人.
func FormatCount(n int) string {
	return printer.Sprintf("%d人", n)
}

// FormatScore renders a satisfaction average with one decimal.
func FormatScore(score float64) string {
	return printer.Sprintf("%.1f", score)
}

// FormatNumber groups an integer without a unit.
func FormatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatCell renders a pivot cell by the matrix measure.
func FormatCell(m models.Measure, v float64) string {
	if m == models.MeasureCount {
		return FormatNumber(int(math.Round(v)))
	}
	return FormatYen(v)
}

var matrixTitles = map[string]string{
	pivot.CategoryRegionName:  "カテゴリ×地域",
	pivot.AgeSatisfactionName: "年齢層×満足度",
	pivot.MonthCategoryName:   "月別×カテゴリ",
}

var keyColumnLabels = map[string]string{
	"category": "カテゴリ",
	"ageGroup": "年齢層",
	"month":    "月",
}

func MatrixTitle(name string) string {
	if title, ok := matrixTitles[name]; ok {
		return title
	}
	return name
}

// ColumnLabel names a header cell of m.
func ColumnLabel(m models.PivotMatrix, column string) string {
	switch {
	case column == m.KeyColumn:
		if label, ok := keyColumnLabels[column]; ok {
			return label
		}
		return column
	case column == models.TotalColumn:
		return "合計"
	case m.Name == pivot.AgeSatisfactionName:
		return "満足度" + column
	default:
		return column
	}
}
