// Package pivot turns raw sales and customer rows into cross-tab matrices
// and histogram bins. Every builder recomputes from scratch.
package pivot

import (
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const (
	CategoryRegionName  = "category_region"
	AgeSatisfactionName = "age_satisfaction"
	MonthCategoryName   = "month_category"
)

// AgeGroups are the fixed row keys of the age/satisfaction matrix.
var AgeGroups = []string{"18-29", "30-39", "40-49", "50-59", "60+"}

// SatisfactionLevels are the fixed column values of the age/satisfaction matrix.
var SatisfactionLevels = []int{1, 2, 3, 4, 5}

// Build computes all three matrices for one snapshot.
func Build(sales []models.SalesRecord, customers []models.CustomerRecord) models.Matrices {
	return models.Matrices{
		CategoryRegion:  CategoryRegion(sales),
		AgeSatisfaction: AgeSatisfaction(customers),
		MonthCategory:   MonthCategory(sales),
	}
}

// CategoryRegion sums sales amounts per (category, region). Rows and columns
// are the sorted distinct values present in sales.
func CategoryRegion(sales []models.SalesRecord) models.PivotMatrix {
	categories := distinct(sales, func(s models.SalesRecord) string { return s.Category })
	regions := distinct(sales, func(s models.SalesRecord) string { return s.Region })

	sums := make(map[[2]string]decimal.Decimal)
	for _, s := range sales {
		k := [2]string{s.Category, s.Region}
		sums[k] = sums[k].Add(decimal.NewFromFloat(s.Amount))
	}

	rows := make([]models.PivotRow, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, sumRow(category, regions, func(region string) decimal.Decimal {
			return sums[[2]string{category, region}]
		}))
	}

	return models.PivotMatrix{
		Name:      CategoryRegionName,
		KeyColumn: "category",
		Measure:   models.MeasureAmount,
		Columns:   regions,
		Rows:      rows,
	}
}

// AgeSatisfaction counts customers per (age group, satisfaction level).
// Customers younger than 18 or with an out-of-range score are not counted.
func AgeSatisfaction(customers []models.CustomerRecord) models.PivotMatrix {
	columns := make([]string, len(SatisfactionLevels))
	for i, level := range SatisfactionLevels {
		columns[i] = strconv.Itoa(level)
	}

	m := models.PivotMatrix{
		Name:      AgeSatisfactionName,
		KeyColumn: "ageGroup",
		Measure:   models.MeasureCount,
		Columns:   columns,
		Rows:      []models.PivotRow{},
	}
	if len(customers) == 0 {
		return m
	}

	counts := make(map[string]map[string]int64, len(AgeGroups))
	for _, c := range customers {
		group, ok := AgeGroup(c.Age)
		if !ok || !slices.Contains(SatisfactionLevels, c.Satisfaction) {
			continue
		}
		if counts[group] == nil {
			counts[group] = make(map[string]int64, len(columns))
		}
		counts[group][strconv.Itoa(c.Satisfaction)]++
	}

	for _, group := range AgeGroups {
		m.Rows = append(m.Rows, sumRow(group, columns, func(level string) decimal.Decimal {
			return decimal.NewFromInt(counts[group][level])
		}))
	}
	return m
}

// MonthCategory sums sales amounts per (YYYY-MM, category). Columns are every
// category seen across the whole input, not just the row's month.
func MonthCategory(sales []models.SalesRecord) models.PivotMatrix {
	categories := distinct(sales, func(s models.SalesRecord) string { return s.Category })
	months := distinct(sales, func(s models.SalesRecord) string { return MonthKey(s.Date) })

	sums := make(map[[2]string]decimal.Decimal)
	for _, s := range sales {
		k := [2]string{MonthKey(s.Date), s.Category}
		sums[k] = sums[k].Add(decimal.NewFromFloat(s.Amount))
	}

	rows := make([]models.PivotRow, 0, len(months))
	for _, month := range months {
		rows = append(rows, sumRow(month, categories, func(category string) decimal.Decimal {
			return sums[[2]string{month, category}]
		}))
	}

	return models.PivotMatrix{
		Name:      MonthCategoryName,
		KeyColumn: "month",
		Measure:   models.MeasureAmount,
		Columns:   categories,
		Rows:      rows,
	}
}

// AgeGroup maps an age to its row key. Bounds are inclusive; 60+ is open-ended.
func AgeGroup(age int) (string, bool) {
	switch {
	case age >= 60:
		return "60+", true
	case age >= 50:
		return "50-59", true
	case age >= 40:
		return "40-49", true
	case age >= 30:
		return "30-39", true
	case age >= 18:
		return "18-29", true
	default:
		return "", false
	}
}

// MonthKey is the zero-padded YYYY-MM of t, so lexical order is chronological.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// sumRow totals the emitted Cells in column order.
func sumRow(key string, columns []string, cell func(column string) decimal.Decimal) models.PivotRow {
	row := models.PivotRow{Key: key, Cells: make([]float64, len(columns))}
	for i, column := range columns {
		row.Cells[i] = cell(column).InexactFloat64()
		row.Total += row.Cells[i]
	}
	return row
}

func distinct(sales []models.SalesRecord, key func(models.SalesRecord) string) []string {
	seen := make(map[string]struct{}, len(sales))
	out := make([]string, 0)
	for _, s := range sales {
		k := key(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
