package models

import (
	"slices"
	"time"
)

type MetricsSummary struct {
	TotalSales      float64 `json:"total_sales"`
	AvgDailySales   float64 `json:"avg_daily_sales"`
	TotalCustomers  int     `json:"total_customers"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
}

type ChartPoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// ChartSeries carries pre-aggregated chart data. Histogram holds raw ages;
// binning happens on this side.
type ChartSeries struct {
	Line      []ChartPoint `json:"line_chart"`
	Pie       []ChartPoint `json:"pie_chart"`
	Bar       []ChartPoint `json:"bar_chart"`
	Histogram []int        `json:"histogram"`
}

type HistogramBin struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	Count int    `json:"count"`
}

// Measure says what a pivot cell holds.
type Measure string

const (
	MeasureAmount Measure = "amount"
	MeasureCount  Measure = "count"
)

// TotalColumn is the trailing column of every pivot.
const TotalColumn = "total"

// PivotRow is one keyed row; Cells align with PivotMatrix.Columns.
type PivotRow struct {
	Key   string    `json:"key"`
	Cells []float64 `json:"cells"`
	Total float64   `json:"total"`
}

// PivotMatrix is a cross-tab of one measure over two attributes.
type PivotMatrix struct {
	Name      string     `json:"name"`
	KeyColumn string     `json:"key_column"`
	Measure   Measure    `json:"measure"`
	Columns   []string   `json:"columns"`
	Rows      []PivotRow `json:"rows"`
}

// ColumnList returns the key column, the value columns and the total column.
func (m PivotMatrix) ColumnList() []string {
	out := make([]string, 0, len(m.Columns)+2)
	out = append(out, m.KeyColumn)
	out = append(out, m.Columns...)
	return append(out, TotalColumn)
}

// Row finds the row with the given key.
func (m PivotMatrix) Row(key string) (PivotRow, bool) {
	for _, r := range m.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return PivotRow{}, false
}

// Cell looks up a value by row key and column. Missing pairs read as zero.
func (m PivotMatrix) Cell(key, column string) float64 {
	row, ok := m.Row(key)
	if !ok {
		return 0
	}
	if column == TotalColumn {
		return row.Total
	}
	idx := slices.Index(m.Columns, column)
	if idx < 0 || idx >= len(row.Cells) {
		return 0
	}
	return row.Cells[idx]
}

type Matrices struct {
	CategoryRegion  PivotMatrix `json:"category_region"`
	AgeSatisfaction PivotMatrix `json:"age_satisfaction"`
	MonthCategory   PivotMatrix `json:"month_category"`
}

// All returns the matrices in display order.
func (m Matrices) All() []PivotMatrix {
	return []PivotMatrix{m.CategoryRegion, m.AgeSatisfaction, m.MonthCategory}
}

// Snapshot is the joined result of one filter round.
type Snapshot struct {
	Round       uint64           `json:"round"`
	Filter      FilterSelection  `json:"filter"`
	Sales       []SalesRecord    `json:"sales"`
	Customers   []CustomerRecord `json:"customers"`
	Metrics     MetricsSummary   `json:"metrics"`
	Charts      ChartSeries      `json:"charts"`
	Histogram   []HistogramBin   `json:"histogram"`
	Matrices    Matrices         `json:"matrices"`
	CompletedAt time.Time        `json:"completed_at"`
}
