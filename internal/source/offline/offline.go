// Package offline answers dashboard queries from local CSV files, for running
// without the analytics backend.
package offline

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/filters"
	"sales-dashboard/internal/models"
)

type Options struct {
	SalesPath     string
	CustomersPath string
	// CacheDir holds parsed rows between runs; empty disables the cache.
	CacheDir string
	Logger   *slog.Logger
}

// Source holds every row in memory and filters per request.
// Rows are read-only after construction.
type Source struct {
	sales     []models.SalesRecord
	customers []models.CustomerRecord
	logger    *slog.Logger
}

func New(sales []models.SalesRecord, customers []models.CustomerRecord, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{sales: sales, customers: customers, logger: logger}
}

// Load parses both CSV files. A file with no valid rows is an error.
func Load(ctx context.Context, opts Options) (*Source, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sales, err := loadFile(ctx, logger, opts.CacheDir, opts.SalesPath, salesColumns, parseSalesRecord)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}

	customers, err := loadFile(ctx, logger, opts.CacheDir, opts.CustomersPath, customerColumns, parseCustomerRecord)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	return New(sales, customers, logger), nil
}

func loadFile[T any](ctx context.Context, logger *slog.Logger, cacheDir, path string, columns []string, parse func([]string) (T, error)) ([]T, error) {
	if cached, ok := loadCache[T](cacheDir, path); ok {
		logger.Info("loaded from cache", "filename", path, "records", len(cached.Rows))
		return cached.Rows, nil
	}

	start := time.Now()
	logger.Info("processing CSV file", "filename", path)

	rows, skipped, err := streamCSV(ctx, path, columns, parse)
	if err != nil {
		return nil, fmt.Errorf("process csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no valid records found in %s", path)
	}

	if err := saveCache(cacheDir, path, rows, skipped); err != nil {
		logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	logger.Info("csv processing complete",
		"filename", path,
		"records", len(rows),
		"skipped", skipped,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(rows))/duration.Seconds()))

	return rows, nil
}

func (s *Source) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	if err := ctx.Err(); err != nil {
		return models.FilterOptions{}, err
	}

	opts := models.FilterOptions{
		Categories: sortedDistinct(s.sales, func(r models.SalesRecord) string { return r.Category }),
		Regions:    sortedDistinct(s.sales, func(r models.SalesRecord) string { return r.Region }),
		Genders:    sortedDistinct(s.customers, func(r models.CustomerRecord) string { return r.Gender }),
	}

	if len(s.sales) > 0 {
		lo := slices.MinFunc(s.sales, func(a, b models.SalesRecord) int { return cmp.Compare(a.Amount, b.Amount) })
		hi := slices.MaxFunc(s.sales, func(a, b models.SalesRecord) int { return cmp.Compare(a.Amount, b.Amount) })
		opts.SalesRange = models.FloatRange{lo.Amount, hi.Amount}
	}
	if len(s.customers) > 0 {
		lo := slices.MinFunc(s.customers, func(a, b models.CustomerRecord) int { return cmp.Compare(a.Age, b.Age) })
		hi := slices.MaxFunc(s.customers, func(a, b models.CustomerRecord) int { return cmp.Compare(a.Age, b.Age) })
		opts.AgeRange = models.IntRange{lo.Age, hi.Age}
	}

	return opts, nil
}

func (s *Source) Sales(ctx context.Context, sel models.FilterSelection) ([]models.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.SalesRecord, 0)
	for _, rec := range s.sales {
		if filters.MatchSales(rec, sel) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Source) Customers(ctx context.Context, sel models.FilterSelection) ([]models.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.CustomerRecord, 0)
	for _, rec := range s.customers {
		if filters.MatchCustomer(rec, sel) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Metrics averages daily sales over the number of filtered rows, not over
// distinct days.
func (s *Source) Metrics(ctx context.Context, sel models.FilterSelection) (models.MetricsSummary, error) {
	sales, err := s.Sales(ctx, sel)
	if err != nil {
		return models.MetricsSummary{}, err
	}
	customers, err := s.Customers(ctx, sel)
	if err != nil {
		return models.MetricsSummary{}, err
	}

	var m models.MetricsSummary
	total := decimal.Zero
	for _, rec := range sales {
		total = total.Add(decimal.NewFromFloat(rec.Amount))
	}
	m.TotalSales = total.InexactFloat64()
	if len(sales) > 0 {
		m.AvgDailySales = total.Div(decimal.NewFromInt(int64(len(sales)))).InexactFloat64()
	}

	m.TotalCustomers = len(customers)
	if len(customers) > 0 {
		sum := 0
		for _, c := range customers {
			sum += c.Satisfaction
		}
		m.AvgSatisfaction = float64(sum) / float64(len(customers))
	}

	return m, nil
}

func (s *Source) ChartData(ctx context.Context, sel models.FilterSelection) (models.ChartSeries, error) {
	sales, err := s.Sales(ctx, sel)
	if err != nil {
		return models.ChartSeries{}, err
	}
	customers, err := s.Customers(ctx, sel)
	if err != nil {
		return models.ChartSeries{}, err
	}

	ages := make([]int, 0, len(customers))
	for _, c := range customers {
		ages = append(ages, c.Age)
	}

	return models.ChartSeries{
		Line:      sumBy(sales, func(r models.SalesRecord) string { return r.Date.Format(models.DateLayout) }),
		Pie:       sumBy(sales, func(r models.SalesRecord) string { return r.Category }),
		Bar:       sumBy(sales, func(r models.SalesRecord) string { return r.Region }),
		Histogram: ages,
	}, nil
}

// sumBy totals amounts per key, keys ascending.
func sumBy(sales []models.SalesRecord, key func(models.SalesRecord) string) []models.ChartPoint {
	groups := make(map[string]decimal.Decimal)
	for _, rec := range sales {
		k := key(rec)
		groups[k] = groups[k].Add(decimal.NewFromFloat(rec.Amount))
	}

	points := make([]models.ChartPoint, 0, len(groups))
	for _, k := range slices.Sorted(maps.Keys(groups)) {
		points = append(points, models.ChartPoint{X: k, Y: groups[k].InexactFloat64()})
	}
	return points
}

func sortedDistinct[T any](rows []T, key func(T) string) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		seen[key(r)] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}
