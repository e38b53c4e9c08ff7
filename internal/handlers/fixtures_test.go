package handlers

import (
	"sync/atomic"
	"time"

	"sales-dashboard/internal/filters"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/pipeline"
	"sales-dashboard/internal/pivot"
	"sales-dashboard/internal/services"
)

func testOptions() models.FilterOptions {
	return models.FilterOptions{
		Categories: []string{"家電", "食品"},
		Regions:    []string{"大阪", "東京"},
		SalesRange: models.FloatRange{100, 5000},
		AgeRange:   models.IntRange{18, 70},
		Genders:    []string{"女性", "男性"},
	}
}

func testSnapshot(round uint64) models.Snapshot {
	sales := make([]models.SalesRecord, 15)
	for i := range sales {
		sales[i] = models.SalesRecord{
			Date:     time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
			Amount:   1000,
			Category: "食品",
			Region:   "東京",
		}
	}
	customers := []models.CustomerRecord{
		{ID: 1, Age: 25, Gender: "女性", PurchaseAmount: 3000, Satisfaction: 4},
		{ID: 2, Age: 47, Gender: "男性", PurchaseAmount: 1200, Satisfaction: 2},
	}
	return models.Snapshot{
		Round:     round,
		Sales:     sales,
		Customers: customers,
		Metrics: models.MetricsSummary{
			TotalSales:      15000,
			AvgDailySales:   1000,
			TotalCustomers:  2,
			AvgSatisfaction: 3,
		},
		Charts: models.ChartSeries{
			Line:      []models.ChartPoint{{X: "2024-01-01", Y: 1000}},
			Pie:       []models.ChartPoint{{X: "食品", Y: 15000}},
			Bar:       []models.ChartPoint{{X: "東京", Y: 15000}},
			Histogram: []int{25, 47},
		},
		Histogram:   pivot.Histogram([]int{25, 47}, pivot.DefaultBinWidth),
		Matrices:    pivot.Build(sales, customers),
		CompletedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// newTestDashboard returns a dashboard with a page size of 10; loaded
// controls whether a snapshot has landed.
func newTestDashboard(loaded bool) *services.Dashboard {
	d := services.NewDashboard(10, observability.Discard())
	d.SetFilterOptions(testOptions())
	if loaded {
		d.Apply(testSnapshot(1))
	}
	return d
}

func newTestStore() *filters.Store {
	return filters.NewStore(filters.Defaults(testOptions(), "2024-01-01", "2024-12-31"))
}

type fakeRounds struct{ stats pipeline.Stats }

func (f fakeRounds) Stats() pipeline.Stats { return f.stats }

// replayFeed hands each subscriber its snapshots immediately.
type replayFeed struct {
	snapshots    []models.Snapshot
	subscribed   atomic.Int32
	unsubscribed atomic.Int32
}

func (f *replayFeed) Subscribe(fn func(models.Snapshot)) func() {
	f.subscribed.Add(1)
	for _, s := range f.snapshots {
		fn(s)
	}
	return func() { f.unsubscribed.Add(1) }
}
