package services

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"sales-dashboard/internal/models"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Dashboard is the view state: the filter options and the last snapshot the
// pipeline published. A failed round never reaches it, so readers keep
// seeing the previous data.
type Dashboard struct {
	mu       sync.RWMutex
	options  models.FilterOptions
	snapshot *models.Snapshot
	pageSize int

	applied atomic.Int64
	ignored atomic.Int64
	logger  *slog.Logger
}

func NewDashboard(pageSize int, logger *slog.Logger) *Dashboard {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{pageSize: pageSize, logger: logger}
}

// Apply stores s unless a newer round is already held.
func (d *Dashboard) Apply(s models.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.snapshot != nil && s.Round < d.snapshot.Round {
		d.ignored.Add(1)
		d.logger.Debug("ignoring older snapshot", "round", s.Round, "held", d.snapshot.Round)
		return
	}
	d.snapshot = &s
	d.applied.Add(1)
}

func (d *Dashboard) SetFilterOptions(o models.FilterOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.options = o
}

func (d *Dashboard) FilterOptions() models.FilterOptions {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.options
}

// Snapshot returns the held snapshot; ok is false until the first round lands.
func (d *Dashboard) Snapshot() (models.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.snapshot == nil {
		return models.Snapshot{}, false
	}
	return *d.snapshot, true
}

func (d *Dashboard) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot != nil
}

func (d *Dashboard) Metrics() models.MetricsSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.snapshot == nil {
		return models.MetricsSummary{}
	}
	return d.snapshot.Metrics
}

func (d *Dashboard) Charts() models.ChartSeries {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.snapshot == nil {
		return models.ChartSeries{}
	}
	return d.snapshot.Charts
}

func (d *Dashboard) Matrices() models.Matrices {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.snapshot == nil {
		return models.Matrices{}
	}
	return d.snapshot.Matrices
}

func (d *Dashboard) Histogram() []models.HistogramBin {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.snapshot == nil {
		return []models.HistogramBin{}
	}
	return d.snapshot.Histogram
}

func (d *Dashboard) PageSize() int {
	return d.pageSize
}

func (d *Dashboard) SalesPage(page, size int) Page[models.SalesRecord] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var rows []models.SalesRecord
	if d.snapshot != nil {
		rows = d.snapshot.Sales
	}
	return Paginate(rows, page, d.size(size))
}

func (d *Dashboard) CustomerPage(page, size int) Page[models.CustomerRecord] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var rows []models.CustomerRecord
	if d.snapshot != nil {
		rows = d.snapshot.Customers
	}
	return Paginate(rows, page, d.size(size))
}

func (d *Dashboard) size(size int) int {
	if size <= 0 {
		return d.pageSize
	}
	return size
}

// Stats is for the admin endpoint.
func (d *Dashboard) Stats() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := map[string]any{
		"ready":             d.snapshot != nil,
		"snapshots_applied": d.applied.Load(),
		"snapshots_ignored": d.ignored.Load(),
		"categories":        len(d.options.Categories),
		"regions":           len(d.options.Regions),
	}
	if d.snapshot != nil {
		stats["round"] = d.snapshot.Round
		stats["sales_rows"] = len(d.snapshot.Sales)
		stats["customer_rows"] = len(d.snapshot.Customers)
		stats["completed_at"] = d.snapshot.CompletedAt.Format(time.RFC3339)
	}
	return stats
}
