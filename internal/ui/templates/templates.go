// Package templates renders the dashboard page and the fragments that
// datastar patches into it.
package templates

import (
	"context"
	"html/template"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/locale"
)

const (
	Title       = "売上ダッシュボード"
	maxBarWidth = 240
)

// Element ids patched over SSE.
const (
	FilterPanelID   = "filter-panel"
	StatusID        = "status"
	MetricsID       = "metrics"
	ChartsID        = "charts"
	HistogramID     = "histogram"
	MatricesID      = "matrices"
	SalesTableID    = "sales-table"
	CustomerTableID = "customer-table"
)

var funcs = template.FuncMap{
	"yen":      locale.FormatYen,
	"count":    locale.FormatCount,
	"score":    locale.FormatScore,
	"number":   locale.FormatNumber,
	"cell":     locale.FormatCell,
	"title":    locale.MatrixTitle,
	"colLabel": locale.ColumnLabel,
	"date":     func(t time.Time) string { return t.Format(models.DateLayout) },
	"has":      func(list []string, v string) bool { return slices.Contains(list, v) },
	"barWidth": func(n int) int { return min(n*4, maxBarWidth) },
	"pager":    newPager,
}

var views = template.Must(template.Must(template.New("page").Funcs(funcs).Parse(pageHTML)).Parse(fragmentsHTML))

// FilterPanelData feeds the filter form.
type FilterPanelData struct {
	Options      models.FilterOptions
	Selected     models.FilterSelection
	Satisfaction []models.SatisfactionFilter
	StartDate    string
	EndDate      string
	SalesMin     string
	SalesMax     string
	AgeMin       string
	AgeMax       string
}

func NewFilterPanelData(options models.FilterOptions, sel models.FilterSelection) FilterPanelData {
	data := FilterPanelData{
		Options:      options,
		Selected:     sel,
		Satisfaction: models.SatisfactionFilters,
	}
	if sel.DateRange != nil {
		data.StartDate, data.EndDate = sel.DateRange[0], sel.DateRange[1]
	}
	if sel.SalesRange != nil {
		data.SalesMin = strconv.FormatFloat(sel.SalesRange[0], 'f', -1, 64)
		data.SalesMax = strconv.FormatFloat(sel.SalesRange[1], 'f', -1, 64)
	}
	if sel.AgeRange != nil {
		data.AgeMin = strconv.Itoa(sel.AgeRange[0])
		data.AgeMax = strconv.Itoa(sel.AgeRange[1])
	}
	return data
}

type StatusData struct {
	Ready        bool
	Round        uint64
	CompletedAt  string
	SalesRows    int
	CustomerRows int
}

func NewStatusData(s models.Snapshot, ready bool) StatusData {
	if !ready {
		return StatusData{}
	}
	return StatusData{
		Ready:        true,
		Round:        s.Round,
		CompletedAt:  s.CompletedAt.Format("15:04:05"),
		SalesRows:    len(s.Sales),
		CustomerRows: len(s.Customers),
	}
}

type ChartsData struct {
	Histogram []models.HistogramBin
}

// PageData is everything the first render needs; later updates arrive as
// fragments and signals.
type PageData struct {
	Title     string
	Signals   string
	Filters   FilterPanelData
	Status    StatusData
	Metrics   models.MetricsSummary
	Charts    ChartsData
	Matrices  models.Matrices
	Sales     services.Page[models.SalesRecord]
	Customers services.Page[models.CustomerRecord]
}

type pagerData struct {
	Path  string
	Page  int
	Pages int
	Total int
	Prev  int
	Next  int
}

func newPager(path string, page, pages, total int) pagerData {
	return pagerData{Path: path, Page: page, Pages: pages, Total: total, Prev: page - 1, Next: page + 1}
}

func Dashboard(data PageData) templ.Component {
	if data.Title == "" {
		data.Title = Title
	}
	return templ.FromGoHTML(views.Lookup("page"), data)
}

func FilterPanel(data FilterPanelData) templ.Component {
	return templ.FromGoHTML(views.Lookup("filters"), data)
}

func Status(data StatusData) templ.Component {
	return templ.FromGoHTML(views.Lookup("status"), data)
}

func MetricsCards(m models.MetricsSummary) templ.Component {
	return templ.FromGoHTML(views.Lookup("metrics"), m)
}

func Charts(data ChartsData) templ.Component {
	return templ.FromGoHTML(views.Lookup("charts"), data)
}

func Histogram(bins []models.HistogramBin) templ.Component {
	return templ.FromGoHTML(views.Lookup("histogram"), bins)
}

func Matrices(m models.Matrices) templ.Component {
	return templ.FromGoHTML(views.Lookup("matrices"), m)
}

func SalesTable(p services.Page[models.SalesRecord]) templ.Component {
	return templ.FromGoHTML(views.Lookup("sales"), p)
}

func CustomerTable(p services.Page[models.CustomerRecord]) templ.Component {
	return templ.FromGoHTML(views.Lookup("customers"), p)
}

// Render renders c to a string for an SSE patch.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
