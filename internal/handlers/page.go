package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout    = 10 * time.Second
	defaultMatrixTab = "category_region"
)

type PageHandlers struct {
	dashboard *services.Dashboard
	filters   FilterStore
	logger    *slog.Logger
}

func NewPageHandlers(dashboard *services.Dashboard, filters FilterStore, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		filters:   filters,
		logger:    logger,
	}
}

// HandleDashboard renders the whole page from the current view state. Later
// changes reach the browser over /sse/stream.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	sel := h.filters.Current()
	signals, err := newPageSignals(sel, h.dashboard.Charts())
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal page signals", "error", err,
			"request_id", observability.GetRequestID(ctx))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	snap, ready := h.dashboard.Snapshot()
	data := templates.PageData{
		Signals:   string(signals),
		Filters:   templates.NewFilterPanelData(h.dashboard.FilterOptions(), sel),
		Status:    templates.NewStatusData(snap, ready),
		Metrics:   h.dashboard.Metrics(),
		Charts:    templates.ChartsData{Histogram: h.dashboard.Histogram()},
		Matrices:  h.dashboard.Matrices(),
		Sales:     h.dashboard.SalesPage(1, 0),
		Customers: h.dashboard.CustomerPage(1, 0),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Dashboard(data).Render(ctx, w); err != nil {
		h.logger.ErrorContext(ctx, "render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
