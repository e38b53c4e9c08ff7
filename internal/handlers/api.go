package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/pipeline"
	"sales-dashboard/internal/services"
)

const maxFilterBody = 64 << 10

// FilterStore holds the dashboard-wide selection.
type FilterStore interface {
	Current() models.FilterSelection
	Update(next models.FilterSelection)
	Published() uint64
}

// RoundStats reports refresh round counters.
type RoundStats interface {
	Stats() pipeline.Stats
}

var noStore = map[string]string{"Cache-Control": "no-store"}

type APIHandlers struct {
	dashboard *services.Dashboard
	filters   FilterStore
	rounds    RoundStats
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, filters FilterStore, rounds RoundStats, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		filters:   filters,
		rounds:    rounds,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleFilterOptions(w http.ResponseWriter, r *http.Request) {
	headers := map[string]string{
		"Cache-Control": "public, max-age=300",
	}
	errors.WriteSuccessWithHeaders(w, h.dashboard.FilterOptions(), headers)
}

func (h *APIHandlers) HandleGetFilters(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.filters.Current(), noStore)
}

// HandlePutFilters replaces the selection. Inverted ranges are accepted and
// logged; the backend decides what they mean.
func (h *APIHandlers) HandlePutFilters(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFilterBody))
	dec.DisallowUnknownFields()

	var sel models.FilterSelection
	if err := dec.Decode(&sel); err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "invalid filter selection").WithDetails(err.Error()))
		return
	}

	publishFilters(r, h.filters, h.logger, sel)
	errors.WriteSuccessWithHeaders(w, h.filters.Current(), noStore)
}

func publishFilters(r *http.Request, store FilterStore, logger *slog.Logger, sel models.FilterSelection) {
	if err := sel.Validate(); err != nil {
		logger.WarnContext(r.Context(), "publishing filter selection as given",
			"error", errors.ValidationWrap(err, "filter selection has inverted or malformed ranges"),
			"request_id", observability.GetRequestID(r.Context()),
		)
	}
	store.Update(sel)
}

func (h *APIHandlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.dashboard.Snapshot()
	if !ok {
		h.fail(w, r, errors.ServiceUnavailable("dashboard data is still loading"))
		return
	}
	errors.WriteSuccessWithHeaders(w, snap, noStore)
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.dashboard.Metrics(), noStore)
}

func (h *APIHandlers) HandleMatrices(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.dashboard.Matrices(), noStore)
}

func (h *APIHandlers) HandleHistogram(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.dashboard.Histogram(), noStore)
}

func (h *APIHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.dashboard.Charts(), noStore)
}

func (h *APIHandlers) HandleSales(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, h.dashboard.SalesPage(page, size), noStore)
}

func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, h.dashboard.CustomerPage(page, size), noStore)
}

func (h *APIHandlers) HandleExportMatrices(w http.ResponseWriter, r *http.Request) {
	if !h.dashboard.Ready() {
		h.fail(w, r, errors.ServiceUnavailable("dashboard data is still loading"))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMatrices(&buf, h.dashboard.Matrices()); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to build spreadsheet"))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]any{
		"status":    "healthy",
		"ready":     h.dashboard.Ready(),
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := map[string]any{
		"dashboard":         h.dashboard.Stats(),
		"rounds":            h.rounds.Stats(),
		"filters_published": h.filters.Published(),
	}

	errors.WriteSuccess(w, stats)
}

// pageParams reads ?page= and ?size=. Missing values fall back to the first
// page and the configured size.
func pageParams(r *http.Request) (page, size int, err error) {
	page, err = queryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	size, err = queryInt(r, "size", 0)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequestWrap(err, fmt.Sprintf("%s must be an integer", name)).WithDetails(raw)
	}
	return v, nil
}
