package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

// SnapshotFeed delivers every published snapshot, replaying the latest one
// to new subscribers.
type SnapshotFeed interface {
	Subscribe(fn func(models.Snapshot)) (unsubscribe func())
}

type SSEHandlers struct {
	dashboard *services.Dashboard
	filters   FilterStore
	feed      SnapshotFeed
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, filters FilterStore, feed SnapshotFeed, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		filters:   filters,
		feed:      feed,
		logger:    logger,
	}
}

// mailbox holds at most one pending snapshot; a newer one replaces it.
type mailbox chan models.Snapshot

func (m mailbox) put(s models.Snapshot) {
	for {
		select {
		case m <- s:
			return
		default:
		}
		select {
		case <-m:
		default:
		}
	}
}

// HandleStream keeps the page in sync with the pipeline until the browser
// goes away.
func (h *SSEHandlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	box := make(mailbox, 1)
	unsubscribe := h.feed.Subscribe(box.put)
	defer unsubscribe()

	h.logger.DebugContext(ctx, "sse client connected", "request_id", observability.GetRequestID(ctx))
	for {
		select {
		case <-ctx.Done():
			h.logger.DebugContext(ctx, "sse client disconnected", "request_id", observability.GetRequestID(ctx))
			return
		case snap := <-box:
			if err := h.patchSnapshot(ctx, sse, snap); err != nil {
				if ctx.Err() == nil {
					h.logger.WarnContext(ctx, "sse patch failed", "round", snap.Round, "error", err)
				}
				return
			}
			flush(w)
		}
	}
}

func (h *SSEHandlers) patchSnapshot(ctx context.Context, sse *datastar.ServerSentEventGenerator, snap models.Snapshot) error {
	size := h.dashboard.PageSize()
	fragments := []templ.Component{
		templates.Status(templates.NewStatusData(snap, true)),
		templates.MetricsCards(snap.Metrics),
		templates.Histogram(snap.Histogram),
		templates.Matrices(snap.Matrices),
		templates.SalesTable(services.Paginate(snap.Sales, 1, size)),
		templates.CustomerTable(services.Paginate(snap.Customers, 1, size)),
	}
	for _, c := range fragments {
		if err := patch(ctx, sse, c); err != nil {
			return err
		}
	}

	signals, err := json.Marshal(map[string]any{"charts": snap.Charts})
	if err != nil {
		return fmt.Errorf("marshal chart signals: %w", err)
	}
	return sse.PatchSignals(signals)
}

// HandleFilters publishes the selection bound in the filter panel and echoes
// the normalized panel back.
func (h *SSEHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	var signals FilterSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.WarnContext(r.Context(), "unreadable filter signals",
			"error", err,
			"request_id", observability.GetRequestID(r.Context()),
		)
		http.Error(w, "invalid filter signals", http.StatusBadRequest)
		return
	}

	sel := signals.Selection()
	publishFilters(r, h.filters, h.logger, sel)

	sse := datastar.NewSSE(w, r)
	panel := templates.FilterPanel(templates.NewFilterPanelData(h.dashboard.FilterOptions(), h.filters.Current()))
	if err := patch(r.Context(), sse, panel); err != nil {
		h.logger.WarnContext(r.Context(), "render filter panel", "error", err)
		return
	}
	flush(w)
}

func (h *SSEHandlers) HandleSalesPage(w http.ResponseWriter, r *http.Request) {
	page, _, err := pageParams(r)
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := patch(r.Context(), sse, templates.SalesTable(h.dashboard.SalesPage(page, 0))); err != nil {
		h.logger.WarnContext(r.Context(), "render sales table", "error", err)
		return
	}
	flush(w)
}

func (h *SSEHandlers) HandleCustomerPage(w http.ResponseWriter, r *http.Request) {
	page, _, err := pageParams(r)
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := patch(r.Context(), sse, templates.CustomerTable(h.dashboard.CustomerPage(page, 0))); err != nil {
		h.logger.WarnContext(r.Context(), "render customer table", "error", err)
		return
	}
	flush(w)
}

func patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) error {
	html, err := templates.Render(ctx, c)
	if err != nil {
		return fmt.Errorf("render fragment: %w", err)
	}
	return sse.PatchElements(html)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
