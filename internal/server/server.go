package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

// Rounds is the refresh pipeline as the HTTP layer sees it.
type Rounds interface {
	handlers.SnapshotFeed
	handlers.RoundStats
}

type Server struct {
	dashboard    *services.Dashboard
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
}

func NewServer(dashboard *services.Dashboard, filters handlers.FilterStore, rounds Rounds, logger *slog.Logger) *Server {
	s := &Server{
		dashboard:    dashboard,
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(dashboard, filters, rounds, logger),
		sseHandlers:  handlers.NewSSEHandlers(dashboard, filters, rounds, logger),
		pageHandlers: handlers.NewPageHandlers(dashboard, filters, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/filter-options", s.apiHandlers.HandleFilterOptions)
	s.mux.HandleFunc("GET /api/filters", s.apiHandlers.HandleGetFilters)
	s.mux.HandleFunc("PUT /api/filters", s.apiHandlers.HandlePutFilters)
	s.mux.HandleFunc("GET /api/snapshot", s.apiHandlers.HandleSnapshot)
	s.mux.HandleFunc("GET /api/metrics", s.apiHandlers.HandleMetrics)
	s.mux.HandleFunc("GET /api/charts", s.apiHandlers.HandleCharts)
	s.mux.HandleFunc("GET /api/matrices", s.apiHandlers.HandleMatrices)
	s.mux.HandleFunc("GET /api/histogram", s.apiHandlers.HandleHistogram)
	s.mux.HandleFunc("GET /api/sales", s.apiHandlers.HandleSales)
	s.mux.HandleFunc("GET /api/customers", s.apiHandlers.HandleCustomers)
	s.mux.HandleFunc("GET /api/export/matrices.xlsx", s.apiHandlers.HandleExportMatrices)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/stream", s.sseHandlers.HandleStream)
	s.mux.HandleFunc("POST /sse/filters", s.sseHandlers.HandleFilters)
	s.mux.HandleFunc("GET /sse/sales", s.sseHandlers.HandleSalesPage)
	s.mux.HandleFunc("GET /sse/customers", s.sseHandlers.HandleCustomerPage)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
