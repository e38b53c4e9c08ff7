package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/source/offline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("SOURCE_MODE", "offline")
	t.Setenv("DASHBOARD_PAGE_SIZE", "2")
	t.Setenv("SECURITY_RATE_LIMIT_ENABLED", "false")
	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("config.Parse() error = %v", err)
	}
	return cfg
}

func testFetcher() *offline.Source {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	sales := []models.SalesRecord{
		{Date: day(1), Amount: 1000, Category: "食品", Region: "東京"},
		{Date: day(2), Amount: 2000, Category: "家電", Region: "大阪"},
		{Date: day(3), Amount: 3000, Category: "食品", Region: "大阪"},
	}
	customers := []models.CustomerRecord{
		{ID: 1, Age: 24, Gender: "女性", PurchaseAmount: 1500, Satisfaction: 5},
		{ID: 2, Age: 52, Gender: "男性", PurchaseAmount: 900, Satisfaction: 2},
	}
	return offline.New(sales, customers, observability.Discard())
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), testConfig(t), observability.Discard(), testFetcher())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.close(ctx); err != nil {
			t.Errorf("close() error = %v", err)
		}
	})
	return a
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func getJSON(t *testing.T, h http.Handler, path string, out any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d", path, w.Code)
	}
	env := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("invalid json from %s: %v", path, err)
	}
	if !env.Success {
		t.Fatalf("GET %s success=false", path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode %s data: %v", path, err)
	}
}

func TestApp_FirstRoundLoadsDashboard(t *testing.T) {
	a := newTestApp(t)
	waitFor(t, a.dashboard.Ready)

	var metrics models.MetricsSummary
	getJSON(t, a.handler, "/api/metrics", &metrics)
	if metrics.TotalSales != 6000 || metrics.TotalCustomers != 2 {
		t.Errorf("unexpected metrics %+v", metrics)
	}

	var options models.FilterOptions
	getJSON(t, a.handler, "/api/filter-options", &options)
	if len(options.Categories) != 2 || options.AgeRange != (models.IntRange{24, 52}) {
		t.Errorf("unexpected options %+v", options)
	}
}

func TestApp_FilterChangeRefreshesEverything(t *testing.T) {
	a := newTestApp(t)
	waitFor(t, a.dashboard.Ready)

	w := httptest.NewRecorder()
	body := `{"categories":["食品"],"satisfaction_filter":"高満足度 (4-5)"}`
	a.handler.ServeHTTP(w, httptest.NewRequest("PUT", "/api/filters", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /api/filters status = %d: %s", w.Code, w.Body.String())
	}

	waitFor(t, func() bool { return a.dashboard.Metrics().TotalSales == 4000 })

	snap, _ := a.dashboard.Snapshot()
	if snap.Metrics.TotalCustomers != 1 {
		t.Errorf("customers after filter = %d, want 1", snap.Metrics.TotalCustomers)
	}
	if got := snap.Matrices.CategoryRegion.Cell("家電", "大阪"); got != 0 {
		t.Errorf("filtered category still in matrix: %v", got)
	}
	if len(snap.Histogram) != 1 || snap.Histogram[0].Label != "20-24" {
		t.Errorf("unexpected histogram %+v", snap.Histogram)
	}
}

func TestApp_Routes(t *testing.T) {
	a := newTestApp(t)
	waitFor(t, a.dashboard.Ready)

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/api/snapshot", http.StatusOK, "application/json"},
		{"/api/sales?page=2", http.StatusOK, "application/json"},
		{"/api/export/matrices.xlsx", http.StatusOK, "spreadsheetml"},
		{"/sse/customers", http.StatusOK, "text/event-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.handler.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
			if w.Header().Get("Content-Security-Policy") == "" {
				t.Error("expected security headers")
			}
		})
	}
}

func TestDashboardTemplate(t *testing.T) {
	a := newTestApp(t)
	waitFor(t, a.dashboard.Ready)

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	body := w.Body.String()
	for _, component := range []string{
		"売上ダッシュボード",
		"総売上",
		"¥6,000",
		"カテゴリ×地域",
		"年齢層×満足度",
		"月別×カテゴリ",
		"1 / 2 ページ",
		"/sse/stream",
	} {
		if !strings.Contains(body, component) {
			t.Errorf("dashboard should contain '%s'", component)
		}
	}
}

func TestApp_RefreshSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dashboard.RefreshSchedule = "not a schedule"
	if _, err := newApp(context.Background(), cfg, observability.Discard(), testFetcher()); err == nil {
		t.Error("expected an invalid schedule to fail startup")
	}

	cfg.Dashboard.RefreshSchedule = "@every 1h"
	a, err := newApp(context.Background(), cfg, observability.Discard(), testFetcher())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	if a.refresher == nil {
		t.Error("expected a refresher")
	}
	if err := a.close(context.Background()); err != nil {
		t.Errorf("close() error = %v", err)
	}
}

func TestNewSource(t *testing.T) {
	dir := t.TempDir()
	salesPath := filepath.Join(dir, "sales.csv")
	customersPath := filepath.Join(dir, "customers.csv")
	writeFile(t, salesPath, "date,sales,category,region\n2024-01-05,1200,食品,東京\n")
	writeFile(t, customersPath, "customer_id,age,gender,purchase_amount,satisfaction\n1,30,女性,500,4\n")

	cfg := testConfig(t)
	cfg.Source.SalesCSV = salesPath
	cfg.Source.CustomersCSV = customersPath
	cfg.Source.CacheDir = ""

	fetcher, err := newSource(context.Background(), cfg, observability.Discard())
	if err != nil {
		t.Fatalf("newSource(offline) error = %v", err)
	}
	options, err := fetcher.FilterOptions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(options.Categories) != 1 || options.Categories[0] != "食品" {
		t.Errorf("unexpected options %+v", options)
	}

	cfg.Source.Mode = config.SourceRemote
	if _, err := newSource(context.Background(), cfg, observability.Discard()); err != nil {
		t.Errorf("newSource(remote) error = %v", err)
	}

	cfg.Source.SalesCSV = filepath.Join(dir, "missing.csv")
	cfg.Source.Mode = config.SourceOffline
	if _, err := newSource(context.Background(), cfg, observability.Discard()); err == nil {
		t.Error("expected missing CSV to fail")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
