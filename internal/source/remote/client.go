// Package remote fetches dashboard datasets from the analytics backend over
// JSON/HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

const maxErrorBody = 4096

type Options struct {
	BaseURL string
	// Timeout of zero leaves requests bounded only by their context.
	Timeout    time.Duration
	RPS        float64
	Burst      int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// filterOptionsWire accepts both snake_case and camelCase range keys.
type filterOptionsWire struct {
	Categories      []string           `json:"categories"`
	Regions         []string           `json:"regions"`
	SalesRange      *models.FloatRange `json:"sales_range"`
	SalesRangeCamel *models.FloatRange `json:"salesRange"`
	AgeRange        *models.IntRange   `json:"age_range"`
	AgeRangeCamel   *models.IntRange   `json:"ageRange"`
	Genders         []string           `json:"genders"`
}

func (c *Client) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	var wire filterOptionsWire
	if err := c.doJSON(ctx, http.MethodGet, "/filter-options", nil, &wire); err != nil {
		return models.FilterOptions{}, err
	}

	opts := models.FilterOptions{
		Categories: wire.Categories,
		Regions:    wire.Regions,
		Genders:    wire.Genders,
	}
	switch {
	case wire.SalesRange != nil:
		opts.SalesRange = *wire.SalesRange
	case wire.SalesRangeCamel != nil:
		opts.SalesRange = *wire.SalesRangeCamel
	}
	switch {
	case wire.AgeRange != nil:
		opts.AgeRange = *wire.AgeRange
	case wire.AgeRangeCamel != nil:
		opts.AgeRange = *wire.AgeRangeCamel
	}
	return opts, nil
}

func (c *Client) Sales(ctx context.Context, sel models.FilterSelection) ([]models.SalesRecord, error) {
	out := []models.SalesRecord{}
	if err := c.doJSON(ctx, http.MethodPost, "/sales", sel, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Customers(ctx context.Context, sel models.FilterSelection) ([]models.CustomerRecord, error) {
	out := []models.CustomerRecord{}
	if err := c.doJSON(ctx, http.MethodPost, "/customers", sel, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Metrics(ctx context.Context, sel models.FilterSelection) (models.MetricsSummary, error) {
	var out models.MetricsSummary
	if err := c.doJSON(ctx, http.MethodPost, "/metrics", sel, &out); err != nil {
		return models.MetricsSummary{}, err
	}
	return out, nil
}

func (c *Client) ChartData(ctx context.Context, sel models.FilterSelection) (models.ChartSeries, error) {
	var out models.ChartSeries
	if err := c.doJSON(ctx, http.MethodPost, "/chart-data", sel, &out); err != nil {
		return models.ChartSeries{}, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Upstream(err, "request to analytics backend not sent").WithDetails(path)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := observability.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return apperrors.Upstream(err, "analytics backend unreachable").WithDetails(path)
	}
	defer res.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"duration", time.Since(start),
	)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		cause := fmt.Errorf("%s %s status %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(msg)))
		return apperrors.Upstream(cause, "analytics backend returned an error").WithDetails(path)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperrors.Upstream(fmt.Errorf("decode %s response: %w", path, err), "analytics backend sent an invalid response").WithDetails(path)
	}
	return nil
}
