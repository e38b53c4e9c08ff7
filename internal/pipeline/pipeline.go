// Package pipeline turns filter selections into consistent dashboard snapshots.
//
// Every published selection starts a round: the four datasets are fetched
// concurrently and joined, and the snapshot is published only if no newer
// round has started in the meantime. A failed round publishes nothing, so
// observers keep whatever they rendered last.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/pivot"
)

// Fetcher is the backend boundary: one call per dataset.
type Fetcher interface {
	FilterOptions(ctx context.Context) (models.FilterOptions, error)
	Sales(ctx context.Context, sel models.FilterSelection) ([]models.SalesRecord, error)
	Customers(ctx context.Context, sel models.FilterSelection) ([]models.CustomerRecord, error)
	Metrics(ctx context.Context, sel models.FilterSelection) (models.MetricsSummary, error)
	ChartData(ctx context.Context, sel models.FilterSelection) (models.ChartSeries, error)
}

// FilterSource is the part of filters.Store the pipeline listens to.
type FilterSource interface {
	Subscribe(fn func(models.FilterSelection)) (unsubscribe func())
}

// Stats counts rounds by outcome.
type Stats struct {
	Issued    uint64 `json:"issued"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Discarded uint64 `json:"discarded"`
	Current   uint64 `json:"current"`
}

type Pipeline struct {
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	round        atomic.Uint64
	cancelMu     sync.Mutex
	cancelActive context.CancelFunc

	// publishMu serializes the stale check and observer delivery.
	publishMu sync.Mutex
	latestMu  sync.RWMutex
	latest    *models.Snapshot
	nextID    int
	observers map[int]func(models.Snapshot)
	order     []int

	delivered atomic.Uint64
	failed    atomic.Uint64
	discarded atomic.Uint64
}

func New(fetcher Fetcher, logger *slog.Logger) *Pipeline {
	ctx, stop := context.WithCancel(context.Background())
	return &Pipeline{
		fetcher:   fetcher,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		stop:      stop,
		observers: make(map[int]func(models.Snapshot)),
	}
}

// Attach starts a round for the source's current selection and for every
// selection it publishes afterwards.
func (p *Pipeline) Attach(source FilterSource) (detach func()) {
	return source.Subscribe(func(sel models.FilterSelection) {
		p.Trigger(sel)
	})
}

// Trigger starts a new round for sel and supersedes any round in flight.
// It returns the new round id without waiting for the fetches.
func (p *Pipeline) Trigger(sel models.FilterSelection) uint64 {
	p.cancelMu.Lock()
	if p.closed.Load() {
		p.cancelMu.Unlock()
		return 0
	}
	if p.cancelActive != nil {
		p.cancelActive()
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.cancelActive = cancel
	id := p.round.Add(1)
	p.wg.Add(1)
	p.cancelMu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		p.run(ctx, id, sel)
	}()

	return id
}

func (p *Pipeline) run(ctx context.Context, id uint64, sel models.FilterSelection) {
	ctx, span := observability.StartSpan(ctx, "dashboard.round")
	span.SetTag("round", strconv.FormatUint(id, 10))
	defer span.FinishAndLog(ctx, p.logger)

	start := p.now()
	snap, err := p.fetchAll(ctx, sel)

	if p.ctx.Err() != nil {
		p.discarded.Add(1)
		p.logger.Debug("round discarded on shutdown", "round", id)
		return
	}
	if current := p.round.Load(); id != current {
		p.discarded.Add(1)
		p.logger.Debug("round superseded", "round", id, "current", current)
		return
	}
	if err != nil {
		span.SetError(err)
		p.failed.Add(1)
		p.logger.Error("dashboard round failed", "round", id, "error", err)
		return
	}

	snap.Round = id
	snap.Filter = sel
	snap.Histogram = pivot.Histogram(snap.Charts.Histogram, pivot.DefaultBinWidth)
	snap.Matrices = pivot.Build(snap.Sales, snap.Customers)
	snap.CompletedAt = p.now()

	if !p.publish(id, snap) {
		p.discarded.Add(1)
		p.logger.Debug("round superseded before publish", "round", id)
		return
	}

	p.logger.Info("dashboard round completed",
		"round", id,
		"sales", len(snap.Sales),
		"customers", len(snap.Customers),
		"duration", p.now().Sub(start),
	)
}

// fetchAll issues the four dataset calls together and waits for all of them.
// The first failure cancels the others.
func (p *Pipeline) fetchAll(ctx context.Context, sel models.FilterSelection) (models.Snapshot, error) {
	var snap models.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return traced(gctx, p.logger, "fetch.sales", func(ctx context.Context) (err error) {
			snap.Sales, err = p.fetcher.Sales(ctx, sel)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, p.logger, "fetch.customers", func(ctx context.Context) (err error) {
			snap.Customers, err = p.fetcher.Customers(ctx, sel)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, p.logger, "fetch.metrics", func(ctx context.Context) (err error) {
			snap.Metrics, err = p.fetcher.Metrics(ctx, sel)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, p.logger, "fetch.chart_data", func(ctx context.Context) (err error) {
			snap.Charts, err = p.fetcher.ChartData(ctx, sel)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Sales == nil {
		snap.Sales = []models.SalesRecord{}
	}
	if snap.Customers == nil {
		snap.Customers = []models.CustomerRecord{}
	}
	return snap, nil
}

func traced(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, op)
	defer span.FinishAndLog(ctx, logger)
	if err := fn(ctx); err != nil {
		span.SetError(err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Pipeline) publish(id uint64, snap models.Snapshot) bool {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	if id != p.round.Load() {
		return false
	}

	p.latestMu.Lock()
	p.latest = &snap
	p.latestMu.Unlock()
	p.delivered.Add(1)
	for _, oid := range p.order {
		p.observers[oid](snap)
	}
	return true
}

// Subscribe replays the latest snapshot, if any, then delivers every
// published one in round order. Observers run on the publishing goroutine
// and should hand work off rather than block; they may call Latest but not
// Subscribe.
func (p *Pipeline) Subscribe(fn func(models.Snapshot)) (unsubscribe func()) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.order = append(p.order, id)

	if snap, ok := p.Latest(); ok {
		fn(snap)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.publishMu.Lock()
			defer p.publishMu.Unlock()
			delete(p.observers, id)
			for i, oid := range p.order {
				if oid == id {
					p.order = append(p.order[:i], p.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Latest returns the most recently published snapshot.
func (p *Pipeline) Latest() (models.Snapshot, bool) {
	p.latestMu.RLock()
	defer p.latestMu.RUnlock()
	if p.latest == nil {
		return models.Snapshot{}, false
	}
	return *p.latest, true
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Issued:    p.round.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
		Discarded: p.discarded.Load(),
		Current:   p.round.Load(),
	}
}

// Close cancels in-flight rounds and waits for their goroutines.
func (p *Pipeline) Close(ctx context.Context) error {
	p.cancelMu.Lock()
	p.closed.Store(true)
	p.stop()
	p.cancelMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
