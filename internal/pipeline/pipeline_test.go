package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sales-dashboard/internal/filters"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// fakeFetcher serves fixed rows. When gate is set, Sales calls for the
// matching satisfaction filter wait on it before returning.
type fakeFetcher struct {
	mu          sync.Mutex
	sales       []models.SalesRecord
	customers   []models.CustomerRecord
	metricsErr  error
	gateFor     models.SatisfactionFilter
	gate        chan struct{}
	ignoreCtx   bool
	salesCalled chan models.FilterSelection
}

func newFakeFetcher() *fakeFetcher {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &fakeFetcher{
		sales: []models.SalesRecord{
			{Date: day, Amount: 1000, Category: "食品", Region: "東京"},
			{Date: day, Amount: 500, Category: "家電", Region: "大阪"},
		},
		customers: []models.CustomerRecord{
			{ID: 1, Age: 24, Gender: "女性", PurchaseAmount: 3000, Satisfaction: 5},
			{ID: 2, Age: 37, Gender: "男性", PurchaseAmount: 1200, Satisfaction: 3},
		},
		salesCalled: make(chan models.FilterSelection, 16),
	}
}

func (f *fakeFetcher) FilterOptions(context.Context) (models.FilterOptions, error) {
	return models.FilterOptions{Categories: []string{"家電", "食品"}}, nil
}

func (f *fakeFetcher) Sales(ctx context.Context, sel models.FilterSelection) ([]models.SalesRecord, error) {
	select {
	case f.salesCalled <- sel:
	default:
	}
	f.mu.Lock()
	gate, gateFor, ignoreCtx := f.gate, f.gateFor, f.ignoreCtx
	f.mu.Unlock()

	if gate != nil && sel.SatisfactionFilter == gateFor {
		if ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return f.sales, nil
}

func (f *fakeFetcher) Customers(context.Context, models.FilterSelection) ([]models.CustomerRecord, error) {
	return f.customers, nil
}

func (f *fakeFetcher) Metrics(context.Context, models.FilterSelection) (models.MetricsSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metricsErr != nil {
		return models.MetricsSummary{}, f.metricsErr
	}
	return models.MetricsSummary{TotalSales: 1500, AvgDailySales: 750, TotalCustomers: 2, AvgSatisfaction: 4}, nil
}

func (f *fakeFetcher) ChartData(context.Context, models.FilterSelection) (models.ChartSeries, error) {
	ages := make([]int, 0, len(f.customers))
	for _, c := range f.customers {
		ages = append(ages, c.Age)
	}
	return models.ChartSeries{
		Line:      []models.ChartPoint{{X: "2024-03-01", Y: 1500}},
		Histogram: ages,
	}, nil
}

func collect(t *testing.T, p *Pipeline) <-chan models.Snapshot {
	t.Helper()
	ch := make(chan models.Snapshot, 16)
	unsubscribe := p.Subscribe(func(s models.Snapshot) { ch <- s })
	t.Cleanup(unsubscribe)
	return ch
}

func next(t *testing.T, ch <-chan models.Snapshot) models.Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return models.Snapshot{}
	}
}

func closePipeline(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestPipeline_JoinPublishesSnapshot(t *testing.T) {
	p := New(newFakeFetcher(), observability.Discard())
	snaps := collect(t, p)

	sel := models.FilterSelection{Categories: []string{"食品", "家電"}}
	round := p.Trigger(sel)

	got := next(t, snaps)
	closePipeline(t, p)

	if got.Round != round {
		t.Errorf("Round = %d, want %d", got.Round, round)
	}
	if len(got.Sales) != 2 || len(got.Customers) != 2 {
		t.Errorf("unexpected rows: %d sales, %d customers", len(got.Sales), len(got.Customers))
	}
	if got.Metrics.TotalSales != 1500 {
		t.Errorf("TotalSales = %v, want 1500", got.Metrics.TotalSales)
	}
	if got.Matrices.CategoryRegion.Cell("食品", "東京") != 1000 {
		t.Errorf("category×region cell = %v, want 1000", got.Matrices.CategoryRegion.Cell("食品", "東京"))
	}
	if len(got.Histogram) != 2 || got.Histogram[0].Label != "20-24" || got.Histogram[1].Label != "35-39" {
		t.Errorf("unexpected histogram: %+v", got.Histogram)
	}
	if len(got.Filter.Categories) != 2 {
		t.Errorf("snapshot should carry its filter, got %+v", got.Filter)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt should be set")
	}

	stats := p.Stats()
	if stats.Issued != 1 || stats.Delivered != 1 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestPipeline_FailedRoundKeepsPreviousSnapshot(t *testing.T) {
	fetcher := newFakeFetcher()
	p := New(fetcher, observability.Discard())
	snaps := collect(t, p)

	p.Trigger(models.FilterSelection{})
	first := next(t, snaps)

	fetcher.mu.Lock()
	fetcher.metricsErr = errors.New("backend returned 500")
	fetcher.mu.Unlock()

	p.Trigger(models.FilterSelection{SatisfactionFilter: models.SatisfactionHigh})
	closePipeline(t, p)

	select {
	case s := <-snaps:
		t.Fatalf("failed round should publish nothing, got round %d", s.Round)
	default:
	}

	latest, ok := p.Latest()
	if !ok || latest.Round != first.Round {
		t.Errorf("Latest() = round %d, want %d", latest.Round, first.Round)
	}
	if stats := p.Stats(); stats.Failed != 1 || stats.Delivered != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestPipeline_StaleRoundIsDiscarded(t *testing.T) {
	for _, ignoreCtx := range []bool{false, true} {
		name := "fetcher honours cancellation"
		if ignoreCtx {
			name = "fetcher ignores cancellation"
		}
		t.Run(name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			fetcher.gate = make(chan struct{})
			fetcher.gateFor = models.SatisfactionLow
			fetcher.ignoreCtx = ignoreCtx

			p := New(fetcher, observability.Discard())
			snaps := collect(t, p)

			slow := p.Trigger(models.FilterSelection{SatisfactionFilter: models.SatisfactionLow})
			<-fetcher.salesCalled

			fast := p.Trigger(models.FilterSelection{SatisfactionFilter: models.SatisfactionHigh})
			got := next(t, snaps)
			if got.Round != fast {
				t.Fatalf("published round %d, want %d", got.Round, fast)
			}

			close(fetcher.gate)
			closePipeline(t, p)

			select {
			case s := <-snaps:
				t.Fatalf("superseded round %d was published", s.Round)
			default:
			}

			latest, _ := p.Latest()
			if latest.Round != fast || latest.Filter.SatisfactionFilter != models.SatisfactionHigh {
				t.Errorf("Latest() = round %d (%q), want round %d", latest.Round, latest.Filter.SatisfactionFilter, fast)
			}
			stats := p.Stats()
			if stats.Discarded != 1 || stats.Failed != 0 {
				t.Errorf("round %d: unexpected stats %+v", slow, stats)
			}
		})
	}
}

func TestPipeline_LateSubscriberGetsReplay(t *testing.T) {
	p := New(newFakeFetcher(), observability.Discard())
	early := collect(t, p)

	p.Trigger(models.FilterSelection{})
	want := next(t, early)

	var got []models.Snapshot
	unsubscribe := p.Subscribe(func(s models.Snapshot) { got = append(got, s) })
	defer unsubscribe()

	if len(got) != 1 || got[0].Round != want.Round {
		t.Fatalf("late subscriber got %d snapshots, want replay of round %d", len(got), want.Round)
	}
	closePipeline(t, p)
}

func TestPipeline_NoReplayBeforeFirstRound(t *testing.T) {
	p := New(newFakeFetcher(), observability.Discard())
	called := false
	p.Subscribe(func(models.Snapshot) { called = true })
	if called {
		t.Error("subscriber should not be called before any snapshot exists")
	}
	if _, ok := p.Latest(); ok {
		t.Error("Latest() should report no snapshot")
	}
}

func TestPipeline_AttachFollowsStore(t *testing.T) {
	fetcher := newFakeFetcher()
	p := New(fetcher, observability.Discard())
	snaps := collect(t, p)
	store := filters.NewStore(models.FilterSelection{Regions: []string{"東京"}})

	detach := p.Attach(store)
	first := next(t, snaps)
	if first.Filter.Regions[0] != "東京" {
		t.Errorf("attach should start a round for the current selection, got %+v", first.Filter)
	}

	store.Update(models.FilterSelection{Regions: []string{"大阪"}})
	second := next(t, snaps)
	if second.Round <= first.Round || second.Filter.Regions[0] != "大阪" {
		t.Errorf("second round = %d %+v", second.Round, second.Filter)
	}

	detach()
	store.Update(models.FilterSelection{})
	closePipeline(t, p)
	if issued := p.Stats().Issued; issued != 2 {
		t.Errorf("Issued = %d after detach, want 2", issued)
	}
}

func TestPipeline_TriggerAfterClose(t *testing.T) {
	p := New(newFakeFetcher(), observability.Discard())
	closePipeline(t, p)
	if id := p.Trigger(models.FilterSelection{}); id != 0 {
		t.Errorf("Trigger() after Close = %d, want 0", id)
	}
}

func TestPipeline_CloseDiscardsInFlightRound(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.gate = make(chan struct{})
	fetcher.gateFor = models.SatisfactionLow
	p := New(fetcher, observability.Discard())
	snaps := collect(t, p)

	p.Trigger(models.FilterSelection{SatisfactionFilter: models.SatisfactionLow})
	<-fetcher.salesCalled
	closePipeline(t, p)

	select {
	case s := <-snaps:
		t.Errorf("round cancelled by Close was published: %d", s.Round)
	default:
	}
	stats := p.Stats()
	if stats.Failed != 0 || stats.Discarded != 1 {
		t.Errorf("stats after Close = %+v, want 0 failed and 1 discarded", stats)
	}
}

func TestPipeline_TriggerRacingClose(t *testing.T) {
	p := New(newFakeFetcher(), observability.Discard())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Trigger(models.FilterSelection{})
		}()
	}
	closePipeline(t, p)
	stats := p.Stats()
	wg.Wait()

	if stats.Delivered+stats.Discarded+stats.Failed != stats.Issued {
		t.Errorf("Close returned with rounds still running: %+v", stats)
	}
	if after := p.Stats(); after != stats {
		t.Errorf("rounds started after Close: %+v, then %+v", stats, after)
	}
}

func TestPipeline_ConcurrentTriggersPublishInOrder(t *testing.T) {
	p := New(newFakeFetcher(), observability.Discard())

	var mu sync.Mutex
	var rounds []uint64
	p.Subscribe(func(s models.Snapshot) {
		mu.Lock()
		rounds = append(rounds, s.Round)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Trigger(models.FilterSelection{})
		}()
	}
	wg.Wait()
	closePipeline(t, p)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(rounds); i++ {
		if rounds[i] <= rounds[i-1] {
			t.Fatalf("rounds published out of order: %v", rounds)
		}
	}
	stats := p.Stats()
	if stats.Delivered+stats.Discarded+stats.Failed != stats.Issued {
		t.Errorf("every round should be accounted for: %+v", stats)
	}
}
