// Package ingestworker runs the sheet refresh cycle: one concurrent fetch
// per device category, joined so downstream consumers see a settled loading
// flag, with per-category failure isolation.
package ingestworker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"citygrid/core-go/internal/device"
	"citygrid/core-go/internal/metrics"
	"citygrid/core-go/internal/sheets"
)

// Fetcher retrieves raw rows for one source. *sheets.Client satisfies this.
type Fetcher interface {
	FetchRows(ctx context.Context, src sheets.Source) ([]device.RawRow, error)
}

// Inventory is the minimal store surface the worker needs.
type Inventory interface {
	ReplaceRows(cat device.Category, rows []device.RawRow)
}

type Options struct {
	Sources      []sheets.Source
	Interval     time.Duration
	FetchTimeout time.Duration
}

// CycleStats describes the most recent completed refresh cycle.
type CycleStats struct {
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Succeeded  int                     `json:"succeeded"`
	Failed     int                     `json:"failed"`
	Rows       map[device.Category]int `json:"rows"`
}

type Worker struct {
	log          zerolog.Logger
	fetcher      Fetcher
	inv          Inventory
	sources      []sheets.Source
	interval     time.Duration
	fetchTimeout time.Duration
	metrics      *metrics.Metrics

	refreshCh chan struct{}

	mu      sync.Mutex
	loading bool
	ready   bool
	last    CycleStats
}

func New(log zerolog.Logger, fetcher Fetcher, inv Inventory, opts Options, m *metrics.Metrics) *Worker {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}

	return &Worker{
		log:          log,
		fetcher:      fetcher,
		inv:          inv,
		sources:      opts.Sources,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		metrics:      m,
		refreshCh:    make(chan struct{}, 1),
	}
}

// Run executes an immediate cycle, then refreshes on the interval or on
// RefreshNow. Cycles where every category fails back off exponentially.
// Cancelling ctx cancels in-flight fetches and exits the loop.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.fetcher == nil || w.inv == nil {
		return
	}

	var consecutiveFailures int
	w.runCycle(ctx)

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-w.refreshCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		stats := w.runCycle(ctx)
		if len(w.sources) > 0 && stats.Failed == len(w.sources) {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}

		timer.Reset(backoffDuration(w.interval, consecutiveFailures))
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 5 * time.Minute
	}
	if failures <= 0 {
		return base
	}

	// Exponential-ish backoff: base * 2^failures, capped.
	if failures > 4 {
		failures = 4
	}
	d := base * time.Duration(1<<failures)
	if d > time.Hour {
		return time.Hour
	}
	return d
}

// RefreshNow requests an out-of-band cycle. Non-blocking; a request while
// one is already pending is absorbed.
func (w *Worker) RefreshNow() {
	if w == nil {
		return
	}
	select {
	case w.refreshCh <- struct{}{}:
	default:
	}
}

// Loading reports whether a cycle is in flight. The flag flips only after
// every category fetch has settled, success or failure.
func (w *Worker) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// Ready reports whether at least one full cycle has settled.
func (w *Worker) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

func (w *Worker) LastCycle() CycleStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	stats := w.last
	rows := make(map[device.Category]int, len(stats.Rows))
	for k, v := range stats.Rows {
		rows[k] = v
	}
	stats.Rows = rows
	return stats
}

func (w *Worker) runCycle(ctx context.Context) CycleStats {
	stats := CycleStats{
		StartedAt: time.Now(),
		Rows:      make(map[device.Category]int, len(w.sources)),
	}

	w.mu.Lock()
	w.loading = true
	w.mu.Unlock()

	var wg sync.WaitGroup
	var resultMu sync.Mutex

	for _, src := range w.sources {
		wg.Add(1)
		go func(src sheets.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
			defer cancel()

			rows, err := w.fetcher.FetchRows(fetchCtx, src)
			if err != nil {
				// Keep the previous snapshot; stale data beats a blank map.
				w.log.Error().Err(err).Str("category", string(src.Category)).Msg("sheet fetch failed")
				w.metrics.IncFetchFailure(string(src.Category))
				resultMu.Lock()
				stats.Failed++
				resultMu.Unlock()
				return
			}

			w.inv.ReplaceRows(src.Category, rows)
			w.metrics.AddRowsFetched(string(src.Category), len(rows))

			dropped := 0
			for _, row := range rows {
				if _, ok := device.FromRow(src.Category, row); !ok {
					dropped++
				}
			}
			w.metrics.AddRowsDropped(string(src.Category), dropped)

			resultMu.Lock()
			stats.Succeeded++
			stats.Rows[src.Category] = len(rows)
			resultMu.Unlock()
		}(src)
	}

	wg.Wait()
	stats.FinishedAt = time.Now()

	w.mu.Lock()
	w.loading = false
	w.ready = true
	w.last = stats
	w.mu.Unlock()

	w.metrics.IncIngestRun()
	w.metrics.ObserveIngestRunDuration(stats.FinishedAt.Sub(stats.StartedAt))

	w.log.Info().
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Int64("duration_ms", stats.FinishedAt.Sub(stats.StartedAt).Milliseconds()).
		Msg("ingest cycle finished")

	return stats
}
