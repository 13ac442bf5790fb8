package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWorkers is the worker count when none is configured.
	DefaultWorkers = 10
	// MaxWorkers caps concurrent provider traffic.
	MaxWorkers = 20
)

// ProgressFunc receives the number of finished records and the total. Calls
// are serialized.
type ProgressFunc func(done, total int)

// Summary describes a finished batch.
type Summary struct {
	RunID      string        `json:"run_id"`
	Provider   string        `json:"provider"`
	Total      int           `json:"total"`
	Success    int           `json:"success"`
	Incomplete int           `json:"incomplete"`
	Failed     int           `json:"failed"`
	Geocoded   int           `json:"geocoded"`
	Defaulted  int           `json:"defaulted"`
	Duration   time.Duration `json:"duration_ns"`
}

// RecordResolver resolves a single record. *Resolver is the production
// implementation.
type RecordResolver interface {
	Resolve(ctx context.Context, rec AddressRecord) EnrichedRecord
	Provider() string
}

// Runner resolves a batch of records concurrently.
type Runner struct {
	resolver RecordResolver
	workers  int
	progress ProgressFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers sets the worker count, clamped to [1, MaxWorkers]. Zero or
// less selects DefaultWorkers.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = ClampWorkers(n)
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) RunnerOption {
	return func(r *Runner) {
		r.progress = fn
	}
}

// ClampWorkers normalizes a configured worker count.
func ClampWorkers(n int) int {
	switch {
	case n <= 0:
		return DefaultWorkers
	case n > MaxWorkers:
		return MaxWorkers
	default:
		return n
	}
}

// NewRunner creates a Runner around resolver.
func NewRunner(resolver RecordResolver, opts ...RunnerOption) *Runner {
	r := &Runner{resolver: resolver, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Workers returns the effective worker count.
func (r *Runner) Workers() int { return r.workers }

// Run resolves every record and returns results in input order. A record
// that panics, or that was not started before ctx ended, is returned as
// Failed; the batch itself always completes.
func (r *Runner) Run(ctx context.Context, records []AddressRecord) ([]EnrichedRecord, Summary) {
	start := time.Now()
	summary := Summary{
		RunID:    uuid.New().String(),
		Provider: r.resolver.Provider(),
		Total:    len(records),
	}
	log := zap.L().With(zap.String("run_id", summary.RunID), zap.String("provider", summary.Provider))
	log.Info("enrich: batch started", zap.Int("records", len(records)), zap.Int("workers", r.workers))

	results := make([]EnrichedRecord, len(records))

	var (
		mu   sync.Mutex
		done int
	)
	finish := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if r.progress != nil {
			r.progress(done, len(records))
		}
	}

	var g errgroup.Group
	g.SetLimit(r.workers)

	for i, rec := range records {
		g.Go(func() error {
			defer finish()
			if err := ctx.Err(); err != nil {
				results[i] = failedRecord(rec, err.Error())
				return nil //nolint:nilerr // cancelled records are reported per row
			}
			results[i] = r.resolveOne(ctx, i, rec, log)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		switch res.Status {
		case StatusSuccess:
			summary.Success++
		case StatusIncomplete:
			summary.Incomplete++
		default:
			summary.Failed++
		}
		if res.UsedFallbackGeocode {
			summary.Geocoded++
		}
		if res.UsedStaticDefault {
			summary.Defaulted++
		}
	}
	summary.Duration = time.Since(start)

	log.Info("enrich: batch complete",
		zap.Int("success", summary.Success),
		zap.Int("incomplete", summary.Incomplete),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return results, summary
}

func (r *Runner) resolveOne(ctx context.Context, row int, rec AddressRecord, log *zap.Logger) (out EnrichedRecord) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("enrich: record panicked", zap.Int("row", row), zap.Any("panic", p))
			out = failedRecord(rec, fmt.Sprintf("unexpected error: %v", p))
		}
	}()
	out = r.resolver.Resolve(ctx, rec)
	log.Debug("enrich: record resolved", zap.Int("row", row), zap.String("status", string(out.Status)))
	return out
}
