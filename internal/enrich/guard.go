package enrich

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/geo-enrich/internal/resilience"
	"github.com/sells-group/geo-enrich/pkg/geocode"
)

var errTransport = errors.New("provider transport failure")

// GuardedProvider adds runner-owned retry and a circuit breaker around a
// provider. Only transport failures count against the breaker and only
// transient ones are retried.
type GuardedProvider struct {
	inner   geocode.Provider
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// Guard wraps p. A zero retry config means a single attempt; a nil or
// disabled breaker never rejects calls.
func Guard(p geocode.Provider, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *GuardedProvider {
	return &GuardedProvider{inner: p, retry: retry, breaker: breaker}
}

func (g *GuardedProvider) Name() string { return g.inner.Name() }

// Breaker exposes the circuit breaker for status reporting.
func (g *GuardedProvider) Breaker() *resilience.CircuitBreaker { return g.breaker }

func (g *GuardedProvider) Forward(ctx context.Context, query string) geocode.ForwardResult {
	if err := g.breaker.Allow(); err != nil {
		return geocode.ForwardFailed(g.Name(), geocode.FailureCircuitOpen, err)
	}
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(g.Name(), "forward")
	}
	res, _ := resilience.DoVal(ctx, cfg, nil, func(ctx context.Context) (geocode.ForwardResult, error) {
		r := g.inner.Forward(ctx, query)
		return r, transportErr(r.Failure, r.Err)
	})
	g.record(ctx, res.Failure)
	return res
}

func (g *GuardedProvider) Reverse(ctx context.Context, lat, lon float64) geocode.ReverseResult {
	if err := g.breaker.Allow(); err != nil {
		return geocode.ReverseFailed(g.Name(), geocode.FailureCircuitOpen, err)
	}
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(g.Name(), "reverse")
	}
	res, _ := resilience.DoVal(ctx, cfg, nil, func(ctx context.Context) (geocode.ReverseResult, error) {
		r := g.inner.Reverse(ctx, lat, lon)
		return r, transportErr(r.Failure, r.Err)
	})
	g.record(ctx, res.Failure)
	return res
}

// record feeds the breaker. Calls cut short by the caller's context say
// nothing about provider health.
func (g *GuardedProvider) record(ctx context.Context, f geocode.Failure) {
	if ctx.Err() != nil {
		g.breaker.Release()
		return
	}
	g.breaker.Record(f == geocode.FailureTransport)
}

func transportErr(f geocode.Failure, err error) error {
	if f != geocode.FailureTransport {
		return nil
	}
	if err == nil {
		return errTransport
	}
	return err
}

// NewBreaker builds a breaker that logs its transitions for provider.
func NewBreaker(provider string, cfg resilience.BreakerConfig) *resilience.CircuitBreaker {
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = func(from, to resilience.CircuitState) {
			zap.L().Warn("enrich: provider circuit changed state",
				zap.String("provider", provider),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return resilience.NewCircuitBreaker(cfg)
}
