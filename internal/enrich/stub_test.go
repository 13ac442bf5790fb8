package enrich

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sells-group/geo-enrich/pkg/geocode"
)

// stubProvider is a call-counting provider with programmable answers.
type stubProvider struct {
	forward      func(query string) geocode.ForwardResult
	reverse      func(lat, lon float64) geocode.ReverseResult
	forwardCalls atomic.Int32
	reverseCalls atomic.Int32
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Forward(_ context.Context, query string) geocode.ForwardResult {
	s.forwardCalls.Add(1)
	if s.forward == nil {
		return geocode.ForwardFailed("stub", geocode.FailureNoResults, nil)
	}
	return s.forward(query)
}

func (s *stubProvider) Reverse(_ context.Context, lat, lon float64) geocode.ReverseResult {
	s.reverseCalls.Add(1)
	if s.reverse == nil {
		return geocode.ReverseFailed("stub", geocode.FailureNoResults, nil)
	}
	return s.reverse(lat, lon)
}

func forwardTo(lat, lon float64) func(string) geocode.ForwardResult {
	return func(string) geocode.ForwardResult { return geocode.ForwardOK("stub", lat, lon) }
}

func reverseTo(city, state, pin string) func(float64, float64) geocode.ReverseResult {
	return func(float64, float64) geocode.ReverseResult {
		return geocode.ReverseResult{City: city, State: state, PostalCode: pin, OK: true, Source: "stub"}
	}
}

// failingProvider fails every call with a transport error.
func failingProvider() *stubProvider {
	errDown := errors.New("connection refused")
	return &stubProvider{
		forward: func(string) geocode.ForwardResult {
			return geocode.ForwardFailed("stub", geocode.FailureTransport, errDown)
		},
		reverse: func(float64, float64) geocode.ReverseResult {
			return geocode.ReverseFailed("stub", geocode.FailureTransport, errDown)
		},
	}
}
