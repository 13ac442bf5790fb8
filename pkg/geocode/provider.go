// Package geocode adapts third-party mapping APIs (Google, HERE, Mapbox, Ola,
// OpenCage, Nominatim) to one forward/reverse geocoding interface.
//
// Providers never return errors or panic to the caller: every transport, HTTP
// or decoding problem is reported as a Result with OK=false and a Failure
// reason. Providers do not retry; retry policy belongs to the caller.
package geocode

import (
	"context"
	"fmt"
)

// Failure classifies why a provider call produced no usable value.
type Failure string

const (
	// FailureNone means the call succeeded.
	FailureNone Failure = ""
	// FailureTransport covers network errors, timeouts and non-200 responses.
	FailureTransport Failure = "transport"
	// FailureParse means the response could not be decoded.
	FailureParse Failure = "parse"
	// FailureNoResults means the provider answered but found nothing.
	FailureNoResults Failure = "no_results"
	// FailureCircuitOpen means the call was skipped because the provider is unhealthy.
	FailureCircuitOpen Failure = "circuit_open"
	// FailurePanic means the provider implementation panicked.
	FailurePanic Failure = "panic"
)

// ForwardResult is the outcome of converting free text to coordinates.
type ForwardResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	OK        bool    `json:"ok"`
	Failure   Failure `json:"failure,omitempty"`
	Source    string  `json:"source"`
	Err       error   `json:"-"`
}

// ReverseResult is the outcome of converting coordinates to address parts.
// Fields the provider did not return are left empty.
type ReverseResult struct {
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Country    string  `json:"country,omitempty"`
	OK         bool    `json:"ok"`
	Failure    Failure `json:"failure,omitempty"`
	Source     string  `json:"source"`
	Err        error   `json:"-"`
}

// Provider is a single geocoding backend with its credentials bound.
type Provider interface {
	Name() string
	Forward(ctx context.Context, query string) ForwardResult
	Reverse(ctx context.Context, lat, lon float64) ReverseResult
}

// ForwardOK builds a successful forward result.
func ForwardOK(source string, lat, lon float64) ForwardResult {
	return ForwardResult{Latitude: lat, Longitude: lon, OK: true, Source: source}
}

// ForwardFailed builds a failed forward result.
func ForwardFailed(source string, f Failure, err error) ForwardResult {
	return ForwardResult{Failure: f, Source: source, Err: err}
}

// ReverseFailed builds a failed reverse result.
func ReverseFailed(source string, f Failure, err error) ReverseResult {
	return ReverseResult{Failure: f, Source: source, Err: err}
}

// reverseFrom marks r OK if any address part was found.
func reverseFrom(source string, r ReverseResult) ReverseResult {
	r.Source = source
	if r.City == "" && r.State == "" && r.PostalCode == "" && r.Country == "" {
		r.Failure = FailureNoResults
		return r
	}
	r.OK = true
	return r
}

func latLng(lat, lon float64) string {
	return fmt.Sprintf("%f,%f", lat, lon)
}
