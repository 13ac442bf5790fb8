package geocode

import (
	"context"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// nominatimProvider wraps the OpenStreetMap geocoder. The underlying client
// has no context support, so each call runs in its own goroutine and is
// abandoned when the context ends.
type nominatimProvider struct {
	name     string
	opts     options
	geocoder geo.Geocoder
}

func newNominatim(o options) *nominatimProvider {
	var g geo.Geocoder
	if o.baseURL != "" {
		g = openstreetmap.GeocoderWithURL(o.baseURL)
	} else {
		g = openstreetmap.Geocoder()
	}
	return newNominatimWith(g, o)
}

func newNominatimWith(g geo.Geocoder, o options) *nominatimProvider {
	return &nominatimProvider{name: "nominatim", opts: o, geocoder: g}
}

func (n *nominatimProvider) Name() string { return n.name }

type geoOutcome[T any] struct {
	val *T
	err error
}

// call runs fn bounded by the provider timeout and converts panics in the
// third-party client into errors.
func call[T any](ctx context.Context, n *nominatimProvider, fn func() (*T, error)) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, n.opts.timeout)
	defer cancel()

	if err := n.opts.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	ch := make(chan geoOutcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- geoOutcome[T]{err: eris.Errorf("geocode: nominatim client panic: %v", r)}
			}
		}()
		v, err := fn()
		ch <- geoOutcome[T]{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "geocode: nominatim request")
	case out := <-ch:
		if out.err != nil {
			return nil, eris.Wrap(out.err, "geocode: nominatim request")
		}
		return out.val, nil
	}
}

func (n *nominatimProvider) Forward(ctx context.Context, query string) ForwardResult {
	loc, err := call(ctx, n, func() (*geo.Location, error) {
		return n.geocoder.Geocode(query)
	})
	if err != nil {
		return ForwardFailed(n.name, FailureTransport, err)
	}
	if loc == nil {
		return ForwardFailed(n.name, FailureNoResults, nil)
	}
	return ForwardOK(n.name, loc.Lat, loc.Lng)
}

func (n *nominatimProvider) Reverse(ctx context.Context, lat, lon float64) ReverseResult {
	addr, err := call(ctx, n, func() (*geo.Address, error) {
		return n.geocoder.ReverseGeocode(lat, lon)
	})
	if err != nil {
		return ReverseFailed(n.name, FailureTransport, err)
	}
	if addr == nil {
		return ReverseFailed(n.name, FailureNoResults, nil)
	}
	return reverseFrom(n.name, ReverseResult{
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.Postcode,
		Country:    addr.Country,
	})
}

// nominatimDefaultRate follows the public instance's usage policy.
var nominatimDefaultRate = rate.Limit(1)
