package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	loc   *geo.Location
	addr  *geo.Address
	err   error
	delay time.Duration
	panic bool
}

func (f *fakeGeocoder) Geocode(string) (*geo.Location, error) {
	time.Sleep(f.delay)
	if f.panic {
		panic("boom")
	}
	return f.loc, f.err
}

func (f *fakeGeocoder) ReverseGeocode(float64, float64) (*geo.Address, error) {
	time.Sleep(f.delay)
	return f.addr, f.err
}

func newTestNominatim(g geo.Geocoder, opts ...Option) *nominatimProvider {
	return newNominatimWith(g, newOptions(opts))
}

func TestNominatimForward(t *testing.T) {
	p := newTestNominatim(&fakeGeocoder{loc: &geo.Location{Lat: 28.6139, Lng: 77.209}})

	res := p.Forward(context.Background(), "India Gate")
	require.True(t, res.OK)
	assert.InDelta(t, 28.6139, res.Latitude, 0.0001)
	assert.Equal(t, "nominatim", res.Source)
}

func TestNominatimForward_NotFound(t *testing.T) {
	res := newTestNominatim(&fakeGeocoder{}).Forward(context.Background(), "x")
	assert.Equal(t, FailureNoResults, res.Failure)
}

func TestNominatimForward_Error(t *testing.T) {
	res := newTestNominatim(&fakeGeocoder{err: errors.New("dial tcp")}).Forward(context.Background(), "x")
	assert.Equal(t, FailureTransport, res.Failure)
	require.Error(t, res.Err)
}

func TestNominatimForward_Timeout(t *testing.T) {
	p := newTestNominatim(&fakeGeocoder{delay: 200 * time.Millisecond}, WithTimeout(10*time.Millisecond))

	res := p.Forward(context.Background(), "x")
	assert.Equal(t, FailureTransport, res.Failure)
}

func TestNominatimForward_ClientPanic(t *testing.T) {
	res := newTestNominatim(&fakeGeocoder{panic: true}).Forward(context.Background(), "x")
	assert.Equal(t, FailureTransport, res.Failure)
	assert.Contains(t, res.Err.Error(), "panic")
}

func TestNominatimReverse(t *testing.T) {
	p := newTestNominatim(&fakeGeocoder{addr: &geo.Address{
		City: "Delhi", State: "Delhi", Postcode: "110001", Country: "India",
	}})

	res := p.Reverse(context.Background(), 28.6139, 77.209)
	require.True(t, res.OK)
	assert.Equal(t, "Delhi", res.City)
	assert.Equal(t, "110001", res.PostalCode)
}

func TestNew_NominatimDefaultsToOneRequestPerSecond(t *testing.T) {
	p, err := New(Nominatim, Credentials{})
	require.NoError(t, err)
	n, ok := p.(*nominatimProvider)
	require.True(t, ok)
	assert.InDelta(t, 1.0, float64(n.opts.limiter.Limit()), 0.0001)
}

func TestNew_NominatimUsesSharedLimiter(t *testing.T) {
	l := NewLimiter(Nominatim, 0)

	a, err := New(Nominatim, Credentials{}, WithLimiter(l))
	require.NoError(t, err)
	b, err := New(Nominatim, Credentials{}, WithLimiter(l), WithLimiter(nil))
	require.NoError(t, err)

	assert.Same(t, l, a.(*nominatimProvider).opts.limiter)
	assert.Same(t, l, b.(*nominatimProvider).opts.limiter)
}
