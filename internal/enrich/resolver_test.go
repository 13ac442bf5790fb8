package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geo-enrich/internal/fallback"
	"github.com/sells-group/geo-enrich/pkg/geocode"
)

func TestResolve_FullEnrichmentFromProvider(t *testing.T) {
	p := &stubProvider{
		forward: forwardTo(12.97, 77.59),
		reverse: reverseTo("Bengaluru", "Karnataka", "560001"),
	}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{Address: "1 MG Road"})

	require.True(t, out.HasCoordinates())
	assert.InDelta(t, 12.97, *out.Latitude, 1e-9)
	assert.InDelta(t, 77.59, *out.Longitude, 1e-9)
	assert.Equal(t, "Bengaluru", out.City)
	assert.Equal(t, "Karnataka", out.State)
	assert.Equal(t, "560001", out.PostalCode)
	assert.True(t, out.UsedFallbackGeocode)
	assert.False(t, out.UsedStaticDefault)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{
		NoteLatEnriched, NoteLonEnriched, NoteCityReverse, NoteStateReverse, NotePINReverse,
	}, out.CorrectionNotes)
}

func TestResolve_ValidInputNeverOverwritten(t *testing.T) {
	p := &stubProvider{
		forward: forwardTo(1, 2),
		reverse: reverseTo("Chennai", "Tamil Nadu", "600001"),
	}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{
		Address: "Fort", City: "Mumbai", State: "Maharashtra", PostalCode: "400001",
	})

	assert.Equal(t, "Mumbai", out.City)
	assert.Equal(t, "Maharashtra", out.State)
	assert.Equal(t, "400001", out.PostalCode)
	assert.InDelta(t, 1.0, *out.Latitude, 1e-9)
	assert.Equal(t, int32(0), p.reverseCalls.Load())
	assert.Equal(t, []string{NoteLatEnriched, NoteLonEnriched}, out.CorrectionNotes)
}

func TestResolve_NoForwardWhenCoordinatesPresent(t *testing.T) {
	p := &stubProvider{forward: forwardTo(1, 2)}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{
		Address: "x", City: "Mumbai", State: "Maharashtra", PostalCode: "400001",
		Latitude: "18.94", Longitude: "72.83",
	})

	assert.Equal(t, int32(0), p.forwardCalls.Load())
	assert.Equal(t, int32(0), p.reverseCalls.Load())
	assert.False(t, out.UsedFallbackGeocode)
	assert.InDelta(t, 18.94, *out.Latitude, 1e-9)
	assert.Empty(t, out.CorrectionNotes)
	assert.Equal(t, StatusSuccess, out.Status)
}

func TestResolve_StaticDefaultsWhenProviderFails(t *testing.T) {
	p := failingProvider()
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{City: "Delhi"})

	assert.Equal(t, "Delhi", out.State)
	assert.Equal(t, "110001", out.PostalCode)
	require.True(t, out.HasCoordinates())
	assert.InDelta(t, 28.6139, *out.Latitude, 1e-9)
	assert.InDelta(t, 77.2090, *out.Longitude, 1e-9)
	assert.True(t, out.UsedStaticDefault)
	assert.False(t, out.UsedFallbackGeocode)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{NoteDefaultState, NoteDefaultPIN, NoteDefaultLat, NoteDefaultLon}, out.CorrectionNotes)
}

func TestResolve_ReversePanicStillAppliesDefaults(t *testing.T) {
	p := &stubProvider{
		forward: forwardTo(28.6, 77.2),
		reverse: func(float64, float64) geocode.ReverseResult { panic("reverse exploded") },
	}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{Address: "Connaught Place", City: "Delhi"})

	assert.NotEqual(t, StatusFailed, out.Status)
	assert.Equal(t, "Delhi", out.State)
	assert.Equal(t, "110001", out.PostalCode)
	assert.True(t, out.UsedStaticDefault)
	assert.InDelta(t, 28.6, *out.Latitude, 1e-9)
	assert.Equal(t, StatusSuccess, out.Status)
}

func TestResolve_ForwardPanicIsShielded(t *testing.T) {
	p := &stubProvider{forward: func(string) geocode.ForwardResult { panic("forward exploded") }}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{Address: "somewhere"})

	assert.Equal(t, StatusIncomplete, out.Status)
	assert.False(t, out.HasCoordinates())
	assert.Empty(t, out.CorrectionNotes)
}

func TestResolve_StrictReverseRejectsUnknownCity(t *testing.T) {
	p := &stubProvider{reverse: reverseTo("Bangalore Urban", "Karnataka", "5600")}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{Latitude: "12.97", Longitude: "77.59"})

	assert.Empty(t, out.City)
	assert.Equal(t, "Karnataka", out.State)
	assert.Empty(t, out.PostalCode)
	assert.Equal(t, StatusIncomplete, out.Status)
	assert.Equal(t, []string{NoteStateReverse}, out.CorrectionNotes)
}

func TestResolve_AdoptReverseUnchecked(t *testing.T) {
	p := &stubProvider{reverse: reverseTo("Pune", "Maharashtra", "411001")}
	r := NewResolver(p, fallback.Default(), AdoptReverseUnchecked())

	out := r.Resolve(context.Background(), AddressRecord{Latitude: "18.52", Longitude: "73.85"})

	assert.Equal(t, "Pune", out.City)
	assert.Equal(t, "411001", out.PostalCode)
	assert.Equal(t, StatusSuccess, out.Status)
}

func TestResolve_UncheckedStateOutranksDefault(t *testing.T) {
	p := &stubProvider{reverse: reverseTo("", "NCT", "")}
	r := NewResolver(p, fallback.Default(), AdoptReverseUnchecked())

	out := r.Resolve(context.Background(), AddressRecord{City: "Delhi", Latitude: "28.61", Longitude: "77.20"})

	assert.Equal(t, "NCT", out.State)
	assert.Equal(t, "110001", out.PostalCode)
	assert.True(t, out.UsedStaticDefault)
	assert.Equal(t, []string{NoteStateReverse, NoteDefaultPIN}, out.CorrectionNotes)
}

func TestResolve_UncheckedBlankStateGetsDefault(t *testing.T) {
	p := &stubProvider{reverse: reverseTo("", "", "")}
	r := NewResolver(p, fallback.Default(), AdoptReverseUnchecked())

	out := r.Resolve(context.Background(), AddressRecord{City: "Delhi", Latitude: "28.61", Longitude: "77.20"})

	assert.Equal(t, "Delhi", out.State)
	assert.Equal(t, []string{NoteDefaultState, NoteDefaultPIN}, out.CorrectionNotes)
}

func TestResolve_StrictUnknownStateReplacedByDefault(t *testing.T) {
	r := NewResolver(nil, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{City: "Delhi", State: "NCT"})

	assert.Equal(t, "Delhi", out.State)
	assert.Contains(t, out.CorrectionNotes, NoteDefaultState)
}

func TestResolve_LoneCoordinateReplacedAsPair(t *testing.T) {
	p := &stubProvider{forward: forwardTo(19.07, 72.87)}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{Address: "Bandra", Latitude: "19.07"})

	assert.Equal(t, int32(1), p.forwardCalls.Load())
	require.True(t, out.HasCoordinates())
	assert.InDelta(t, 72.87, *out.Longitude, 1e-9)
	assert.Equal(t, []string{NoteLonEnriched}, out.CorrectionNotes)
}

func TestResolve_OutOfRangeProviderCoordinatesIgnored(t *testing.T) {
	p := &stubProvider{forward: forwardTo(123, 77)}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{Address: "x"})

	assert.False(t, out.HasCoordinates())
	assert.False(t, out.UsedFallbackGeocode)
}

func TestResolve_BlankAddressUsesKnownParts(t *testing.T) {
	var got string
	p := &stubProvider{forward: func(q string) geocode.ForwardResult {
		got = q
		return geocode.ForwardFailed("stub", geocode.FailureNoResults, nil)
	}}
	r := NewResolver(p, fallback.Default())

	r.Resolve(context.Background(), AddressRecord{City: "Pune", PostalCode: "411001"})
	assert.Equal(t, "Pune, 411001", got)
}

func TestResolve_EmptyRecordSkipsProvider(t *testing.T) {
	p := &stubProvider{}
	r := NewResolver(p, fallback.Default())

	out := r.Resolve(context.Background(), AddressRecord{})

	assert.Equal(t, int32(0), p.forwardCalls.Load())
	assert.Equal(t, StatusIncomplete, out.Status)
	assert.Empty(t, out.CorrectionNotes)
}

func TestResolve_NilProviderStaticOnly(t *testing.T) {
	r := NewResolver(nil, nil)

	out := r.Resolve(context.Background(), AddressRecord{City: "Kolkata"})

	assert.Equal(t, "West Bengal", out.State)
	assert.Equal(t, "700001", out.PostalCode)
	assert.True(t, out.UsedStaticDefault)
	assert.Empty(t, r.Provider())
}

func TestResolve_NotesMatchChangedFields(t *testing.T) {
	p := &stubProvider{
		forward: forwardTo(13.08, 80.27),
		reverse: reverseTo("Chennai", "Tamil Nadu", "600002"),
	}
	r := NewResolver(p, fallback.Default())

	in := AddressRecord{Address: "Marina", City: "Chennai"}
	out := r.Resolve(context.Background(), in)

	changed := 0
	if out.State != in.State {
		changed++
	}
	if out.PostalCode != in.PostalCode {
		changed++
	}
	if out.City != in.City {
		changed++
	}
	changed += 2 // both coordinates were absent
	assert.Len(t, out.CorrectionNotes, changed)
}

func TestRecordHelpers(t *testing.T) {
	lat := 12.5
	e := EnrichedRecord{Latitude: &lat, CorrectionNotes: []string{"a", "b"}}
	assert.False(t, e.HasCoordinates())
	assert.Equal(t, "a, b", e.Notes())
	assert.Equal(t, "12.5", FormatCoordinate(&lat))
	assert.Equal(t, "", FormatCoordinate(nil))
}

func TestParseCoordinate(t *testing.T) {
	v, ok := parseCoordinate(" 28.6139 ", 90)
	assert.True(t, ok)
	assert.InDelta(t, 28.6139, v, 1e-9)

	for _, bad := range []string{"", "abc", "NaN", "Inf", "91", "-90.5"} {
		_, ok := parseCoordinate(bad, 90)
		assert.False(t, ok, bad)
	}
}
