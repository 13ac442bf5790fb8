package enrich

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/geo-enrich/internal/fallback"
	"github.com/sells-group/geo-enrich/internal/validate"
	"github.com/sells-group/geo-enrich/pkg/geocode"
)

// Resolver applies input > provider > static default precedence to one
// record. It holds only read-only state and is safe for concurrent use.
type Resolver struct {
	provider       geocode.Provider
	table          *fallback.Table
	known          *validate.KnownSet
	adoptUnchecked bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithKnownSet overrides the known city/state set derived from the table.
func WithKnownSet(k *validate.KnownSet) ResolverOption {
	return func(r *Resolver) {
		r.known = k
	}
}

// AdoptReverseUnchecked makes the resolver accept any non-empty city or state
// from reverse geocoding, even when it is not in the known set, and limits the
// static default state to rows whose state is blank. Postal codes are always
// format-checked.
func AdoptReverseUnchecked() ResolverOption {
	return func(r *Resolver) {
		r.adoptUnchecked = true
	}
}

// NewResolver creates a Resolver. A nil provider restricts resolution to the
// static table; a nil table means the built-in defaults.
func NewResolver(p geocode.Provider, table *fallback.Table, opts ...ResolverOption) *Resolver {
	if table == nil {
		table = fallback.Default()
	}
	r := &Resolver{provider: p, table: table, known: table.Known()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Provider returns the provider name, or "" when resolving statically.
func (r *Resolver) Provider() string {
	if r.provider == nil {
		return ""
	}
	return r.provider.Name()
}

// Resolve produces the enriched form of rec. Provider failures never abort
// resolution; they only leave the corresponding step without a candidate.
func (r *Resolver) Resolve(ctx context.Context, rec AddressRecord) EnrichedRecord {
	s := newResolution(rec)

	// 1. Coordinates.
	if !s.out.HasCoordinates() && r.provider != nil {
		if query := forwardQuery(rec); query != "" {
			res := r.forward(ctx, query)
			if res.OK && validPair(res.Latitude, res.Longitude) {
				s.setLat(res.Latitude, NoteLatEnriched)
				s.setLon(res.Longitude, NoteLonEnriched)
				s.out.UsedFallbackGeocode = true
			}
		}
	}

	// 2. Field quality.
	cityOK := r.known.IsKnownCity(s.out.City)
	stateOK := r.known.IsKnownState(s.out.State)
	pinOK := validate.IsValidPostalCode(s.out.PostalCode)

	// 3. Reverse fill.
	if s.out.HasCoordinates() && r.provider != nil && (!cityOK || !stateOK || !pinOK) {
		res := r.reverse(ctx, *s.out.Latitude, *s.out.Longitude)
		if res.OK {
			city := strings.TrimSpace(res.City)
			state := strings.TrimSpace(res.State)
			pin := strings.TrimSpace(res.PostalCode)
			if !cityOK && r.acceptCity(city) {
				s.setText(fieldCity, city, NoteCityReverse)
			}
			if !stateOK && r.acceptState(state) {
				s.setText(fieldState, state, NoteStateReverse)
			}
			if !pinOK && validate.IsValidPostalCode(pin) {
				s.setText(fieldPostal, pin, NotePINReverse)
			}
		}
	}

	// 4. Static defaults keyed by the possibly updated city.
	if entry, ok := r.table.Lookup(s.out.City); ok {
		if r.needsDefaultState(s.out.State) && entry.State != "" {
			s.setText(fieldState, entry.State, NoteDefaultState)
			s.out.UsedStaticDefault = true
		}
		if !validate.IsValidPostalCode(s.out.PostalCode) && entry.PostalCode != "" {
			s.setText(fieldPostal, entry.PostalCode, NoteDefaultPIN)
			s.out.UsedStaticDefault = true
		}
		if !s.out.HasCoordinates() {
			s.setLat(entry.Latitude, NoteDefaultLat)
			s.setLon(entry.Longitude, NoteDefaultLon)
			s.out.UsedStaticDefault = true
		}
	}

	// 5. Status.
	return s.finish()
}

func (r *Resolver) acceptCity(v string) bool {
	if r.adoptUnchecked {
		return v != ""
	}
	return r.known.IsKnownCity(v)
}

func (r *Resolver) acceptState(v string) bool {
	if r.adoptUnchecked {
		return v != ""
	}
	return r.known.IsKnownState(v)
}

// needsDefaultState reports whether step 4 may overwrite state. In the
// unchecked mode a provider-supplied state outranks the table, so only a
// blank state is filled.
func (r *Resolver) needsDefaultState(state string) bool {
	if r.adoptUnchecked {
		return state == ""
	}
	return !r.known.IsKnownState(state)
}

// forward calls the provider, converting a panic into a failed result.
func (r *Resolver) forward(ctx context.Context, query string) (res geocode.ForwardResult) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Warn("enrich: forward geocode panicked",
				zap.String("provider", r.provider.Name()), zap.Any("panic", p))
			res = geocode.ForwardFailed(r.provider.Name(), geocode.FailurePanic, fmt.Errorf("provider panic: %v", p))
		}
	}()
	return r.provider.Forward(ctx, query)
}

// reverse calls the provider, converting a panic into a failed result.
func (r *Resolver) reverse(ctx context.Context, lat, lon float64) (res geocode.ReverseResult) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Warn("enrich: reverse geocode panicked",
				zap.String("provider", r.provider.Name()), zap.Any("panic", p))
			res = geocode.ReverseFailed(r.provider.Name(), geocode.FailurePanic, fmt.Errorf("provider panic: %v", p))
		}
	}()
	return r.provider.Reverse(ctx, lat, lon)
}

// forwardQuery is the free-text address, or the known parts of the address
// when the free text is blank.
func forwardQuery(rec AddressRecord) string {
	if q := strings.TrimSpace(rec.Address); q != "" {
		return q
	}
	var parts []string
	for _, p := range []string{rec.City, rec.State, rec.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type field int

const (
	fieldLat field = iota
	fieldLon
	fieldCity
	fieldState
	fieldPostal
)

type note struct {
	field field
	tag   string
}

// resolution tracks one record's working values and the note for each field
// that currently differs from its input.
type resolution struct {
	in    AddressRecord
	inLat *float64
	inLon *float64
	out   EnrichedRecord
	notes []note
}

func newResolution(rec AddressRecord) *resolution {
	s := &resolution{in: rec}
	s.out.City = strings.TrimSpace(rec.City)
	s.out.State = strings.TrimSpace(rec.State)
	s.out.PostalCode = strings.TrimSpace(rec.PostalCode)

	if lat, ok := parseCoordinate(rec.Latitude, 90); ok {
		s.inLat = &lat
	}
	if lon, ok := parseCoordinate(rec.Longitude, 180); ok {
		s.inLon = &lon
	}
	s.out.Latitude = s.inLat
	s.out.Longitude = s.inLon
	return s
}

func (s *resolution) setLat(v float64, tag string) {
	s.out.Latitude = &v
	s.track(fieldLat, s.inLat != nil && *s.inLat == v, tag)
}

func (s *resolution) setLon(v float64, tag string) {
	s.out.Longitude = &v
	s.track(fieldLon, s.inLon != nil && *s.inLon == v, tag)
}

func (s *resolution) setText(f field, v, tag string) {
	var orig string
	switch f {
	case fieldCity:
		s.out.City, orig = v, s.in.City
	case fieldState:
		s.out.State, orig = v, s.in.State
	case fieldPostal:
		s.out.PostalCode, orig = v, s.in.PostalCode
	}
	s.track(f, strings.TrimSpace(orig) == v, tag)
}

// track keeps at most one note per field, positioned at the step that last
// changed it. A field set back to its input value carries no note.
func (s *resolution) track(f field, unchanged bool, tag string) {
	s.notes = slices.DeleteFunc(s.notes, func(n note) bool { return n.field == f })
	if !unchanged {
		s.notes = append(s.notes, note{field: f, tag: tag})
	}
}

func (s *resolution) finish() EnrichedRecord {
	s.out.CorrectionNotes = make([]string, 0, len(s.notes))
	for _, n := range s.notes {
		s.out.CorrectionNotes = append(s.out.CorrectionNotes, n.tag)
	}
	if s.out.HasCoordinates() && s.out.City != "" && s.out.State != "" && s.out.PostalCode != "" {
		s.out.Status = StatusSuccess
	} else {
		s.out.Status = StatusIncomplete
	}
	return s.out
}
