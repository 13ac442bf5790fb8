package geocode

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Provider names accepted by New.
const (
	Google    = "google"
	HERE      = "here"
	Mapbox    = "mapbox"
	Ola       = "ola"
	OpenCage  = "opencage"
	Nominatim = "nominatim"
)

var providerNames = []string{Google, HERE, Mapbox, Ola, OpenCage, Nominatim}

// Names lists the supported providers in display order.
func Names() []string {
	return slices.Clone(providerNames)
}

// Supported reports whether New accepts the provider name.
func Supported(name string) bool {
	return slices.Contains(providerNames, normalizeName(name))
}

// RequiresKey reports whether the named provider needs an API key.
func RequiresKey(name string) bool {
	return normalizeName(name) != Nominatim
}

// New builds the named provider. Every provider except Nominatim requires
// an API key.
func New(name string, creds Credentials, opts ...Option) (Provider, error) {
	name = normalizeName(name)
	if !Supported(name) {
		return nil, eris.Errorf("geocode: unknown provider %q (want one of %s)", name, strings.Join(providerNames, ", "))
	}
	if RequiresKey(name) && strings.TrimSpace(creds.APIKey) == "" {
		return nil, eris.Errorf("geocode: provider %q requires an API key", name)
	}

	o := newOptions(opts)
	switch name {
	case Google:
		return newGoogle(creds, o), nil
	case HERE:
		return newHERE(creds, o), nil
	case Mapbox:
		return newMapbox(creds, o), nil
	case Ola:
		return newOla(creds, o), nil
	case OpenCage:
		return newOpenCage(creds, o), nil
	default:
		if o.limiter.Limit() == rate.Inf {
			o.limiter = rate.NewLimiter(nominatimDefaultRate, 1)
		}
		return newNominatim(o), nil
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
