// Package validate holds the format and membership checks used to decide
// whether an address field can be trusted as-is.
package validate

import (
	"regexp"
	"strings"
)

// postalCodePattern matches an Indian PIN: a leading 1-9 followed by five digits.
var postalCodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// IsValidPostalCode reports whether v, trimmed, is a well-formed postal code.
func IsValidPostalCode(v string) bool {
	return postalCodePattern.MatchString(strings.TrimSpace(v))
}

// IsValidURL reports whether v, trimmed, is an http or https URL.
func IsValidURL(v string) bool {
	v = strings.TrimSpace(v)
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

// KnownSet is the read-only set of recognized city and state names.
// The zero value and a nil *KnownSet recognize nothing.
type KnownSet struct {
	cities map[string]struct{}
	states map[string]struct{}
}

// NewKnownSet builds a KnownSet from the given names. Blank names are ignored.
func NewKnownSet(cities, states []string) *KnownSet {
	return &KnownSet{
		cities: toSet(cities),
		states: toSet(states),
	}
}

// IsKnownCity reports exact, case-sensitive membership in the city set.
func (k *KnownSet) IsKnownCity(v string) bool {
	if k == nil {
		return false
	}
	_, ok := k.cities[v]
	return ok
}

// IsKnownState reports exact, case-sensitive membership in the state set.
func (k *KnownSet) IsKnownState(v string) bool {
	if k == nil {
		return false
	}
	_, ok := k.states[v]
	return ok
}

// Len returns the number of known cities and states.
func (k *KnownSet) Len() (cities, states int) {
	if k == nil {
		return 0, 0
	}
	return len(k.cities), len(k.states)
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}
