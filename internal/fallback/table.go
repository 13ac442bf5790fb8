// Package fallback provides the static per-city defaults used as the last
// resort when neither the input nor a provider supplies a field.
package fallback

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geo-enrich/internal/validate"
)

// Entry holds the canonical values for one city.
type Entry struct {
	State      string  `yaml:"state" json:"state"`
	PostalCode string  `yaml:"postal_code" json:"postal_code"`
	Latitude   float64 `yaml:"latitude" json:"latitude"`
	Longitude  float64 `yaml:"longitude" json:"longitude"`
}

// Table maps a canonical city name to its Entry. A Table is never mutated
// after construction and is safe to share across goroutines.
type Table struct {
	entries map[string]Entry
	known   *validate.KnownSet
}

var defaultEntries = map[string]Entry{
	"Delhi":     {State: "Delhi", PostalCode: "110001", Latitude: 28.6139, Longitude: 77.2090},
	"Mumbai":    {State: "Maharashtra", PostalCode: "400001", Latitude: 18.9388, Longitude: 72.8354},
	"Bengaluru": {State: "Karnataka", PostalCode: "560001", Latitude: 12.9719, Longitude: 77.5937},
	"Chennai":   {State: "Tamil Nadu", PostalCode: "600001", Latitude: 13.0827, Longitude: 80.2707},
	"Hyderabad": {State: "Telangana", PostalCode: "500001", Latitude: 17.3850, Longitude: 78.4867},
	"Kolkata":   {State: "West Bengal", PostalCode: "700001", Latitude: 22.5726, Longitude: 88.3639},
}

// Default returns the built-in table of Indian metro defaults.
func Default() *Table {
	return New(defaultEntries, nil, nil)
}

// New builds a Table from entries. The known set is every city key and every
// entry state, plus any extra names given.
func New(entries map[string]Entry, extraCities, extraStates []string) *Table {
	copied := make(map[string]Entry, len(entries))
	cities := make([]string, 0, len(entries)+len(extraCities))
	states := make([]string, 0, len(entries)+len(extraStates))
	for city, e := range entries {
		copied[city] = e
		cities = append(cities, city)
		states = append(states, e.State)
	}
	cities = append(cities, extraCities...)
	states = append(states, extraStates...)

	return &Table{
		entries: copied,
		known:   validate.NewKnownSet(cities, states),
	}
}

// Lookup returns the entry for city, if any.
func (t *Table) Lookup(city string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[city]
	return e, ok
}

// Known returns the set of recognized city and state names.
func (t *Table) Known() *validate.KnownSet {
	if t == nil {
		return nil
	}
	return t.known
}

// Cities returns the table's city names in sorted order.
func (t *Table) Cities() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.entries))
	for c := range t.entries {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// referenceFile is the on-disk layout of a reference file.
type referenceFile struct {
	// Replace drops the built-in entries instead of merging over them.
	Replace     bool             `yaml:"replace"`
	Cities      map[string]Entry `yaml:"cities"`
	KnownCities []string         `yaml:"known_cities"`
	KnownStates []string         `yaml:"known_states"`
}

// Load reads a YAML reference file and merges it over the built-in table.
// An empty path returns Default().
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fallback: read reference %s", path)
	}
	return Parse(data)
}

// Parse decodes reference YAML and merges it over the built-in table.
func Parse(data []byte) (*Table, error) {
	var ref referenceFile
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, eris.Wrap(err, "fallback: parse reference")
	}

	entries := make(map[string]Entry, len(defaultEntries)+len(ref.Cities))
	if !ref.Replace {
		for city, e := range defaultEntries {
			entries[city] = e
		}
	}
	for city, e := range ref.Cities {
		if city == "" {
			return nil, eris.New("fallback: reference has an entry with an empty city name")
		}
		if !validate.IsValidPostalCode(e.PostalCode) {
			return nil, eris.Errorf("fallback: city %q has invalid postal code %q", city, e.PostalCode)
		}
		entries[city] = e
	}

	return New(entries, ref.KnownCities, ref.KnownStates), nil
}
