// Package enrich fills in missing coordinates and address fields for
// spreadsheet rows using a geocoding provider and a static fallback table.
package enrich

import (
	"math"
	"strconv"
	"strings"
)

// Status is the outcome of resolving one record.
type Status string

const (
	StatusSuccess    Status = "Success"
	StatusIncomplete Status = "Incomplete"
	StatusFailed     Status = "Failed"
)

// Correction note tags, one per field changed.
const (
	NoteLatEnriched  = "Latitude enriched"
	NoteLonEnriched  = "Longitude enriched"
	NoteCityReverse  = "City from reverse"
	NoteStateReverse = "State from reverse"
	NotePINReverse   = "PIN from reverse"
	NoteDefaultState = "Default State"
	NoteDefaultPIN   = "Default PIN"
	NoteDefaultLat   = "Default Lat"
	NoteDefaultLon   = "Default Lon"
)

// AddressRecord is one input row as read. Any field may be blank.
type AddressRecord struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
}

// EnrichedRecord is the resolved form of an AddressRecord.
type EnrichedRecord struct {
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
	City                string   `json:"city"`
	State               string   `json:"state"`
	PostalCode          string   `json:"postal_code"`
	UsedFallbackGeocode bool     `json:"used_fallback_geocode"`
	UsedStaticDefault   bool     `json:"used_static_default"`
	CorrectionNotes     []string `json:"correction_notes"`
	Status              Status   `json:"status"`
	Error               string   `json:"error,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (e EnrichedRecord) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// Notes joins the correction notes for a single output cell.
func (e EnrichedRecord) Notes() string {
	return strings.Join(e.CorrectionNotes, ", ")
}

// FormatCoordinate renders a coordinate for output; nil renders as "".
func FormatCoordinate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// failedRecord reports rec as Failed, carrying its input values unchanged.
func failedRecord(rec AddressRecord, msg string) EnrichedRecord {
	out := newResolution(rec).out
	out.Status = StatusFailed
	out.Error = msg
	out.CorrectionNotes = []string{}
	return out
}

// parseCoordinate parses s as a finite decimal within [-limit, limit].
func parseCoordinate(s string, limit float64) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, validCoordinate(v, limit)
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// validPair reports whether lat/lon form a usable coordinate pair.
func validPair(lat, lon float64) bool {
	return validCoordinate(lat, 90) && validCoordinate(lon, 180)
}
