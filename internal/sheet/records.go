package sheet

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/geo-enrich/internal/enrich"
)

// Output column names written by ApplyEnriched.
const (
	ColLatitude        = "Latitude"
	ColLongitude       = "Longitude"
	ColCity            = "City"
	ColState           = "State"
	ColPostalCode      = "Postal Code"
	ColUsedFallback    = "Used_Fallback"
	ColCorrectionNotes = "Correction_Notes"
	ColStatus          = "Status"
	ColError           = "Error"
)

// Columns names the input columns holding each address part.
type Columns struct {
	Address    string
	City       string
	State      string
	PostalCode string
	Latitude   string
	Longitude  string
}

// DefaultColumns returns the conventional input column names.
func DefaultColumns() Columns {
	return Columns{
		Address:    "Address",
		City:       ColCity,
		State:      ColState,
		PostalCode: ColPostalCode,
		Latitude:   ColLatitude,
		Longitude:  ColLongitude,
	}
}

// Records maps each row to an AddressRecord. Optional columns that are
// missing read as blank; the address column must exist.
func (t *Table) Records(cols Columns) ([]enrich.AddressRecord, error) {
	addr := t.Index(cols.Address)
	if addr < 0 {
		return nil, eris.Errorf("sheet: address column %q not found (have %v)", cols.Address, t.Header)
	}
	city, state, pin := t.Index(cols.City), t.Index(cols.State), t.Index(cols.PostalCode)
	lat, lon := t.Index(cols.Latitude), t.Index(cols.Longitude)

	out := make([]enrich.AddressRecord, len(t.Rows))
	for i := range t.Rows {
		out[i] = enrich.AddressRecord{
			Address:    t.Cell(i, addr),
			City:       t.Cell(i, city),
			State:      t.Cell(i, state),
			PostalCode: t.Cell(i, pin),
			Latitude:   t.Cell(i, lat),
			Longitude:  t.Cell(i, lon),
		}
	}
	return out, nil
}

// ApplyEnriched writes the resolved fields back into t, one result per row
// in row order. Existing output columns are overwritten in place.
func (t *Table) ApplyEnriched(results []enrich.EnrichedRecord) error {
	if len(results) != len(t.Rows) {
		return eris.Errorf("sheet: %d results for %d rows", len(results), len(t.Rows))
	}

	// Address fields of a Failed row keep whatever the input held.
	columns := []struct {
		name  string
		field bool
		value func(enrich.EnrichedRecord) string
	}{
		{ColLatitude, true, func(r enrich.EnrichedRecord) string { return enrich.FormatCoordinate(r.Latitude) }},
		{ColLongitude, true, func(r enrich.EnrichedRecord) string { return enrich.FormatCoordinate(r.Longitude) }},
		{ColCity, true, func(r enrich.EnrichedRecord) string { return r.City }},
		{ColState, true, func(r enrich.EnrichedRecord) string { return r.State }},
		{ColPostalCode, true, func(r enrich.EnrichedRecord) string { return r.PostalCode }},
		{ColUsedFallback, false, func(r enrich.EnrichedRecord) string { return boolCell(r.UsedFallbackGeocode) }},
		{ColCorrectionNotes, false, func(r enrich.EnrichedRecord) string { return r.Notes() }},
		{ColStatus, false, func(r enrich.EnrichedRecord) string { return string(r.Status) }},
		{ColError, false, func(r enrich.EnrichedRecord) string { return r.Error }},
	}

	for _, c := range columns {
		existing := t.Index(c.name)
		values := make([]string, len(results))
		for i, r := range results {
			if c.field && r.Status == enrich.StatusFailed {
				if existing >= 0 && existing < len(t.Rows[i]) {
					values[i] = t.Rows[i][existing]
				} else {
					values[i] = c.value(r)
				}
				continue
			}
			values[i] = c.value(r)
		}
		if err := t.SetColumn(c.name, values); err != nil {
			return err
		}
	}
	return nil
}

// boolCell renders a flag as a spreadsheet cell.
func boolCell(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
