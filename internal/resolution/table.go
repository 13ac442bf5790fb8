package resolution

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geo-enrich/internal/sheet"
)

// Output columns appended by Annotate.
const (
	ColWidth  = "Width"
	ColHeight = "Height"
	ColStatus = "Status"
)

// URLColumn resolves the column holding URLs: the named one, or the last
// column when name is empty.
func URLColumn(t *sheet.Table, name string) (int, error) {
	if name == "" {
		if len(t.Header) == 0 {
			return -1, eris.New("resolution: table has no columns")
		}
		return len(t.Header) - 1, nil
	}
	col := t.Index(name)
	if col < 0 {
		return -1, eris.Errorf("resolution: column %q not found", name)
	}
	return col, nil
}

// Annotate writes Width, Height and Status columns for results, one per row.
func Annotate(t *sheet.Table, results []Result) error {
	widths := make([]string, len(results))
	heights := make([]string, len(results))
	statuses := make([]string, len(results))
	for i, r := range results {
		if r.OK() {
			widths[i] = strconv.Itoa(r.Width)
			heights[i] = strconv.Itoa(r.Height)
		}
		statuses[i] = r.Status
	}
	if err := t.SetColumn(ColWidth, widths); err != nil {
		return err
	}
	if err := t.SetColumn(ColHeight, heights); err != nil {
		return err
	}
	return t.SetColumn(ColStatus, statuses)
}
