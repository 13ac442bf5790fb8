package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-enrich/internal/enrich"
	"github.com/sells-group/geo-enrich/internal/fallback"
	"github.com/sells-group/geo-enrich/internal/sheet"
)

var (
	enrichIn            string
	enrichOut           string
	enrichProvider      string
	enrichAPIKey        string
	enrichWorkers       int
	enrichAddressColumn string
	enrichPreview       int
	enrichReference     string
	enrichEncoding      string
	enrichSheet         string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Geocode and complete address rows in a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if enrichProvider != "" {
			cfg.Geocode.Provider = enrichProvider
		}
		if enrichAPIKey != "" {
			cfg.Geocode.APIKey = enrichAPIKey
		}
		if enrichReference != "" {
			cfg.ReferenceFile = enrichReference
		}
		if enrichWorkers > 0 {
			cfg.Batch.Workers = enrichWorkers
		}
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		return runEnrich(ctx, cmd.OutOrStdout())
	},
}

func runEnrich(ctx context.Context, stdout io.Writer) error {
	table, err := loadReference(cfg.ReferenceFile)
	if err != nil {
		return err
	}

	in, err := sheet.Read(enrichIn, sheet.ReadOptions{Encoding: enrichEncoding, SheetName: enrichSheet})
	if err != nil {
		return err
	}
	cols := sheet.DefaultColumns()
	if enrichAddressColumn != "" {
		cols.Address = enrichAddressColumn
	}
	records, err := in.Records(cols)
	if err != nil {
		return err
	}

	cache, closeCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	factory := newProviderFactory(cfg, cache)
	provider, err := factory.build(cfg.Geocode.Provider, cfg.Geocode.APIKey)
	if err != nil {
		return err
	}

	progress, finish := newProgress(len(records), "Enriching")
	runner := enrich.NewRunner(
		enrich.NewResolver(provider, table, factory.resolverOptions()...),
		enrich.WithWorkers(cfg.Batch.Workers),
		enrich.WithProgress(progress),
	)
	results, summary := runner.Run(ctx, records)
	finish()

	if err := in.ApplyEnriched(results); err != nil {
		return err
	}
	out := enrichOut
	if out == "" {
		out = defaultOutputPath(enrichIn, "_enriched")
	}
	if err := sheet.Write(out, in); err != nil {
		return err
	}

	zap.L().Info("enrich complete",
		zap.String("run_id", summary.RunID),
		zap.String("provider", summary.Provider),
		zap.String("output", out),
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("incomplete", summary.Incomplete),
		zap.Int("failed", summary.Failed),
		zap.Int("geocoded", summary.Geocoded),
		zap.Int("defaulted", summary.Defaulted),
		zap.Duration("duration", summary.Duration),
	)

	if enrichPreview > 0 {
		renderPreview(stdout, results, enrichPreview)
	}
	return nil
}

func loadReference(path string) (*fallback.Table, error) {
	if path == "" {
		return fallback.Default(), nil
	}
	t, err := fallback.Load(path)
	if err != nil {
		return nil, eris.Wrapf(err, "load reference file %s", path)
	}
	return t, nil
}

// defaultOutputPath derives "<name><suffix><ext>" next to the input file.
func defaultOutputPath(in, suffix string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + suffix + ext
}

// newProgress returns a progress callback and a func to call once the work
// is done. A terminal gets a bar on stderr; anything else gets log lines at
// roughly every tenth of the work.
func newProgress(total int, desc string) (func(done, total int), func()) {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription(desc),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		set := func(done, _ int) { _ = bar.Set(done) }
		return set, func() { _ = bar.Finish() }
	}

	step := max(total/10, 1)
	logProgress := func(done, n int) {
		if done%step == 0 || done == n {
			zap.L().Info(strings.ToLower(desc), zap.Int("done", done), zap.Int("total", n))
		}
	}
	return logProgress, func() {}
}

// renderPreview prints the first n results as a table.
func renderPreview(w io.Writer, results []enrich.EnrichedRecord, n int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row", "Latitude", "Longitude", "City", "State", "Postal Code", "Status", "Notes"})
	table.SetAutoWrapText(false)
	for i, r := range results {
		if i >= n {
			break
		}
		table.Append([]string{
			fmt.Sprint(i + 1),
			enrich.FormatCoordinate(r.Latitude),
			enrich.FormatCoordinate(r.Longitude),
			r.City,
			r.State,
			r.PostalCode,
			string(r.Status),
			r.Notes(),
		})
	}
	table.Render()
}

func init() {
	enrichCmd.Flags().StringVar(&enrichIn, "in", "", "input .csv or .xlsx file")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "", "output file (default <in>_enriched.<ext>)")
	enrichCmd.Flags().StringVar(&enrichProvider, "provider", "", "geocoding provider (default from config)")
	enrichCmd.Flags().StringVar(&enrichAPIKey, "api-key", "", "provider API key (default from config)")
	enrichCmd.Flags().IntVar(&enrichWorkers, "workers", 0, "concurrent workers, 1-20 (default from config)")
	enrichCmd.Flags().StringVar(&enrichAddressColumn, "address-column", "Address", "column holding the free-text address")
	enrichCmd.Flags().IntVar(&enrichPreview, "preview", 5, "print the first N enriched rows; 0 disables")
	enrichCmd.Flags().StringVar(&enrichReference, "reference", "", "YAML reference file overriding the built-in city table")
	enrichCmd.Flags().StringVar(&enrichEncoding, "encoding", "", "CSV input charset, e.g. windows-1252 (default utf-8)")
	enrichCmd.Flags().StringVar(&enrichSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	_ = enrichCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(enrichCmd)
}
