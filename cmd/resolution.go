package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-enrich/internal/resolution"
	"github.com/sells-group/geo-enrich/internal/sheet"
)

var (
	resolutionIn       string
	resolutionOut      string
	resolutionColumn   string
	resolutionEncoding string
)

var resolutionCmd = &cobra.Command{
	Use:   "resolution",
	Short: "Record the pixel size of every image URL in a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("resolution"); err != nil {
			return err
		}

		t, err := sheet.Read(resolutionIn, sheet.ReadOptions{Encoding: resolutionEncoding})
		if err != nil {
			return err
		}
		col, err := resolution.URLColumn(t, resolutionColumn)
		if err != nil {
			return err
		}

		checker := resolution.New(resolution.Config{
			Timeout:   time.Duration(cfg.Resolution.TimeoutSecs) * time.Second,
			UserAgent: cfg.Resolution.UserAgent,
			Workers:   cfg.Resolution.Workers,
		}, nil)

		urls := t.Column(col)
		progress, finish := newProgress(len(urls), "Checking")
		results := checker.Check(ctx, urls, progress)
		finish()

		if err := resolution.Annotate(t, results); err != nil {
			return err
		}
		out := resolutionOut
		if out == "" {
			out = defaultOutputPath(resolutionIn, "_resolution")
		}
		if err := sheet.Write(out, t); err != nil {
			return err
		}

		ok := 0
		for _, r := range results {
			if r.OK() {
				ok++
			}
		}
		zap.L().Info("resolution complete",
			zap.String("output", out),
			zap.Int("total", len(results)),
			zap.Int("success", ok),
			zap.Int("failed", len(results)-ok),
		)
		return nil
	},
}

func init() {
	resolutionCmd.Flags().StringVar(&resolutionIn, "in", "", "input .csv or .xlsx file")
	resolutionCmd.Flags().StringVar(&resolutionOut, "out", "", "output file (default <in>_resolution.<ext>)")
	resolutionCmd.Flags().StringVar(&resolutionColumn, "column", "", "column holding image URLs (default last column)")
	resolutionCmd.Flags().StringVar(&resolutionEncoding, "encoding", "", "CSV input charset (default utf-8)")
	_ = resolutionCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(resolutionCmd)
}
