package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-enrich/internal/api"
	"github.com/sells-group/geo-enrich/internal/resolution"
)

var servePort int

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		table, err := loadReference(cfg.ReferenceFile)
		if err != nil {
			return err
		}
		cache, closeCache, err := openCache(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer closeCache()

		factory := newProviderFactory(cfg, cache)
		server := api.New(api.Config{
			MaxRecords:            cfg.Server.MaxRecords,
			Workers:               cfg.Batch.Workers,
			AdoptReverseUnchecked: cfg.Geocode.AdoptReverseUnchecked,
			AllowedOrigins:        cfg.Server.AllowedOrigins,
		}, factory.build, table, resolution.New(resolution.Config{
			Timeout:   time.Duration(cfg.Resolution.TimeoutSecs) * time.Second,
			UserAgent: cfg.Resolution.UserAgent,
			Workers:   cfg.Resolution.Workers,
		}, nil))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
