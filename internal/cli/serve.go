package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "releve/internal/http"
	applog "releve/internal/log"
	"releve/internal/search"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long:  "Serve the ledger page, the tag and stats pages and the JSON API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg.LogLevel)

	res, err := OpenBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	policy, _ := search.ParseSentinelPolicy(cfg.UntaggedMatch)
	srv := apphttp.NewServer(":"+cfg.Port, res.Ledger, apphttp.Options{
		CacheTTL:    cfg.CacheTTL,
		LoadTimeout: cfg.LoadTimeout,
		Untagged:    policy,
		CORSOrigins: cfg.CORSOrigins(),
		Logger:      logger.WithComponent(applog.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	_, done := GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting releve server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = res.Cleanup()
		return err
	}

	<-done
	logger.Info("Server stopped gracefully")
	return nil
}
