package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradepost-hq/tradepost/internal/api"
	"github.com/tradepost-hq/tradepost/internal/audit"
	"github.com/tradepost-hq/tradepost/internal/billing"
	"github.com/tradepost-hq/tradepost/internal/checkout"
	"github.com/tradepost-hq/tradepost/internal/config"
	"github.com/tradepost-hq/tradepost/internal/features"
	"github.com/tradepost-hq/tradepost/internal/logging"
	"github.com/tradepost-hq/tradepost/internal/permissions"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "tradepost",
	Short:   "Tradepost authorization service",
	Long:    `Tradepost evaluates subscription, feature, role, and permission entitlements for every tenant in the platform`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Tradepost %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	// Baseline logger for early startup logs
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "tradepost",
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Re-initialize logging with configuration-driven settings
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "tradepost",
	})

	log.Info().Str("version", Version).Msg("Starting Tradepost authorization service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit trail: persistent when a data directory is available, console
	// otherwise.
	if auditLogger, err := audit.NewSQLiteLogger(audit.SQLiteLoggerConfig{DataDir: cfg.DataDir}); err != nil {
		log.Warn().Err(err).Msg("Falling back to console audit logging")
		audit.SetLogger(audit.NewConsoleLogger())
	} else {
		audit.SetLogger(auditLogger)
		defer auditLogger.Close()
	}

	reader, closeReader, err := buildReader(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize subscription reader")
	}
	defer closeReader()

	flags, err := buildFlags(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load feature flags")
	}
	defer flags.Stop()

	perms, err := permissions.NewCheckerFromFile(cfg.GrantsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load permission grants")
	}

	initiator := buildInitiator(cfg)

	router := api.NewRouter(cfg, reader, flags, perms, initiator)
	defer router.Close()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// buildReader selects the hosted billing service when configured, otherwise
// the local SQLite read model.
func buildReader(cfg *config.Config) (billing.Reader, func(), error) {
	if cfg.BillingURL != "" {
		reader, err := billing.NewHTTPReader(cfg.BillingURL, cfg.BillingToken, cfg.BillingTimeout)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("billing_url", cfg.BillingURL).Msg("Using hosted billing service")
		return reader, func() {}, nil
	}

	store, err := billing.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("data_dir", cfg.DataDir).Msg("Using local subscription read model")
	return store, func() { store.Close() }, nil
}

func buildFlags(cfg *config.Config) (*features.Store, error) {
	path := cfg.FlagsPath
	if path == "" {
		path = cfg.DataDir + "/flags.json"
	}

	flags, err := features.NewStore(path)
	if err != nil {
		return nil, err
	}
	if err := flags.Watch(); err != nil {
		log.Warn().Err(err).Msg("Flags file watching unavailable; edits require a restart")
	}
	return flags, nil
}

func buildInitiator(cfg *config.Config) checkout.Initiator {
	if cfg.CheckoutURL == "" {
		log.Info().Msg("No checkout endpoint configured; upgrade actions link to the pricing page")
		return checkout.StaticInitiator{}
	}

	initiator, err := checkout.NewHTTPInitiator(cfg.CheckoutURL, cfg.BillingToken, cfg.BillingTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid checkout endpoint; upgrade actions link to the pricing page")
		return checkout.StaticInitiator{}
	}
	return initiator
}
