// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the journal-club CLI. Each stage of
// the full-text resolver is a subcommand: acquire, text, figures, render
// and convert.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nayanlc19/journal-club-standalone/internal/logging"
	"github.com/nayanlc19/journal-club-standalone/internal/metrics"
	"github.com/nayanlc19/journal-club-standalone/internal/secrets"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the effective configuration after file, environment and
	// secrets are merged.
	cfg types.Config

	logger     *zap.Logger
	collector  *metrics.Collector
	metricsSrv *http.Server
)

// rootCmd is the base command for the journal-club CLI.
var rootCmd = &cobra.Command{
	Use:   "journal-club",
	Short: "Resolve a paper identifier into text, figures and tables",
	Long: `journal-club turns a DOI, arXiv ID or article URL into the full text of
the paper. Sources are tried in tiers: open-access APIs first, then mirrors
and search scraping validated against CrossRef metadata, then the publisher
itself. HTML is reduced to article text, rendered first when it is a script
shell; PDFs are converted and scanned for tables and figures.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if metricsSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(ctx)
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./journal-club.yaml or ~/.config/journal-club/journal-club.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of credential files")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().Bool("dev", false, "human-readable development logging")
}

// setup loads configuration and secrets, then builds the logger and the
// metrics collector shared by every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return err
	}
	if dev, _ := cmd.Flags().GetBool("dev"); dev {
		cfg.Logging.Development = true
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	logger, err = logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, logger)
	if err != nil {
		return err
	}
	if applied := secrets.Apply(&cfg, s); len(applied) > 0 {
		logger.Info("loaded secrets", zap.Strings("keys", applied))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector = metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		if err := serveMetrics(cfg.Metrics.Addr); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
