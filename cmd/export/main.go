// Command export pushes the local transaction history into BigQuery for
// ad-hoc analysis. It reads the store only; nothing syncs here.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/spendwise/internal/analytics"
	"github.com/dvloznov/spendwise/internal/config"
	"github.com/dvloznov/spendwise/internal/logger"
	"github.com/dvloznov/spendwise/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)

	if cfg.Analytics.Project == "" || cfg.Analytics.Dataset == "" {
		log.Fatal().Msg("Analytics project and dataset must be configured")
	}

	ctx := context.Background()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Opening local store failed")
	}
	defer st.Close()

	exporter, err := analytics.NewExporter(ctx, cfg.Analytics.Project, cfg.Analytics.Dataset, cfg.Remote.UserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating exporter failed")
	}
	defer exporter.Close()

	txs, err := st.ListTransactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Reading transactions failed")
	}
	if err := exporter.ExportTransactions(ctx, txs); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	if err := exporter.ExportReport(ctx, txs, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("Report snapshot export failed")
	}
	log.Info().Int("rows", len(txs)).Msg("Export complete")
}
