package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"spend-reconcile/pkg/attribution"
	"spend-reconcile/pkg/config"
	"spend-reconcile/pkg/currency"
	"spend-reconcile/pkg/database"
	"spend-reconcile/pkg/reconcile"
	"spend-reconcile/pkg/report"
)

func main() {
	cfgPath := flag.String("config", "db_config.json", "run configuration file (JSON)")
	out := flag.String("out", "", "output workbook path (default <date>-spend-reconcile-<ts>.xlsx)")
	date := flag.String("date", "", "override the configured report date (YYYY-MM-DD)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *date != "" {
		cfg.Params.Date = *date
		if err := cfg.Validate(); err != nil {
			log.Fatalf("date override: %v", err)
		}
	}

	cdsDB, dsnUsed, err := database.Open(cfg.CDS.MySQLURL())
	if err != nil {
		log.Fatalf("open config store: %v", err)
	}
	defer cdsDB.Close()
	log.Infow("config store connected", "dsn", dsnUsed)

	pgDB, err := database.OpenPostgres(cfg.CDSPG.PostgresDSN())
	if err != nil {
		log.Fatalf("open detail store: %v", err)
	}
	defer pgDB.Close()

	cfgStore := database.NewConfigStore(cdsDB)
	ledger := database.NewLedger(pgDB, log)
	details := database.NewDetailStore(pgDB, log)
	conv := currency.New(cfgStore, log)

	// Trend pipeline: channel-qualified cost plus the merged channel
	// total; project resolves through the channel mapping.
	trend := attribution.NewEngine(attribution.Config{
		Policies:            []attribution.Policy{attribution.ByCampaignChannel},
		IncludeChannelTotal: true,
	}, ledger, cfgStore, conv, log)

	// Ads pipeline: both cost policies side by side; each row carries its
	// own pn.
	campaign := attribution.NewEngine(attribution.Config{
		Policies: []attribution.Policy{attribution.ByCampaign, attribution.ByCampaignChannel},
		RowPN:    true,
	}, ledger, cfgStore, conv, log)

	runner := reconcile.NewRunner(details, trend, campaign, log)
	results := runner.Run(context.Background(), cfg.Params.Date, cfg.Params.Channels)

	outPath := *out
	if outPath == "" {
		outPath = fmt.Sprintf("%s-spend-reconcile-%d.xlsx", cfg.Params.Date, time.Now().Unix())
	}
	if err := report.Write(results, outPath, log); err != nil {
		log.Fatalf("export report: %v", err)
	}
	log.Infow("reconciliation complete", "report", outPath)
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}
