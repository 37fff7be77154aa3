// Package main is the entry point for running a single backtest: one
// config against one underlying-bar dataset, producing a trade log, an
// equity curve, and a performance summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/gridiron/internal/analyzer"
	"github.com/eddiefleurent/gridiron/internal/chain"
	"github.com/eddiefleurent/gridiron/internal/config"
	"github.com/eddiefleurent/gridiron/internal/dataset"
	"github.com/eddiefleurent/gridiron/internal/models"
	"github.com/eddiefleurent/gridiron/internal/simulator"
	"github.com/eddiefleurent/gridiron/internal/strategy"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath, dataPath, outDir string
	flag.StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	flag.StringVar(&dataPath, "data", "", "path to underlying bar CSV (date,close,vix)")
	flag.StringVar(&outDir, "out", "out", "directory to write trades.csv/equity.csv into")
	flag.Parse()

	logger := log.New(os.Stdout, "[backtest] ", log.LstdFlags)

	if dataPath == "" {
		logger.Println("missing required -data flag")
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Printf("failed to load config: %v", err)
		return 1
	}

	bars, err := dataset.LoadUnderlyingBars(dataPath)
	if err != nil {
		logger.Printf("failed to load underlying bars: %v", err)
		return 1
	}

	names := make([]string, 0, len(cfg.Strategies))
	for name := range cfg.Strategies {
		names = append(names, name)
	}
	strategies, err := strategy.BuildAll(names, cfg.Strategies)
	if err != nil {
		logger.Printf("failed to build strategies: %v", err)
		return 1
	}
	if len(strategies) == 0 {
		logger.Println("no enabled strategies in config")
		return 1
	}

	dashLogger := logrus.New()
	dashLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	sim := simulator.New(simulator.Config{
		InitialEquity:         cfg.Backtest.InitialCapital,
		CommissionPerContract: cfg.Backtest.CommissionPerContract,
		MaxRiskPercent:        cfg.PositionSizing.MaxRiskPercent,
		ChainConfig:           cfg.ChainConfig(chain.NewHolidayCalendar(nil)),
		Logger:                dashLogger,
	}, strategies)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("shutdown signal received, stopping after current run...")
		cancel()
	}()

	start := time.Now()
	result, err := sim.Run(bars)
	if err != nil {
		logger.Printf("simulation failed: %v", err)
		return 1
	}
	logger.Printf("simulated %d bars in %s, %d trades closed", len(bars), time.Since(start), len(result.Trades))

	if ctx.Err() != nil {
		logger.Println("interrupted before output was written")
		return 1
	}

	if err := writeOutputs(outDir, result); err != nil {
		logger.Printf("failed to write outputs: %v", err)
		return 1
	}

	metrics, err := analyzer.Analyze(result.Trades, result.EquityCurve)
	if err != nil {
		logger.Printf("performance analysis failed: %v", err)
		return 1
	}
	printSummary(logger, metrics, result.FinalEquity)

	return 0
}

func writeOutputs(outDir string, result *simulator.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := dataset.WriteTradeExport(filepath.Join(outDir, "trades.csv"), result.Trades); err != nil {
		return fmt.Errorf("writing trade export: %w", err)
	}
	if err := writeEquityCurve(filepath.Join(outDir, "equity.csv"), result.EquityCurve); err != nil {
		return fmt.Errorf("writing equity curve: %w", err)
	}
	return nil
}

func writeEquityCurve(path string, curve []models.EquityPoint) error {
	f, err := os.Create(path) // #nosec G304 -- path is operator-controlled via -out
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, "date,cash,positions_value,total_value,drawdown_from_peak"); err != nil {
		return err
	}
	for _, p := range curve {
		if _, err := fmt.Fprintf(f, "%s,%.2f,%.2f,%.2f,%.6f\n",
			p.Date.Format("2006-01-02"), p.Cash, p.PositionsValue, p.TotalValue, p.DrawdownFromPeak); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(logger *log.Logger, m analyzer.Metrics, finalEquity float64) {
	logger.Printf("final equity: $%.2f", finalEquity)
	logger.Printf("total return: %.2f%%  CAGR: %.2f%%  max drawdown: %.2f%%",
		m.TotalReturn*100, m.CAGR*100, m.MaxDrawdown*100)
	logger.Printf("sharpe: %.2f  sortino: %.2f  calmar: %.2f", m.Sharpe, m.Sortino, m.Calmar)
	logger.Printf("trades: %d  win rate: %.1f%%  profit factor: %.2f",
		m.TotalTrades, m.WinRate*100, m.ProfitFactor)
}
