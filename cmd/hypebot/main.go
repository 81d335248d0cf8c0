package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arodriguezf/hypebot/config"
	"github.com/arodriguezf/hypebot/internal/adapters/custodial"
	"github.com/arodriguezf/hypebot/internal/adapters/evm"
	"github.com/arodriguezf/hypebot/internal/adapters/notify"
	"github.com/arodriguezf/hypebot/internal/adapters/resolver"
	"github.com/arodriguezf/hypebot/internal/adapters/storage"
	"github.com/arodriguezf/hypebot/internal/application/trader"
	"github.com/arodriguezf/hypebot/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbols := flag.String("buy", "", "comma-separated token symbols to trade")
	targetTokens := flag.Float64("target-tokens", 0, "size the buy to receive this many tokens instead of 10% of balance")
	handle := flag.String("handle", "manual", "account handle to attribute the trade to")
	postText := flag.String("text", "", "post text recorded with the position")
	positions := flag.Bool("positions", false, "print the portfolio and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	networks := cfg.DomainNetworks()
	t := trader.New(
		resolver.NewStatic(cfg.DomainTokens()),
		custodial.NewClient(cfg.Custodial.BaseURL, cfg.Custodial.APIKey),
		store,
		notify.NewConsole(),
		networks,
		cfg.Trading.SlippagePct,
		slog.Default(),
	)

	for _, n := range networks {
		if n.Family != domain.FamilyEVM || !n.Enabled {
			continue
		}
		if cfg.Trading.PrivateKey == "" {
			slog.Warn("no PRIVATE_KEY set, EVM network unavailable", "network", n.ID)
			continue
		}
		client, err := evm.NewClient(n, cfg.Trading.PrivateKey)
		if err != nil {
			slog.Error("failed to connect network", "network", n.ID, "err", err)
			os.Exit(1)
		}
		t.RegisterVenue(n.ID, trader.EVMVenue{
			Primary:  client,
			Fallback: evm.NewFallbackExecutor(client),
			Balance:  client,
		})
		slog.Info("network ready", "network", n.ID, "wallet", client.Address())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *positions {
		if _, err := t.Positions(ctx); err != nil {
			slog.Error("failed to list positions", "err", err)
			os.Exit(1)
		}
		return
	}

	if *symbols == "" {
		flag.Usage()
		os.Exit(2)
	}

	failed := 0
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		req := domain.TradeRequest{
			Symbol:       symbol,
			PostText:     *postText,
			Handle:       *handle,
			TargetTokens: *targetTokens,
		}
		if _, err := t.Execute(ctx, req); err != nil {
			slog.Error("trade failed", "symbol", symbol, "err", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
	slog.Info("hypebot done")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
