package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sentinelwatch/internal/alerting"
	"sentinelwatch/internal/config"
	"sentinelwatch/internal/ledger"
	"sentinelwatch/internal/logging"
	"sentinelwatch/internal/oracle"
	"sentinelwatch/internal/payment"
	"sentinelwatch/internal/scheduler"
	"sentinelwatch/internal/service"
	"sentinelwatch/internal/solana"
	"sentinelwatch/internal/storage"
	"sentinelwatch/internal/summarizer"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

// newOracle assembles the price source fallback chain. Sources without
// configuration are skipped; the synthetic tail always terminates the
// chain so quotes never fail.
func (a *App) newOracle() *oracle.Aggregator {
	cfg := a.Config.Oracle
	sources := make([]oracle.Source, 0, 4)

	if cfg.Feed.BaseURL != "" {
		sources = append(sources, oracle.NewFeed(oracle.FeedOptions{
			BaseURL:   cfg.Feed.BaseURL,
			APIKey:    cfg.Feed.APIKey,
			Symbol:    cfg.Symbol,
			Timeout:   cfg.SourceTimeout,
			UserAgent: a.Config.Payment.UserAgent,
		}, a.Logger))
	}
	if cfg.Chainlink.RPCURL != "" && cfg.Chainlink.FeedAddress != "" {
		sources = append(sources, oracle.NewChainlink(oracle.ChainlinkOptions{
			RPCURL:      cfg.Chainlink.RPCURL,
			FeedAddress: cfg.Chainlink.FeedAddress,
			Timeout:     cfg.SourceTimeout,
		}, a.Logger))
	}
	if cfg.Public.BaseURL != "" {
		sources = append(sources, oracle.NewPublic(oracle.PublicOptions{
			BaseURL:  cfg.Public.BaseURL,
			AssetID:  cfg.Public.CoinID,
			Currency: cfg.Public.VsCurrency,
			Timeout:  cfg.SourceTimeout,
		}, a.Logger))
	}
	sources = append(sources, oracle.NewSynthetic(decimal.NewFromFloat(cfg.Baseline), time.Now().UnixNano()))

	return oracle.NewAggregator(sources, oracle.Options{
		SourceTimeout:   cfg.SourceTimeout,
		FreshnessWindow: cfg.Freshness,
	}, a.Logger)
}

func (a *App) newChecker() *service.Checker {
	verifier := a.newVerifier()
	return service.NewChecker(service.Options{
		Fee:           decimal.NewFromFloat(a.Config.Server.Fee),
		Treasury:      a.Config.Server.Treasury,
		Network:       a.Config.Network(),
		VerifyTimeout: a.Config.Solana.VerifyTimeout,
	}, verifier, a.newOracle(), a.newNotifier(), a.Logger)
}

func (a *App) newVerifier() payment.Verifier {
	rpc := solana.NewHTTPClient(a.Config.Solana.RPCURL, a.Config.Solana.RequestTimeout)
	return solana.NewRPCVerifier(rpc, a.Logger)
}

func (a *App) newSigner() payment.Signer {
	return solana.NewAgentSigner(solana.AgentSignerOptions{
		Endpoint: a.Config.Solana.AgentURL,
		Network:  a.Config.Network(),
		Timeout:  a.Config.Solana.RequestTimeout,
		APIToken: a.Config.Solana.AgentToken,
	}, a.Logger)
}

func (a *App) newPaymentClient() *payment.Client {
	return payment.NewClient(payment.ClientOptions{
		BaseURL:     a.Config.Payment.ProviderURL,
		Network:     a.Config.Network(),
		TickTimeout: a.Config.Payment.TickTimeout,
		HTTPTimeout: a.Config.Payment.HTTPTimeout,
		UserAgent:   a.Config.Payment.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newSummarizer() summarizer.Summarizer {
	if !a.Config.Summarizer.Enabled {
		return nil
	}
	return summarizer.NewHTTP(summarizer.HTTPOptions{
		Endpoint: a.Config.Summarizer.Endpoint,
		Timeout:  a.Config.Summarizer.Timeout,
	}, a.Logger)
}

// openStores returns the activity ledger and monitor registry. With a
// DSN configured both are Postgres backed; otherwise both live in
// process memory and vanish on exit.
func (a *App) openStores(ctx context.Context) (ledger.ActivityLedger, ledger.MonitorStore, func(), error) {
	db := a.Config.Database
	if db.DSN == "" {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory stores")
		return ledger.NewMemory(db.ActivityCap), ledger.NewMemoryMonitors(), func() {}, nil
	}

	pool, err := storage.NewPool(ctx, storage.PoolConfig{
		DSN:             db.DSN,
		MaxOpenConns:    db.MaxOpenConns,
		MinIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	store := storage.NewStore(pool, db.ActivityCap)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return store, store, store.Close, nil
}

// openMonitorStore is the persistence-required variant used by the
// monitor management commands.
func (a *App) openMonitorStore(ctx context.Context) (ledger.MonitorStore, *storage.Store, func(), error) {
	db := a.Config.Database
	if db.DSN == "" {
		return nil, nil, nil, errDatabaseRequired
	}
	pool, err := storage.NewPool(ctx, storage.PoolConfig{
		DSN:             db.DSN,
		MaxOpenConns:    db.MaxOpenConns,
		MinIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	store := storage.NewStore(pool, db.ActivityCap)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return store, store, store.Close, nil
}

func (a *App) newScheduler(activities ledger.ActivityLedger, monitors ledger.MonitorStore) *scheduler.Scheduler {
	return scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		SummarizeEvery: a.Config.Scheduler.SummarizeEvery,
		SummaryWindow:  a.Config.Scheduler.SummaryWindow,
		AutoPauseAfter: a.Config.Scheduler.AutoPauseAfter,
		DrainTimeout:   a.Config.Scheduler.DrainTimeout,
	}, a.newPaymentClient(), a.newSigner(), activities, monitors, a.newSummarizer(), a.Logger)
}
