package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/tallyhq/tally/internal/cache"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/plaid"
	"github.com/tallyhq/tally/internal/rules"
	"github.com/tallyhq/tally/internal/storage"
	"github.com/tallyhq/tally/internal/taxonomy"
)

// pageCacheTTL bounds how stale a cached transaction page can get before
// the next view re-fetches from the provider.
const pageCacheTTL = 5 * time.Minute

// initStorage opens the SQLite store at the configured path and runs
// migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDataPath()
	} else {
		dbPath = config.ExpandPath(dbPath)
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// plaidConfig assembles Plaid credentials from config with environment
// variable fallbacks.
func plaidConfig() (plaid.Config, error) {
	cfg := plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv("PLAID_SECRET")
	}
	if cfg.Environment == "" {
		cfg.Environment = os.Getenv("PLAID_ENV")
		if cfg.Environment == "" {
			cfg.Environment = "sandbox"
		}
	}
	if cfg.ClientID == "" || cfg.Secret == "" {
		return plaid.Config{}, fmt.Errorf("%w: add plaid client_id and secret to the config file or set PLAID_CLIENT_ID and PLAID_SECRET", common.ErrMissingConfig)
	}
	return cfg, nil
}

// app bundles the wired application services for a command invocation.
type app struct {
	store    *storage.SQLiteStore
	rules    *rules.Store
	matcher  *rules.Matcher
	ledger   *ledger.Service
	applier  *rules.Applier
	syncer   *taxonomy.Syncer
	tokens   *plaid.TokenManager
	provider *plaid.Client
}

// initApp wires storage, the Plaid provider, and the categorization
// services. Commands that never touch the provider can still run when no
// item is linked; data calls will fail with a clear error.
func initApp(ctx context.Context) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := plaidConfig()
	if err != nil {
		store.Close()
		return nil, err
	}
	provider, err := plaid.NewClient(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	tokens := plaid.NewTokenManager(store)
	if token, err := tokens.AccessToken(ctx); err == nil {
		provider.SetAccessToken(token)
	}

	ruleStore := rules.NewStore(store)
	matcher := rules.NewMatcher(ruleStore)
	svc := ledger.NewService(provider, store, matcher, cache.New[ledger.Page](100, pageCacheTTL))
	syncer := taxonomy.NewSyncer(ruleStore, svc)
	applier := rules.NewApplier(ruleStore, svc, syncer)

	return &app{
		store:    store,
		rules:    ruleStore,
		matcher:  matcher,
		ledger:   svc,
		applier:  applier,
		syncer:   syncer,
		tokens:   tokens,
		provider: provider,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to close storage: %v\n", err)
	}
}
