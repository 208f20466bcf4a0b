package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorwatch/internal/agent"
	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/internal/external/alphavantage"
	"github.com/wonny/sectorwatch/internal/s0_data"
	"github.com/wonny/sectorwatch/internal/s1_universe"
	"github.com/wonny/sectorwatch/pkg/config"
	"github.com/wonny/sectorwatch/pkg/database"
	"github.com/wonny/sectorwatch/pkg/httputil"
	"github.com/wonny/sectorwatch/pkg/logger"
	"github.com/wonny/sectorwatch/pkg/ratelimit"
	"github.com/wonny/sectorwatch/pkg/redis"
)

// keyPrefix namespaces redis keys shared by every sectorwatch process
const keyPrefix = "sectorwatch"

// runtime bundles the wired dependencies of a command
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	store    contracts.Store
	provider *alphavantage.Client
	policy   *s1_universe.Policy
	redis    *redis.Client
}

// Close releases the store and redis connections
func (r *runtime) Close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.WithError(err).Warn("Failed to close store")
		}
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
}

// newAgent builds the agent over the runtime's provider and store
func (r *runtime) newAgent(opts ...agent.Option) *agent.Agent {
	return agent.New(r.provider, r.store, r.policy, agent.ConfigFrom(r.cfg), r.log, opts...)
}

// loadConfig reads config and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// setupStore wires config, logger and store only
func setupStore(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: logger.New(cfg)}

	rt.store, err = openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.log.WithField("driver", cfg.Database.Driver).Info("Connected to store")
	return rt, nil
}

// setupAll wires the store, the rate-limited provider and the selection policy
func setupAll(ctx context.Context) (*runtime, error) {
	rt, err := setupStore(ctx)
	if err != nil {
		return nil, err
	}

	selection, err := s1_universe.LoadConfig(rt.cfg.Agent.SelectionFile)
	if err != nil {
		rt.Close()
		return nil, err
	}
	hash, err := selection.Hash()
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.policy = s1_universe.NewPolicy(selection)
	rt.log.WithFields(map[string]interface{}{
		"min_market_cap": selection.MinMarketCap,
		"max_price":      selection.MaxPrice,
		"config_hash":    hash,
	}).Info("Selection policy loaded")

	rt.redis, err = redis.New(rt.cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	rt.provider = newProvider(rt.cfg, rt.log, rt.redis)
	return rt, nil
}

// openStore opens the configured backend
// ⭐ SSOT: 저장소 드라이버 선택은 여기서만
func openStore(ctx context.Context, cfg *config.Config) (contracts.Store, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		store, err := s0_data.NewSQLiteStore(ctx, cfg.Database.SQLitePath, cfg.Database.ConnectRetries, cfg.Database.ConnectRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		store, err := s0_data.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	}
}

// newProvider builds the Alpha Vantage client with the shared call budget
func newProvider(cfg *config.Config, log *logger.Logger, rc *redis.Client) *alphavantage.Client {
	perMinute := cfg.AlphaVantage.MaxRequestsPerMinute

	var limiter ratelimit.Limiter
	if cfg.AlphaVantage.RateLimitBackend == "redis" {
		limiter = redis.NewRateLimiter(rc, keyPrefix, redis.AlphaVantageRateLimit(perMinute))
	} else {
		window := ratelimit.PerMinute(perMinute)
		window.OnBlock = func(wait time.Duration) {
			log.WithField("wait", wait.Round(time.Millisecond).String()).Info("Rate limit reached, waiting")
		}
		limiter = window
	}

	httpClient := httputil.New(cfg, log).WithLimiter(limiter)
	provider := alphavantage.NewClient(httpClient, cfg, log)
	if rc.Enabled() {
		provider.WithCache(redis.NewCache(rc, keyPrefix))
	}
	return provider
}
