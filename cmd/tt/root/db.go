package root

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tracktivity/internal/cache"
	"tracktivity/internal/config"
	"tracktivity/internal/engine"
	"tracktivity/internal/logging"
	"tracktivity/internal/metrics"
	"tracktivity/internal/storage"
)

// session is one CLI invocation's wiring: the engine plus the user it acts for.
type session struct {
	svc  *engine.Service
	user string
	log  *zap.Logger
}

func openService(ctx context.Context, flags *globalFlags) (*session, func(), error) {
	cfg, err := config.Load(flags.env)
	if err != nil {
		return nil, nil, err
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if u := strings.TrimSpace(flags.user); u != "" {
		cfg.User = u
	}

	logger, err := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	path, err := storage.ResolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	rec := metrics.New()
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(rec),
		engine.WithRecapOptions(engine.RecapOptions{
			MaxItems:     cfg.RecapMaxItems,
			Placeholders: cfg.RecapPlaceholders,
		}),
	}

	var recapCache *cache.Redis
	if cfg.RedisAddr != "" {
		// An unreachable Redis leaves the recap uncached; Dial already logged it.
		recapCache, err = cache.Dial(ctx, cfg.RedisAddr, cfg.RecapCacheTTL, logger)
		if err == nil {
			opts = append(opts, engine.WithRecapCache(recapCache))
		}
	}

	cleanup := func() {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("metrics_write_failed", zap.Error(err))
		}
		_ = recapCache.Close()
		_ = db.Close()
		_ = logger.Sync()
	}
	logger.Debug("session_opened", zap.String("user", cfg.User), zap.String("db", path))
	return &session{svc: engine.NewService(db, opts...), user: cfg.User, log: logger}, cleanup, nil
}
