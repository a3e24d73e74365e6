package app

import (
	"Gin_postgres_redis_asset_lending/cache"
	"Gin_postgres_redis_asset_lending/config"
	"Gin_postgres_redis_asset_lending/db"
	"Gin_postgres_redis_asset_lending/lending"
	"Gin_postgres_redis_asset_lending/metrics"
	"Gin_postgres_redis_asset_lending/notify"
	"Gin_postgres_redis_asset_lending/session"
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	RDB      *redis.Client
	Config   config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry

	Repo     *db.Repo
	Lending  *lending.Service
	Archiver *lending.Archiver
	Sweeper  *lending.Sweeper

	appSess *session.AppSessionStore
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

// MustNew connects Postgres and Redis and wires the App. It exits the process
// when either store is unreachable.
func MustNew(cfg config.Config) *App {
	logger := NewLogger(cfg.LogLevel)

	// --- DB: Postgres ---
	gdb, err := db.ConnectDB(
		db.DSN(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort),
		db.Options{
			LogLevel:        gormlogger.Warn,
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
	)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	logger.Info("database connected")

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	return New(cfg, gdb, rdb, logger)
}

// New wires the lending core, HTTP router and background sweeper around
// already opened connections. Extra options go to both the Service and the
// Archiver after the defaults.
func New(cfg config.Config, gdb *gorm.DB, rdb *redis.Client, logger *slog.Logger, extra ...lending.Option) *App {
	repo := db.NewRepo(gdb)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	var seq lending.Sequence = db.NewSequence(gdb)
	if cfg.SequenceBackend == config.SequenceRedis {
		seq = cache.NewRedisSequence(rdb, repo.MaxLoanSequence)
	}

	opts := append([]lending.Option{
		lending.WithLogger(logger),
		lending.WithMetrics(collector),
		lending.WithNotifier(notify.NewRedisNotifier(rdb, cfg.NotifyChannel)),
	}, extra...)
	svc := lending.NewService(repo, seq, opts...)

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)

	return &App{
		Router:   r,
		DB:       gdb,
		RDB:      rdb,
		Config:   cfg,
		Log:      logger,
		Registry: reg,
		Repo:     repo,
		Lending:  svc,
		Archiver: lending.NewArchiver(repo, opts...),
		Sweeper: lending.NewSweeper(svc, cfg.SweepInterval,
			lending.WithSweepOnStart(cfg.SweepOnStart),
			lending.WithSweeperLogger(logger.With("component", "sweeper")),
		),
		appSess: session.NewAppSessionStore(rdb, cfg.SessionTTL),
	}
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// NewLogger builds the process logger. LOG_LEVEL accepts debug, info, warn
// and error; "json" anywhere in it switches to the JSON handler.
func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch {
	case strings.Contains(level, "debug"):
		lvl = slog.LevelDebug
	case strings.Contains(level, "warn"):
		lvl = slog.LevelWarn
	case strings.Contains(level, "error"):
		lvl = slog.LevelError
	}
	ho := &slog.HandlerOptions{Level: lvl}
	if strings.Contains(level, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, ho))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, ho))
}
