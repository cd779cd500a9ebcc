package app

import (
	"context"
	"log"
	"log/slog"
	"time"

	"tkj_lending_tool/auth"
	"tkj_lending_tool/cache"
	"tkj_lending_tool/config"
	"tkj_lending_tool/db"
	"tkj_lending_tool/lending"
	"tkj_lending_tool/logger"
	"tkj_lending_tool/metrics"
	"tkj_lending_tool/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// aliases for handlers
type Ctx = gin.Context
type H = gin.H

// App holds every dependency the handlers need.
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	RDB      *redis.Client
	Config   config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Repo    *db.Repo
	Lending lending.Service
	Stats   *cache.Stats
	Signer  *auth.Signer

	adminSess *session.AdminSessionStore
	logins    *session.LoginLimiter
}

func (a *App) AdminSessions() *session.AdminSessionStore { return a.adminSess }
func (a *App) Logins() *session.LoginLimiter             { return a.logins }

// New wires an App around already opened connections. Tests call it with SQLite and
// miniredis.
func New(cfg config.Config, conn *gorm.DB, rdb *redis.Client, lg *slog.Logger) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo := db.NewRepo(conn)

	var svc lending.Service = lending.NewCoordinator(repo, cfg.CodeAttempts, cfg.TxTimeout)
	svc = &lending.Instrumented{Service: svc, Metrics: m}
	svc = &lending.Logging{Service: svc, Log: lg.With(slog.String("component", "lending"))}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLog(lg, m))
	useCORS(r, cfg.WebOrigin)

	return &App{
		Router:   r,
		DB:       conn,
		RDB:      rdb,
		Config:   cfg,
		Log:      lg,
		Registry: reg,
		Metrics:  m,
		Repo:     repo,
		Lending:  svc,
		Stats:    &cache.Stats{Redis: rdb, TTL: cfg.StatsCacheTTL, Log: lg, Metrics: m},
		Signer:   auth.NewSigner(cfg.Secret(), cfg.SessionTTL),

		adminSess: session.NewAdminSessionStore(rdb, cfg.SessionTTL),
		logins:    &session.LoginLimiter{Redis: rdb, Max: cfg.LoginMaxFailures, Window: cfg.LoginLockout},
	}
}

func MustNew() *App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(lg)

	dbConn, err := db.ConnectDB(cfg, lg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	return New(cfg, dbConn, rdb, lg)
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
